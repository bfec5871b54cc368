package web

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"fmasearch/internal/config"
	"fmasearch/internal/logger"
	"fmasearch/internal/metrics"
	"fmasearch/internal/session"
)

//go:embed static
var staticFiles embed.FS

// maxUploadSize bounds multipart audio uploads.
const maxUploadSize = 64 << 20

type Server struct {
	ctx     context.Context
	tracker *Tracker
	service *session.Service
	config  config.Config
	logger  *logger.Logger
}

func NewServer(ctx context.Context, tracker *Tracker, svc *session.Service, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		ctx:     ctx,
		tracker: tracker,
		service: svc,
		config:  cfg,
		logger:  log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Static files
	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("GET /", http.FileServer(http.FS(static)))

	// API endpoints
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /api/statement/audio", s.handleAudioStatement)
	mux.HandleFunc("GET /api/statement/text", s.handleTextStatement)
	mux.HandleFunc("POST /api/audio", s.handleAudio)
	mux.HandleFunc("POST /api/text", s.handleText)
	mux.HandleFunc("GET /api/metadata/{id}", s.handleMetadata)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("GET /metrics", metrics.Handler())

	return s.loggingMiddleware(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := routeLabel(r)
		metrics.RequestTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		s.logger.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// routeLabel keeps metric cardinality bounded by using the matched pattern
// instead of the raw path.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}
