package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"fmasearch/internal/query"
	"fmasearch/internal/render"
	"fmasearch/internal/search"
	"fmasearch/internal/session"
	"fmasearch/pkg/utils"
)

type TextRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Statement string `json:"statement"`
	K         int    `json:"k"`
}

type QueryRequest struct {
	SessionID string `json:"session_id"`
	Statement string `json:"statement"`
}

// SearchResponse carries one action result. Stale responses belong to a
// search the session has since replaced; clients drop them.
type SearchResponse struct {
	Ticket search.Ticket  `json:"ticket"`
	Stale  bool           `json:"stale"`
	Result session.Result `json:"result"`
	HTML   string         `json:"html"`
}

type SessionResponse struct {
	ID        string        `json:"id"`
	Kind      session.Kind  `json:"kind,omitempty"`
	Ticket    search.Ticket `json:"ticket"`
	Status    SearchStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Notices   []string      `json:"notices,omitempty"`
	Results   int           `json:"results"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.tracker.CreateSession()
	s.logger.Debug("Created session %s", sess.ID)
	writeJSON(w, http.StatusCreated, sessionToResponse(*sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.GetSession(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

func (s *Server) handleAudioStatement(w http.ResponseWriter, r *http.Request) {
	k := intParam(r.URL.Query().Get("k"), s.service.AudioLimit())
	writeJSON(w, http.StatusOK, map[string]string{
		"statement": query.AudioStatement(r.URL.Query().Get("ref"), k),
	})
}

func (s *Server) handleTextStatement(w http.ResponseWriter, r *http.Request) {
	k := intParam(r.URL.Query().Get("k"), s.service.TextLimit())
	writeJSON(w, http.StatusOK, map[string]string{
		"statement": query.TextStatement(r.URL.Query().Get("q"), k),
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := session.AudioRequest{
		Input:     search.Input{TrackID: r.FormValue("track_id")},
		Statement: r.FormValue("statement"),
		Limit:     intParam(r.FormValue("k"), 0),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		name := filepath.Base(header.Filename)
		if !utils.IsAudioFile(name) {
			http.Error(w, "Unsupported audio file: "+name, http.StatusBadRequest)
			return
		}
		path, err := utils.SaveTemp(file, name)
		if err != nil {
			s.logger.Error("Failed to save upload: %v", err)
			http.Error(w, "Failed to store upload", http.StatusInternalServerError)
			return
		}
		defer utils.Cleanup(filepath.Dir(path))

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "Failed to read upload", http.StatusInternalServerError)
			return
		}
		req.Input.File = &search.File{Name: name, Body: file}
		req.UploadPath = path
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	s.run(w, r, r.FormValue("session_id"), session.AudioSearch, "Searching similar tracks...", func(ctx context.Context) (session.Result, error) {
		return s.service.Audio(ctx, req)
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.run(w, r, req.SessionID, session.TextSearch, "Searching lyrics...", func(ctx context.Context) (session.Result, error) {
		return s.service.Text(ctx, session.TextRequest{Query: req.Query, Statement: req.Statement, Limit: req.K})
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.run(w, r, r.URL.Query().Get("session_id"), session.TrackLookup, "Loading metadata...", func(ctx context.Context) (session.Result, error) {
		return s.service.Metadata(ctx, id)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.run(w, r, req.SessionID, session.RawQuery, "Running query...", func(ctx context.Context) (session.Result, error) {
		return s.service.Query(ctx, req.Statement)
	})
}

// run executes one action under the session's sequencer. Requests without a
// session id are never stale.
func (s *Server) run(w http.ResponseWriter, r *http.Request, sessionID string, kind session.Kind, message string, action func(context.Context) (session.Result, error)) {
	var ticket search.Ticket
	if sessionID != "" {
		t, err := s.tracker.Begin(sessionID, kind, message)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		ticket = t
	}

	res, err := action(r.Context())
	if err != nil {
		s.logger.Warn("%s failed: %v", kind, err)
	}

	resp := SearchResponse{Ticket: ticket, Result: res}
	if sessionID != "" && !s.tracker.Finish(sessionID, kind, ticket, res, err) {
		s.logger.Debug("Dropping stale %s response %d for session %s", kind, ticket, sessionID)
		resp.Stale = true
		resp.Result = session.Result{Kind: kind, Cards: []render.Card{}}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if res.Cards == nil {
		resp.Result.Cards = []render.Card{}
	}
	resp.HTML = fragment(res)
	writeJSON(w, statusCode(err), resp)
}

// fragment renders the result area: reference card, then results.
func fragment(res session.Result) string {
	var buf bytes.Buffer
	if res.Reference != nil {
		render.HTML(&buf, []render.Card{*res.Reference})
	}
	if res.Table != nil {
		render.TableHTML(&buf, *res.Table)
	} else {
		render.HTML(&buf, res.Cards)
	}
	return buf.String()
}

func statusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch search.KindOf(err) {
	case search.InvalidReference:
		return http.StatusBadRequest
	case search.SearchFailed, search.LookupFailed:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func intParam(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func sessionToResponse(sess Session) *SessionResponse {
	return &SessionResponse{
		ID:        sess.ID,
		Kind:      sess.Kind,
		Ticket:    sess.Ticket,
		Status:    sess.Status,
		Message:   sess.Message,
		Notices:   sess.Notices,
		Results:   sess.Results,
		CreatedAt: sess.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: sess.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
