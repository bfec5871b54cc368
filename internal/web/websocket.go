package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI is served from the same binary
	},
}

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// handleWebSocket streams status updates for one session until the client
// goes away or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	sess, err := s.tracker.GetSession(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := s.tracker.Subscribe(sessionID)
	defer s.tracker.Unsubscribe(sessionID, updates)

	// Reads only detect the close; the client never sends anything useful.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn, sess); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case sess, ok := <-updates:
			if !ok {
				return
			}
			if err := s.send(conn, sess); err != nil {
				s.logger.Debug("WebSocket write for %s: %v", sessionID, err)
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-closed:
			return

		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, sess Session) error {
	data, err := json.Marshal(sessionToResponse(sess))
	if err != nil {
		s.logger.Error("Failed to marshal session: %v", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
