package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fmasearch/internal/metrics"
	"fmasearch/internal/search"
	"fmasearch/internal/session"
)

// SearchStatus is the state of the latest search of a browser session.
type SearchStatus string

const (
	StatusIdle      SearchStatus = "idle"
	StatusRunning   SearchStatus = "running"
	StatusCompleted SearchStatus = "completed"
	StatusFailed    SearchStatus = "failed"
)

// Session is one browser tab. Within a tab, a newer action of the same kind
// makes every older response of that kind stale.
type Session struct {
	ID        string
	Kind      session.Kind
	Ticket    search.Ticket
	Status    SearchStatus
	Message   string
	Notices   []string
	Results   int
	CreatedAt time.Time
	UpdatedAt time.Time

	seqs map[session.Kind]*search.Sequencer
}

// Tracker manages browser sessions and their search status
type Tracker struct {
	sessions  map[string]*Session
	mu        sync.RWMutex
	listeners map[string][]chan Session
}

const sessionRetention = 1 * time.Hour

// NewTracker creates a new tracker
func NewTracker() *Tracker {
	return &Tracker{
		sessions:  make(map[string]*Session),
		listeners: make(map[string][]chan Session),
	}
}

// StartCleanup starts a background goroutine that removes idle sessions.
// Stops when ctx is cancelled.
func (t *Tracker) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.cleanup()
			}
		}
	}()
}

func (t *Tracker) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-sessionRetention)
	for id, s := range t.sessions {
		if s.Status != StatusRunning && s.UpdatedAt.Before(cutoff) {
			delete(t.sessions, id)
			for _, ch := range t.listeners[id] {
				close(ch)
			}
			delete(t.listeners, id)
		}
	}
}

// CreateSession registers a new browser session
func (t *Tracker) CreateSession() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
		seqs:      make(map[session.Kind]*search.Sequencer),
	}
	t.sessions[s.ID] = s
	return s
}

// GetSession returns a snapshot of a session
func (t *Tracker) GetSession(id string) (Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("session not found: %s", id)
	}
	return snapshot(s), nil
}

// Begin starts a search in session id and returns its ticket.
func (t *Tracker) Begin(id string, kind session.Kind, message string) (search.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return 0, fmt.Errorf("session not found: %s", id)
	}

	seq, ok := s.seqs[kind]
	if !ok {
		seq = &search.Sequencer{}
		s.seqs[kind] = seq
	}
	s.Ticket = seq.Next()
	s.Kind = kind
	s.Status = StatusRunning
	s.Message = message
	s.Notices = nil
	s.Results = 0
	s.UpdatedAt = time.Now()

	t.notifyListeners(id, s)
	return s.Ticket, nil
}

// Finish records the outcome of the action tagged ticket. It returns false,
// and changes nothing, when a newer action of the same kind has started since.
func (t *Tracker) Finish(id string, kind session.Kind, ticket search.Ticket, res session.Result, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok {
		return false
	}
	seq, ok := s.seqs[kind]
	if !ok || !seq.Current(ticket) {
		metrics.StaleResponses.Inc()
		return false
	}

	s.Kind = kind
	s.Ticket = ticket
	s.Status = StatusCompleted
	if err != nil {
		s.Status = StatusFailed
	}
	s.Message = res.Status
	s.Notices = res.Notices
	s.Results = len(res.Cards)
	if res.Table != nil {
		s.Results = len(res.Table.Rows)
	}
	s.UpdatedAt = time.Now()

	t.notifyListeners(id, s)
	return true
}

// Subscribe subscribes to session updates
func (t *Tracker) Subscribe(id string) <-chan Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Session, 10)
	t.listeners[id] = append(t.listeners[id], ch)
	return ch
}

// Unsubscribe removes a listener
func (t *Tracker) Unsubscribe(id string, ch <-chan Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	listeners := t.listeners[id]
	for i, listener := range listeners {
		if listener == ch {
			t.listeners[id] = append(listeners[:i], listeners[i+1:]...)
			close(listener)
			break
		}
	}
}

// notifyListeners sends updates to all listeners
func (t *Tracker) notifyListeners(id string, s *Session) {
	snap := snapshot(s)
	for _, ch := range t.listeners[id] {
		select {
		case ch <- snap:
		default:
		}
	}
}

func snapshot(s *Session) Session {
	return Session{
		ID:        s.ID,
		Kind:      s.Kind,
		Ticket:    s.Ticket,
		Status:    s.Status,
		Message:   s.Message,
		Notices:   append([]string(nil), s.Notices...),
		Results:   s.Results,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
