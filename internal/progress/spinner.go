package progress

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Spinner shows that a remote call is in flight. A disabled spinner does
// nothing, so callers need not branch on verbose or non-terminal output.
type Spinner struct {
	mu      sync.Mutex
	printer *pterm.SpinnerPrinter
}

// Start starts a spinner with text on w when enabled.
func Start(w io.Writer, text string, enabled bool) *Spinner {
	s := &Spinner{}
	if !enabled {
		return s
	}
	p, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(true).
		WithShowTimer(true).
		Start(text)
	if err != nil {
		return s
	}
	s.printer = p
	return s
}

// Active reports whether the spinner is still running.
func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printer != nil
}

// Stop removes the spinner. Safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printer == nil {
		return
	}
	s.printer.Stop()
	s.printer = nil
}
