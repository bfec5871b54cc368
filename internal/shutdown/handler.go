// Package shutdown coordinates signal handling and cleanup for the CLI and
// the web server.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler manages graceful shutdown
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	cleanupFns []func()
	mu         sync.Mutex
	once       sync.Once
	stop       func()
}

// New creates a new shutdown handler derived from parent.
func New(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the shutdown context
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers a cleanup function to be called on shutdown.
// Cleanups run in reverse registration order.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Listen starts listening for SIGINT and SIGTERM. A second signal is left to
// the default handler so a stuck cleanup can still be interrupted.
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	h.mu.Lock()
	h.stop = func() {
		signal.Stop(sigChan)
		close(done)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-sigChan:
			signal.Stop(sigChan)
			h.Shutdown()
		case <-done:
		}
	}()
}

// Shutdown cancels the context and runs cleanups. Safe to call more than once.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		fns := h.cleanupFns
		stop := h.stop
		h.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
		if stop != nil {
			stop()
		}
	})
}

// Go runs fn in a goroutine tracked by Wait.
func (h *Handler) Go(fn func(ctx context.Context)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn(h.ctx)
	}()
}

// Wait waits for all work started with Go to complete
func (h *Handler) Wait() {
	h.wg.Wait()
}
