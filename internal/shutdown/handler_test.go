package shutdown

import (
	"context"
	"testing"
	"time"
)

func TestShutdownRunsCleanupsInReverseOnce(t *testing.T) {
	h := New(context.Background())

	var order []int
	h.AddCleanup(func() { order = append(order, 1) })
	h.AddCleanup(func() { order = append(order, 2) })

	h.Shutdown()
	h.Shutdown()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("cleanup order = %v, want [2 1]", order)
	}
	if h.Context().Err() == nil {
		t.Error("context should be cancelled after Shutdown")
	}
}

func TestGoAndWait(t *testing.T) {
	h := New(context.Background())

	stopped := make(chan struct{})
	h.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	h.Shutdown()
	h.Wait()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not observe shutdown")
	}
}

func TestParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := New(parent)
	cancel()

	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("handler context should follow its parent")
	}
}

func TestListenThenShutdown(t *testing.T) {
	h := New(context.Background())
	h.Listen()
	h.Shutdown()

	if h.Context().Err() == nil {
		t.Error("context should be cancelled")
	}
}
