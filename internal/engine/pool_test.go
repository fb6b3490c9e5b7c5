package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestPool(workers, queueSize int) *Pool {
	return NewPool(PoolOptions{
		Workers:   workers,
		QueueSize: queueSize,
		Log:       zerolog.Nop(),
	})
}

func TestNewPool(t *testing.T) {
	p := newTestPool(4, 100)
	if p == nil {
		t.Fatal("NewPool returned nil")
	}
	if cap(p.jobs) != 100 {
		t.Errorf("queue capacity = %d, want 100", cap(p.jobs))
	}
	if p.Workers() != 4 || p.QueueSize() != 100 {
		t.Errorf("Workers/QueueSize = %d/%d, want 4/100", p.Workers(), p.QueueSize())
	}
}

func TestPool_EnqueueBeforeStart(t *testing.T) {
	p := newTestPool(2, 5)
	// Enqueue buffers fine before Start().
	if !p.Enqueue(Job{ID: uuid.New()}) {
		t.Error("Enqueue should return true when queue has space")
	}
}

func TestPool_EnqueueFull(t *testing.T) {
	p := newTestPool(0, 2) // 0 workers = nobody draining

	p.Enqueue(Job{ID: uuid.New()})
	p.Enqueue(Job{ID: uuid.New()})

	if p.Enqueue(Job{ID: uuid.New()}) {
		t.Error("Enqueue should return false when queue is full")
	}
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	p := newTestPool(1, 10)
	p.Start()
	p.Stop()

	if p.Enqueue(Job{ID: uuid.New()}) {
		t.Error("Enqueue should return false after Stop()")
	}
}

func TestPool_EnqueueSetsTimestamp(t *testing.T) {
	p := newTestPool(0, 5)

	p.Enqueue(Job{ID: uuid.New()})
	j := <-p.jobs
	if j.EnqueuedAt.IsZero() {
		t.Error("Enqueue should stamp EnqueuedAt when unset")
	}

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.Enqueue(Job{ID: uuid.New(), EnqueuedAt: stamp})
	j = <-p.jobs
	if !j.EnqueuedAt.Equal(stamp) {
		t.Errorf("EnqueuedAt = %v, want %v preserved", j.EnqueuedAt, stamp)
	}
}

func TestPool_Stats(t *testing.T) {
	p := newTestPool(0, 10) // 0 workers so nothing drains

	p.Enqueue(Job{ID: uuid.New()})
	p.Enqueue(Job{ID: uuid.New()})

	stats := p.Stats()
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if stats.Completed != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPool_StopDrains(t *testing.T) {
	p := newTestPool(2, 10)
	p.Start()

	// Stop should return promptly with no jobs queued.
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5 seconds")
	}
}
