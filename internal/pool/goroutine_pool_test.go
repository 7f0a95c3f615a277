package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoroutinePool_SubmitWaitRunsTask(t *testing.T) {
	p := NewGoroutinePool(DefaultGoroutinePoolConfig())
	defer p.Close()

	var ran atomic.Bool
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("SubmitWait() error = %v", err)
	}
	if !ran.Load() {
		t.Error("expected task to run")
	}

	// The completed counter is bumped just after the result is delivered,
	// so allow it a moment to settle before asserting on it.
	time.Sleep(10 * time.Millisecond)
	stats := p.Stats()
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
}

func TestGoroutinePool_SubmitWaitPropagatesTaskError(t *testing.T) {
	p := NewGoroutinePool(DefaultGoroutinePoolConfig())
	defer p.Close()

	wantErr := errors.New("probe failed")
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("SubmitWait() error = %v, want %v", err, wantErr)
	}

	time.Sleep(10 * time.Millisecond)
	stats := p.Stats()
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}

func TestGoroutinePool_SubmitAfterCloseFails(t *testing.T) {
	p := NewGoroutinePool(DefaultGoroutinePoolConfig())
	p.Close()

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit() after Close() error = %v, want ErrPoolClosed", err)
	}
}

func TestGoroutinePool_SubmitWaitRespectsContextCancellation(t *testing.T) {
	// No workers can ever be spawned, and the queue is unbuffered, so any
	// submission can only be unblocked by the context expiring.
	cfg := GoroutinePoolConfig{MaxWorkers: 0, QueueSize: 0}
	p := NewGoroutinePool(cfg)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.SubmitWait(ctx, func(ctx context.Context) error { return nil })

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SubmitWait() error = %v, want context.DeadlineExceeded", err)
	}
}
