package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flakyPinger struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (p *flakyPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("not ready")
	}
	return nil
}

func TestReadinessGate_RetriesUntilReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	g := NewReadinessGate(p, 5, time.Millisecond)

	if !g.Wait(context.Background()) {
		t.Fatal("expected gate to become ready")
	}
	if p.calls != 3 {
		t.Errorf("expected 3 pings, got %d", p.calls)
	}

	// Success is remembered
	g.Wait(context.Background())
	if p.calls != 3 {
		t.Errorf("expected no further pings once ready, got %d", p.calls)
	}
}

func TestReadinessGate_ProceedsWhenExhausted(t *testing.T) {
	p := &flakyPinger{failures: 100}
	g := NewReadinessGate(p, 3, time.Millisecond)

	ran := false
	err := g.Run(context.Background(), "test op", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("operation should run even when the backend never answered")
	}
	if p.calls != 3 {
		t.Errorf("expected exactly 3 pings, got %d", p.calls)
	}
	if g.Ready() {
		t.Error("gate should not be marked ready")
	}
}

func TestReadinessGate_RunReturnsOperationError(t *testing.T) {
	g := NewReadinessGate(&flakyPinger{}, 1, 0)
	boom := errors.New("boom")
	if err := g.Run(context.Background(), "test op", func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestReadinessGate_RunIgnoresCancellation(t *testing.T) {
	g := NewReadinessGate(&flakyPinger{}, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Run(ctx, "test op", func(ctx context.Context) error { return ctx.Err() })
	if err != nil {
		t.Fatalf("operation saw a cancelled context: %v", err)
	}
}
