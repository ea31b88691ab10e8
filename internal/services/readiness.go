package services

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

const (
	// DefaultReadyRetries and DefaultReadyDelay bound the wait before each
	// user data operation.
	DefaultReadyRetries = 5
	DefaultReadyDelay   = 100 * time.Millisecond

	// RecoveryReadyRetries and RecoveryReadyDelay are the longer budget the
	// recovery controller waits at startup.
	RecoveryReadyRetries = 15
	RecoveryReadyDelay   = 200 * time.Millisecond
)

// Pinger reports whether the remote backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessGate waits a bounded number of times for the backend before an
// operation runs. Once a ping succeeds the result is remembered and later
// calls go straight through. When every attempt fails the operation still
// runs and is left to fail on its own.
type ReadinessGate struct {
	pinger  Pinger
	retries int
	delay   time.Duration
	ready   atomic.Bool
}

func NewReadinessGate(p Pinger, retries int, delay time.Duration) *ReadinessGate {
	if retries <= 0 {
		retries = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &ReadinessGate{pinger: p, retries: retries, delay: delay}
}

// Wait returns true if the backend answered within the retry budget.
func (g *ReadinessGate) Wait(ctx context.Context) bool {
	if g.ready.Load() {
		return true
	}

	for attempt := 1; attempt <= g.retries; attempt++ {
		if err := g.pinger.Ping(ctx); err == nil {
			g.ready.Store(true)
			return true
		}
		if attempt == g.retries {
			break
		}
		timer := time.NewTimer(g.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}

	log.Printf("⚠️  readiness: backend not ready after %d attempts, proceeding anyway", g.retries)
	return false
}

// Run waits for readiness, then runs fn. fn is not cancelled with ctx; it
// runs until it returns or its own timeouts fire. Errors from fn are logged
// with the operation name and returned.
func (g *ReadinessGate) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	g.Wait(ctx)
	err := fn(ctx)
	if err != nil {
		log.Printf("%s: %v", op, err)
	}
	return err
}

// Ready reports whether a ping has succeeded before.
func (g *ReadinessGate) Ready() bool {
	return g.ready.Load()
}
