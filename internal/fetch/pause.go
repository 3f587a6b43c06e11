package fetch

import (
	"context"
	"math/rand"
	"time"
)

// Rand supplies the randomness behind identity selection, the politeness
// delay, and the proxy-pruning coin flip. Tests inject a deterministic
// implementation to force either branch.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }
func (systemRand) Intn(n int) int   { return rand.Intn(n) }

// Pauser blocks for a delay, returning the context error if canceled first.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
