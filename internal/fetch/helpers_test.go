package fetch

import (
	"context"
	"sync"
	"time"
)

// fixedRand returns scripted values so tests can force the proxy-removal
// coin flip and pin the politeness delay.
type fixedRand struct {
	float64Val float64
	intnVal    int
}

func (r fixedRand) Float64() float64 { return r.float64Val }
func (r fixedRand) Intn(int) int     { return r.intnVal }

// recordingPauser records requested delays without sleeping.
type recordingPauser struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *recordingPauser) Pause(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses = append(p.pauses, delay)
	return nil
}

func (p *recordingPauser) recorded() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Duration, len(p.pauses))
	copy(out, p.pauses)
	return out
}
