package automation

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer sleeps a random human-like interval between page actions
type Pacer struct {
	min   time.Duration
	max   time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer drawing delays from [min, max]
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, sleep: sleepContext}
}

// NoPacing returns a pacer that never sleeps
func NoPacing() *Pacer {
	return &Pacer{sleep: func(context.Context, time.Duration) error { return nil }}
}

// Delay returns the next random delay
func (p *Pacer) Delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + rand.N(p.max-p.min+1)
}

// Pause sleeps for Delay or until ctx is done
func (p *Pacer) Pause(ctx context.Context) error {
	return p.sleep(ctx, p.Delay())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
