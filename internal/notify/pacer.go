package notify

import (
	"context"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/clock"
)

// Pacer enforces a minimum spacing between consecutive sends. It is not safe
// for concurrent use; the Dispatcher only touches it under its send lock.
type Pacer struct {
	clock    clock.Clock
	interval time.Duration
	last     time.Time
}

// NewPacer returns a Pacer spacing sends at least interval apart.
func NewPacer(c clock.Clock, interval time.Duration) *Pacer {
	if c == nil {
		c = clock.System{}
	}
	return &Pacer{clock: c, interval: interval}
}

// Wait sleeps for whatever remains of the interval since the last Mark.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.last.IsZero() {
		return ctx.Err()
	}
	remaining := p.interval - p.clock.Now().Sub(p.last)
	if remaining <= 0 {
		return ctx.Err()
	}
	return p.clock.Sleep(ctx, remaining)
}

// Mark records a completed send.
func (p *Pacer) Mark() {
	p.last = p.clock.Now()
}
