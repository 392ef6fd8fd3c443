package server

import (
	"context"
	"time"
)

// Loop calls step at a fixed rate with the measured wall time since the
// previous call, clamped to maxTicks intervals.
type Loop struct {
	interval time.Duration
	maxTicks int
	step     func(dt float64)
}

func NewLoop(interval time.Duration, maxTicks int, step func(dt float64)) *Loop {
	return &Loop{interval: interval, maxTicks: maxTicks, step: step}
}

// ClampDT bounds elapsed to maxTicks intervals so a stalled process does not
// replay an arbitrarily long gap in one step.
func ClampDT(elapsed, interval time.Duration, maxTicks int) float64 {
	if limit := interval * time.Duration(max(maxTicks, 1)); elapsed > limit {
		elapsed = limit
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Seconds()
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := ClampDT(now.Sub(last), l.interval, l.maxTicks)
			last = now
			l.step(dt)
		}
	}
}
