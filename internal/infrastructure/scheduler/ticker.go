package scheduler

import (
	"context"
	"time"

	"NewsRelay/internal/ports"
)

const defaultInterval = 10 * time.Second

// Ticker runs a job immediately and then once per interval.
type Ticker struct {
	interval time.Duration
	clock    ports.Clock
}

// NewTicker builds a ticker; a nil clock means the wall clock.
func NewTicker(interval time.Duration, clock ports.Clock) *Ticker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{interval: interval, clock: clock}
}

// Interval reports the effective polling period.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Run blocks until ctx is done. The interval is measured from the end of one
// job to the start of the next, so slow jobs never overlap.
func (t *Ticker) Run(ctx context.Context, job func(context.Context, time.Time)) error {
	if job == nil {
		return nil
	}
	trigger := t.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job(ctx, trigger)
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case trigger = <-t.clock.After(t.interval):
		}
	}
}
