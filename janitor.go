package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically invokes Store.Sweep on a fixed interval. It never
// holds any Store lock across a full sweep — Sweep itself only takes brief
// per-shard locks — and it never runs two sweeps concurrently: a slow sweep
// simply coalesces any ticks that land while it's still running, the same
// way a time.Ticker drops ticks nobody received.
type Janitor struct {
	store    *Store
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor builds a Janitor that sweeps store every interval.
func NewJanitor(store *Store, interval time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{store: store, interval: interval, logger: logger}
}

// Run drives the sweep loop until ctx is canceled. On cancellation, Run
// finishes any in-flight sweep and then returns — it never abandons a
// sweep partway through.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := j.store.Sweep()
			if removed > 0 {
				j.logger.Debug().Int("evicted", removed).Msg("janitor sweep removed expired entries")
			}
		}
	}
}
