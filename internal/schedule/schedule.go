// Package schedule bounds how many extraction units run at once.
//
// The gate is a counting semaphore: a unit must place a token in the channel
// before running and removes it when done. Release is deferred, so it happens
// exactly once per unit whether the unit returns, fails, or panics.
package schedule

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultLimit is the gate capacity when none is configured.
const DefaultLimit = 5

// Gate runs independent units with bounded concurrency.
type Gate struct {
	// Limit is the maximum number of units in flight. <= 0 means
	// DefaultLimit.
	Limit int

	// Logger receives panic reports. nil means slog.Default().
	Logger *slog.Logger

	// OnPanic is called after a unit's panic has been recovered and its
	// gate slot released. The index identifies the unit.
	OnPanic func(i int, v any)
}

// Run invokes unit(ctx, i) exactly once for every i in [0, n) and returns
// only after all of them have finished. At most Limit units hold the gate at
// any instant. When ctx is cancelled, units that have not yet been admitted
// are still invoked, sequentially, with the dead context: they observe the
// cancellation at their first suspension point and record it, so the caller
// ends up with one result per input either way.
func (g *Gate) Run(ctx context.Context, n int, unit func(ctx context.Context, i int)) {
	limit := g.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := range n {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			g.invoke(ctx, i, unit)
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			g.invoke(ctx, i, unit)
		}(i)
	}

	wg.Wait()
}

func (g *Gate) invoke(ctx context.Context, i int, unit func(context.Context, int)) {
	defer func() {
		if v := recover(); v != nil {
			log := g.Logger
			if log == nil {
				log = slog.Default()
			}
			log.Error("schedule: unit panicked",
				"unit", i,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			if g.OnPanic != nil {
				g.OnPanic(i, v)
			}
		}
	}()
	unit(ctx, i)
}
