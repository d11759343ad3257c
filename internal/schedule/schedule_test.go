package schedule_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/vtx/internal/schedule"
)

func TestRunHonorsLimit(t *testing.T) {
	g := &schedule.Gate{Limit: 2}

	var mu sync.Mutex
	inFlight, maxInFlight, done := 0, 0, 0

	g.Run(context.Background(), 5, func(ctx context.Context, i int) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		done++
		mu.Unlock()
	})

	if maxInFlight > 2 {
		t.Fatalf("max in flight = %d, want <= 2", maxInFlight)
	}
	if done != 5 {
		t.Fatalf("done = %d, want 5", done)
	}
	if inFlight != 0 {
		t.Fatalf("in flight after Run = %d, want 0", inFlight)
	}
}

func TestRunInvokesEachUnitOnce(t *testing.T) {
	g := &schedule.Gate{Limit: 3}

	const n = 20
	counts := make([]int32, n)
	g.Run(context.Background(), n, func(ctx context.Context, i int) {
		atomic.AddInt32(&counts[i], 1)
	})

	for i, c := range counts {
		if c != 1 {
			t.Fatalf("unit %d invoked %d times, want 1", i, c)
		}
	}
}

func TestRunRecoversPanics(t *testing.T) {
	var panicked atomic.Int32
	g := &schedule.Gate{
		Limit:   1,
		OnPanic: func(i int, v any) { panicked.Add(1) },
	}

	var done atomic.Int32
	g.Run(context.Background(), 3, func(ctx context.Context, i int) {
		if i == 1 {
			panic("boom")
		}
		done.Add(1)
	})

	if panicked.Load() != 1 {
		t.Fatalf("panics recorded = %d, want 1", panicked.Load())
	}
	// With Limit 1, units 0 and 2 only run if the panicking unit released
	// its slot.
	if done.Load() != 2 {
		t.Fatalf("completed units = %d, want 2", done.Load())
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &schedule.Gate{Limit: 2}

	var invoked atomic.Int32
	var sawDeadCtx atomic.Int32
	g.Run(ctx, 4, func(ctx context.Context, i int) {
		invoked.Add(1)
		if ctx.Err() != nil {
			sawDeadCtx.Add(1)
		}
	})

	// Every unit still runs so the caller gets one result per input.
	if invoked.Load() != 4 {
		t.Fatalf("invoked = %d, want 4", invoked.Load())
	}
	if sawDeadCtx.Load() != 4 {
		t.Fatalf("units seeing cancelled ctx = %d, want 4", sawDeadCtx.Load())
	}
}

func TestRunZeroUnits(t *testing.T) {
	g := &schedule.Gate{}
	done := make(chan struct{})
	go func() {
		g.Run(context.Background(), 0, func(ctx context.Context, i int) {
			t.Error("unit invoked for n = 0")
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for n = 0")
	}
}

func TestRunDefaultLimit(t *testing.T) {
	// Zero-value Gate must still make progress.
	g := &schedule.Gate{}
	var done atomic.Int32
	g.Run(context.Background(), 12, func(ctx context.Context, i int) {
		done.Add(1)
	})
	if done.Load() != 12 {
		t.Fatalf("done = %d, want 12", done.Load())
	}
}
