package batch

import (
	"context"
	"math"
	"runtime/debug"
	"time"

	"photoport/internal/memory"
)

// Policy bounds and paces batch sizing.
type Policy struct {
	Floor   int
	Initial int
	Max     int
	// Growth multiplies the size after a batch at normal pressure.
	Growth float64
	// Pause is the base inter-batch pause at medium pressure; high and
	// critical pressure wait two and four times as long. Normal pressure
	// never pauses.
	Pause time.Duration
	// MaxBatchDuration stops growth after a batch that ran longer. Zero
	// disables the check.
	MaxBatchDuration time.Duration
	// Reclaim runs during pauses at high or critical pressure. Defaults to
	// debug.FreeOSMemory.
	Reclaim func()
	// Wait sleeps for d or until ctx is done. Defaults to a timer.
	Wait func(ctx context.Context, d time.Duration) error
}

func (p Policy) normalized() Policy {
	if p.Floor < 1 {
		p.Floor = 1
	}
	if p.Max < p.Floor {
		p.Max = p.Floor
	}
	p.Initial = clamp(p.Initial, p.Floor, p.Max)
	if p.Growth < 1 {
		p.Growth = 1
	}
	if p.Reclaim == nil {
		p.Reclaim = debug.FreeOSMemory
	}
	if p.Wait == nil {
		p.Wait = waitTimer
	}
	return p
}

// shrink factors per level; critical drops straight to the floor.
var shrinkFactor = map[memory.Level]float64{
	memory.Medium: 0.75,
	memory.High:   0.5,
}

// pauseMultiplier per level.
var pauseMultiplier = map[memory.Level]time.Duration{
	memory.Medium:   1,
	memory.High:     2,
	memory.Critical: 4,
}

// NextSize returns the batch size to use after a batch of prev items that
// took elapsed, given the current level. The result is always within
// [Floor, Max].
func (p Policy) NextSize(prev int, level memory.Level, elapsed time.Duration) int {
	p = p.normalized()
	if prev < 1 {
		prev = p.Initial
	}
	var next int
	switch level {
	case memory.Normal:
		if p.MaxBatchDuration > 0 && elapsed > p.MaxBatchDuration {
			next = prev
			break
		}
		next = int(math.Ceil(float64(prev) * p.Growth))
		if p.Growth > 1 && next <= prev {
			next = prev + 1
		}
	case memory.Medium, memory.High:
		next = int(math.Floor(float64(prev) * shrinkFactor[level]))
	default:
		next = p.Floor
	}
	return clamp(next, p.Floor, p.Max)
}

// PauseFor returns the inter-batch pause for level.
func (p Policy) PauseFor(level memory.Level) time.Duration {
	if p.Pause <= 0 {
		return 0
	}
	return p.Pause * pauseMultiplier[level]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
