package memory

import (
	"context"
	"runtime"
)

// RuntimeSampler measures the Go runtime's resident footprint (memory
// obtained from the OS minus heap already returned to it).
type RuntimeSampler struct {
	budget uint64
	total  func() (uint64, error)
}

// NewRuntimeSampler returns a sampler measured against budget bytes. A zero
// budget measures against total system memory where the platform reports it.
func NewRuntimeSampler(budget uint64) *RuntimeSampler {
	return &RuntimeSampler{budget: budget, total: systemTotal}
}

// Sample implements Sampler.
func (s *RuntimeSampler) Sample(ctx context.Context) (uint64, uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	used := stats.Sys - stats.HeapReleased

	if s.budget > 0 {
		return used, s.budget, nil
	}
	total, err := s.total()
	if err != nil {
		return used, 0, err
	}
	return used, total, nil
}
