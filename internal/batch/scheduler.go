package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"photoport/internal/logging"
	"photoport/internal/memory"
	"photoport/internal/services"
)

// Pressure supplies forced memory samples. *memory.Monitor satisfies it.
type Pressure interface {
	Sample(ctx context.Context) memory.Sample
}

// Source yields items in discovery order. ok is false once exhausted.
type Source[T any] interface {
	Next(ctx context.Context) (item T, ok bool, err error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (T, bool, error)

// Next implements Source.
func (f SourceFunc[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

// SliceSource yields the elements of items in order.
func SliceSource[T any](items []T) Source[T] {
	i := 0
	return SourceFunc[T](func(context.Context) (T, bool, error) {
		var zero T
		if i >= len(items) {
			return zero, false, nil
		}
		i++
		return items[i-1], true, nil
	})
}

// CancelSignal is polled at batch boundaries.
type CancelSignal interface {
	Cancelled() bool
}

// Batch is one unit of work handed to the handler.
type Batch[T any] struct {
	Seq    int
	Items  []T
	Target int
	Level  memory.Level
}

// Handler processes one batch. A returned error aborts the run.
type Handler[T any] func(ctx context.Context, b Batch[T]) error

// Result summarizes a scheduler run.
type Result struct {
	Batches   int
	Items     int
	Smallest  int
	Largest   int
	Cancelled bool
	Elapsed   time.Duration
}

// Scheduler drives the batch loop. One Scheduler serves one run.
type Scheduler[T any] struct {
	policy   Policy
	pressure Pressure
	logger   *slog.Logger
}

// NewScheduler constructs a scheduler. pressure may be nil, in which case
// every boundary is treated as normal pressure.
func NewScheduler[T any](policy Policy, pressure Pressure, logger *slog.Logger) *Scheduler[T] {
	return &Scheduler[T]{
		policy:   policy.normalized(),
		pressure: pressure,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
}

// Policy returns the normalized policy.
func (s *Scheduler[T]) Policy() Policy { return s.policy }

// NextSize applies the sizing policy.
func (s *Scheduler[T]) NextSize(prev int, level memory.Level, elapsed time.Duration) int {
	return s.policy.NextSize(prev, level, elapsed)
}

// PauseFor returns the pause applied before a batch at level.
func (s *Scheduler[T]) PauseFor(level memory.Level) time.Duration {
	return s.policy.PauseFor(level)
}

// Run drains source through handle. Cancellation by cancel or ctx between
// batches ends the run with Result.Cancelled set and a nil error; only
// source and handler failures are returned as errors.
func (s *Scheduler[T]) Run(ctx context.Context, source Source[T], cancel CancelSignal, handle Handler[T]) (Result, error) {
	start := time.Now()
	var res Result
	finish := func(cancelled bool, err error) (Result, error) {
		res.Cancelled = cancelled
		res.Elapsed = time.Since(start)
		return res, err
	}

	size := 0
	var lastElapsed time.Duration
	for seq := 1; ; seq++ {
		if stopRequested(ctx, cancel) {
			s.logger.Info("batch loop cancelled at boundary",
				logging.Int(logging.FieldBatch, seq),
				logging.Int("processed", res.Items),
			)
			return finish(true, nil)
		}

		level := s.sample(ctx)
		if seq > 1 {
			if pause := s.policy.PauseFor(level); pause > 0 {
				if level >= memory.High {
					s.policy.Reclaim()
				}
				s.logger.Debug("pausing between batches",
					logging.String("level", level.String()),
					logging.Duration("pause", pause),
				)
				if err := s.policy.Wait(ctx, pause); err != nil {
					return finish(true, nil)
				}
			}
		}

		next := s.policy.NextSize(size, level, lastElapsed)
		if seq == 1 {
			next = s.firstSize(level)
		}
		if next != size && size != 0 {
			s.logger.Debug("batch size changed",
				logging.Args(logging.DecisionAttrs("batch_size", fmt.Sprint(next), level.String())...)...)
		}
		size = next

		items, exhausted, err := s.fill(ctx, source, size)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return finish(true, nil)
			}
			return finish(false, err)
		}
		if len(items) == 0 {
			return finish(false, nil)
		}

		batchCtx := services.WithBatch(ctx, seq)
		began := time.Now()
		if err := handle(batchCtx, Batch[T]{Seq: seq, Items: items, Target: size, Level: level}); err != nil {
			res.Batches++
			res.Items += len(items)
			return finish(false, err)
		}
		lastElapsed = time.Since(began)
		res.Batches++
		res.Items += len(items)
		if res.Smallest == 0 || len(items) < res.Smallest {
			res.Smallest = len(items)
		}
		if len(items) > res.Largest {
			res.Largest = len(items)
		}
		if exhausted {
			return finish(false, nil)
		}
	}
}

// firstSize starts at the initial size unless the first sample already
// shows pressure.
func (s *Scheduler[T]) firstSize(level memory.Level) int {
	if level == memory.Normal {
		return s.policy.Initial
	}
	return s.policy.NextSize(s.policy.Initial, level, 0)
}

func (s *Scheduler[T]) sample(ctx context.Context) memory.Level {
	if s.pressure == nil {
		return memory.Normal
	}
	return s.pressure.Sample(ctx).Level
}

func (s *Scheduler[T]) fill(ctx context.Context, source Source[T], size int) ([]T, bool, error) {
	items := make([]T, 0, size)
	for len(items) < size {
		item, ok, err := source.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return items, true, nil
		}
		items = append(items, item)
	}
	return items, false, nil
}

func stopRequested(ctx context.Context, cancel CancelSignal) bool {
	if ctx.Err() != nil {
		return true
	}
	return cancel != nil && cancel.Cancelled()
}
