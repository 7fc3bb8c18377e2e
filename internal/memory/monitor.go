package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"photoport/internal/logging"
)

// Sampler reports current usage and the total available, in bytes.
type Sampler interface {
	Sample(ctx context.Context) (used, total uint64, err error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(ctx context.Context) (used, total uint64, err error)

// Sample implements Sampler.
func (f SamplerFunc) Sample(ctx context.Context) (uint64, uint64, error) { return f(ctx) }

// Sample is one observation.
type Sample struct {
	Used  uint64
	Total uint64
	Ratio float64
	Level Level
	At    time.Time
	Err   error
}

// Change describes a level transition.
type Change struct {
	From   Level
	To     Level
	Sample Sample
}

// Monitor tracks the pressure level. All state changes happen under one
// mutex; transitions are announced exactly once each.
type Monitor struct {
	sampler    Sampler
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time

	// sampleMu serializes whole samples so transitions are delivered in order.
	sampleMu sync.Mutex

	mu        sync.Mutex
	level     Level
	current   Sample
	peak      uint64
	listeners []func(Change)

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor constructs a monitor. Invalid thresholds fall back to the defaults.
func NewMonitor(sampler Sampler, thresholds Thresholds, logger *slog.Logger) *Monitor {
	logger = logging.NewComponentLogger(logger, "memory")
	if err := thresholds.Validate(); err != nil {
		logger.Warn("invalid pressure thresholds; using defaults",
			logging.String(logging.FieldEventType, "thresholds_invalid"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [memory] thresholds"),
			logging.String(logging.FieldImpact, "default thresholds apply"),
		)
		thresholds = DefaultThresholds
	}
	return &Monitor{sampler: sampler, thresholds: thresholds, logger: logger, now: time.Now}
}

// OnChange registers fn for level transitions. fn runs synchronously on the
// sampling goroutine and must not call Sample.
func (m *Monitor) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Sample takes a forced sample and returns it. A failing sampler yields a
// Critical sample carrying the error.
func (m *Monitor) Sample(ctx context.Context) Sample {
	m.sampleMu.Lock()
	defer m.sampleMu.Unlock()

	s := Sample{At: m.now()}
	if m.sampler == nil {
		s.Err = errors.New("no memory sampler")
	} else {
		s.Used, s.Total, s.Err = m.sampler.Sample(ctx)
	}
	if s.Err == nil && s.Total == 0 {
		s.Err = errors.New("total memory unknown")
	}
	if s.Err != nil {
		s.Level = Critical
	} else {
		s.Ratio = float64(s.Used) / float64(s.Total)
		s.Level = Classify(s.Ratio, m.thresholds)
	}

	m.mu.Lock()
	from := m.level
	changed := s.Level != from
	m.level = s.Level
	m.current = s
	if s.Err == nil && s.Used > m.peak {
		m.peak = s.Used
	}
	var listeners []func(Change)
	if changed {
		listeners = append(listeners, m.listeners...)
	}
	m.mu.Unlock()

	if s.Err != nil {
		m.logger.Debug("memory sample failed", logging.Error(s.Err))
	}
	if changed {
		m.logger.Info("memory pressure changed",
			logging.String("from", from.String()),
			logging.String("to", s.Level.String()),
			logging.String("used", humanize.IBytes(s.Used)),
			logging.String("total", humanize.IBytes(s.Total)),
			logging.Float64("ratio", s.Ratio),
		)
		change := Change{From: from, To: s.Level, Sample: s}
		for _, fn := range listeners {
			fn(change)
		}
	}
	return s
}

// Level returns the level of the latest sample.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Current returns the latest sample.
func (m *Monitor) Current() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Peak returns the highest usage observed since construction or ResetPeak.
func (m *Monitor) Peak() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// ResetPeak clears the peak to the current usage.
func (m *Monitor) ResetPeak() {
	m.mu.Lock()
	m.peak = m.current.Used
	m.mu.Unlock()
}

// Start samples every interval until Stop or ctx is done. Calling Start on
// a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, interval, m.done)
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}

// Stop halts periodic sampling and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
