package utils

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SlowThreshold is the duration above which a timed operation is logged at warn level.
const SlowThreshold = 10 * time.Second

// Timer is a simple performance timer for measuring operation duration
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop stops the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	if duration > SlowThreshold {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected")
	}

	return duration
}

// StageTiming is the measured duration of one named stage.
type StageTiming struct {
	Stage      string  `json:"stage" msgpack:"stage"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
}

// Stopwatch records the durations of consecutive stages of one operation.
// It is safe for concurrent use.
//
// Usage:
//
//	sw := utils.NewStopwatch(log)
//	stop := sw.Start("estimate")
//	...
//	stop()
type Stopwatch struct {
	mu     sync.Mutex
	log    zerolog.Logger
	stages []StageTiming
}

// NewStopwatch creates an empty stopwatch.
func NewStopwatch(log zerolog.Logger) *Stopwatch {
	return &Stopwatch{log: log}
}

// Start times a stage and returns the function that ends it.
func (s *Stopwatch) Start(stage string) func() time.Duration {
	timer := NewTimer(stage, s.log)
	return func() time.Duration {
		d := timer.Stop()
		s.mu.Lock()
		s.stages = append(s.stages, StageTiming{
			Stage:      stage,
			DurationMS: float64(d.Microseconds()) / 1000,
		})
		s.mu.Unlock()
		return d
	}
}

// Timings returns the recorded stages in completion order.
func (s *Stopwatch) Timings() []StageTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StageTiming(nil), s.stages...)
}
