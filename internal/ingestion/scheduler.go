package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stakepool-monitor/internal/observability"
)

const (
	// DefaultScheduleSpec fires on the :00 and :30 second marks of every minute.
	DefaultScheduleSpec = "0,30 * * * * *"
	// DefaultInterval separates an aligned tick from the relative tick after it.
	DefaultInterval = 30 * time.Second
)

// Tick is one scheduler firing.
type Tick struct {
	Seq       uint64
	Scheduled time.Time
	// Aligned is true for ticks placed on a schedule boundary and false for
	// the relative tick one interval later.
	Aligned bool
}

// ParseSchedule parses a six-field cron spec (with seconds).
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler emits ticks in a repeating pair: one on the next schedule boundary,
// then one a fixed interval after it. The pair then re-aligns.
type Scheduler struct {
	boundary cron.Schedule
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// SchedulerOption configures Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the delay between an aligned tick and the following relative tick.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler aligned to boundary.
func NewScheduler(boundary cron.Schedule, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		boundary: boundary,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextDelay returns the wait from now until the next boundary.
// With the default schedule and a whole-second now this is (30-s)s for s < 30, else (60-s)s.
func (s *Scheduler) NextDelay(now time.Time) time.Duration {
	return s.boundary.Next(now).Sub(now)
}

// Run emits ticks until ctx is cancelled, then closes the returned channel.
// Delivery only waits for the consumer to receive, never for work done on a tick.
func (s *Scheduler) Run(ctx context.Context) <-chan Tick {
	ticks := make(chan Tick)

	go func() {
		defer close(ticks)

		var (
			seq  uint64
			last time.Time
		)
		aligned := true

		for {
			now := s.now()
			var at time.Time
			if aligned {
				// Re-align after the last tick even if the clock stepped back.
				from := now
				if from.Before(last) {
					from = last
				}
				at = s.boundary.Next(from)
			} else {
				at = last.Add(s.interval)
			}

			timer := time.NewTimer(at.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info("scheduler stopped", zap.Uint64("ticks", seq))
				return
			case <-timer.C:
			}

			seq++
			tick := Tick{Seq: seq, Scheduled: at, Aligned: aligned}
			observability.RecordTick(aligned)

			select {
			case ticks <- tick:
			case <-ctx.Done():
				s.logger.Info("scheduler stopped", zap.Uint64("ticks", seq))
				return
			}

			last = at
			aligned = !aligned
		}
	}()

	return ticks
}
