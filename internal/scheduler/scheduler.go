// Package scheduler runs the periodic price sweep that complements monitor webhooks.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper schedules a scan of every tracked product and reports how many were queued.
type Sweeper interface {
	EnqueueAll() int
}

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// AlignToBucket fires on wall-clock multiples of Interval instead of Interval after start.
	AlignToBucket bool
	StartupDelay  time.Duration
	// SweepOnStart runs one sweep as soon as the startup delay elapses.
	SweepOnStart bool
}

// Scheduler drives periodic sweeps.
type Scheduler struct {
	opts    Options
	sweeper Sweeper
	logger  zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, sweeper Sweeper, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	if sweeper == nil {
		return nil, errors.New("scheduler requires a sweeper")
	}
	return &Scheduler{
		opts:    opts,
		sweeper: sweeper,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run blocks, sweeping at each interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.SweepOnStart {
		s.sweep(time.Now().UTC())
	}

	next := s.nextTick(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_sweep", next).Msg("waiting for next sweep")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.sweep(s.bucketStart(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) sweep(bucket time.Time) {
	n := s.sweeper.EnqueueAll()
	s.logger.Info().Time("bucket", bucket).Int("products", n).Msg("scheduled sweep queued")
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) bucketStart(t time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
