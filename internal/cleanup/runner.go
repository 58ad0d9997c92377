package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"imgproxy/internal/clock"
)

// Schedule decides when the next sweep runs.
type Schedule interface {
	Next(now time.Time) time.Time
}

// Every runs sweeps at a fixed interval.
type Every time.Duration

func (e Every) Next(now time.Time) time.Time {
	return now.Add(time.Duration(e))
}

// Daily runs one sweep per day at a wall-clock offset in loc.
type Daily struct {
	Offset time.Duration
	Loc    *time.Location
}

// ParseDaily parses an HH:MM:SS time of day.
func ParseDaily(value string, loc *time.Location) (Daily, error) {
	t, err := time.Parse(time.TimeOnly, value)
	if err != nil {
		return Daily{}, fmt.Errorf("invalid time of day %q (want HH:MM:SS)", value)
	}
	if loc == nil {
		loc = time.Local
	}
	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	return Daily{Offset: offset, Loc: loc}, nil
}

func (d Daily) Next(now time.Time) time.Time {
	loc := d.Loc
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := midnight.Add(d.Offset)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).Add(d.Offset)
	}
	return next
}

// Runner drives a Sweeper from a schedule until its context ends.
type Runner struct {
	Sweeper   *Sweeper
	Schedule  Schedule
	Retention time.Duration
	// RunAtStart performs one sweep before waiting for the first tick.
	RunAtStart bool
	Clock      clock.Clock
	Logger     *slog.Logger
	// OnSweep, when set, observes each finished sweep.
	OnSweep func(Result, error)
}

// Run blocks until ctx is done. Sweep errors are logged, never fatal.
func (r *Runner) Run(ctx context.Context) error {
	clk := r.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cleanup_runner")

	if r.Sweeper == nil || r.Schedule == nil {
		return fmt.Errorf("cleanup runner requires a sweeper and a schedule")
	}

	if r.RunAtStart {
		r.sweep(ctx, clk, logger)
	}

	for {
		now := clk.Now()
		next := r.Schedule.Next(now)
		wait := next.Sub(now)
		logger.Debug("next cleanup scheduled", "at", next.Format(time.RFC3339), "in", wait.String())

		select {
		case <-ctx.Done():
			return nil
		case <-clk.After(wait):
		}
		r.sweep(ctx, clk, logger)
	}
}

func (r *Runner) sweep(ctx context.Context, clk clock.Clock, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	result, err := r.Sweeper.Sweep(ctx, r.Retention, clk.Now(), false)
	if err != nil {
		logger.Warn("scheduled cleanup finished with errors", "failed", result.Failed, "error", err)
	}
	if r.OnSweep != nil {
		r.OnSweep(result, err)
	}
}
