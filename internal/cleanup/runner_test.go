package cleanup

import (
	"context"
	"testing"
	"time"
)

func TestParseDailyNext(t *testing.T) {
	loc := time.UTC
	d, err := ParseDaily("03:30:00", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before", time.Date(2024, 5, 1, 1, 0, 0, 0, loc), time.Date(2024, 5, 1, 3, 30, 0, 0, loc)},
		{"exactly", time.Date(2024, 5, 1, 3, 30, 0, 0, loc), time.Date(2024, 5, 2, 3, 30, 0, 0, loc)},
		{"after", time.Date(2024, 5, 1, 23, 0, 0, 0, loc), time.Date(2024, 5, 2, 3, 30, 0, 0, loc)},
		{"month end", time.Date(2024, 5, 31, 12, 0, 0, 0, loc), time.Date(2024, 6, 1, 3, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Next(tt.now); !got.Equal(tt.want) {
				t.Fatalf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestParseDailyRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "25:00:00", "3:30", "noon"} {
		if _, err := ParseDaily(value, time.UTC); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestRunnerSweepsOnSchedule(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "scheduled")

	sweeps := make(chan Result, 4)
	runner := &Runner{
		Sweeper:    f.sweeper(nil),
		Schedule:   Every(time.Hour),
		Retention:  30 * time.Minute,
		RunAtStart: true,
		Clock:      f.clock,
		OnSweep:    func(r Result, _ error) { sweeps <- r },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	first := <-sweeps
	if first.Deleted != 0 {
		t.Fatalf("startup sweep should find nothing yet: %+v", first)
	}

	f.clock.WaitForWaiters(1)
	f.clock.Advance(time.Hour)

	second := <-sweeps
	if second.Deleted != 1 {
		t.Fatalf("scheduled sweep should delete the expired record: %+v", second)
	}

	f.clock.WaitForWaiters(1)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunnerRequiresSweeperAndSchedule(t *testing.T) {
	if err := (&Runner{}).Run(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}
