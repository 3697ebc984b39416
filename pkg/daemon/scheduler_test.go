package daemon

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noop() error { return nil }

// forceNext makes the next run due after d without touching the schedule.
func forceNext(s *Scheduler, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = time.Now().Add(d)
	return s.next
}

func TestNextRuns(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs, err := NextRuns("0 3 * * *", from, 3)
	if err != nil {
		t.Fatalf("NextRuns returned error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, r := range runs {
		want := time.Date(2024, 1, 1+i, 3, 0, 0, 0, time.UTC)
		if !r.Equal(want) {
			t.Errorf("run %d = %v, want %v", i, r, want)
		}
	}

	every, err := NextRuns("@every 10m", from, 2)
	if err != nil {
		t.Fatalf("NextRuns(@every) returned error: %v", err)
	}
	if got := every[1].Sub(every[0]); got != 10*time.Minute {
		t.Fatalf("@every 10m runs are %s apart", got)
	}

	for _, expr := range []string{"not a cron", "61 * * * *", ""} {
		if _, err := NextRuns(expr, from, 1); err == nil {
			t.Errorf("NextRuns(%q) should fail", expr)
		}
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(Hooks{Run: noop})

	if next, _ := s.Status(); !next.IsZero() {
		t.Fatalf("next run should be unset before scheduling, got %v", next)
	}
	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	next, running := s.Status()
	if running {
		t.Fatalf("scheduler should not be running")
	}
	if next.IsZero() {
		t.Fatalf("next run should be set after scheduling")
	}
	if err := s.Schedule("bogus"); err == nil {
		t.Fatalf("Schedule should reject an invalid expression")
	}
	if again, _ := s.Status(); !again.Equal(next) {
		t.Fatalf("a rejected expression must not change the next run")
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := NewScheduler(Hooks{Run: noop})
	if err := s.Skip(); err == nil {
		t.Fatalf("expected error when nothing is scheduled")
	}
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	orig, _ := s.Status()

	s.Start()
	defer s.Stop()

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}
	skipped, _ := s.Status()
	if got := skipped.Sub(orig); got != 10*time.Minute {
		t.Fatalf("skip moved the next run by %s, want 10m", got)
	}
}

func TestSchedulerRunCycle(t *testing.T) {
	upcoming := make(chan time.Time, 1)
	ran := make(chan struct{}, 1)
	failed := make(chan error, 1)
	var checks atomic.Int32

	s := NewScheduler(Hooks{
		Run: func() error {
			ran <- struct{}{}
			return nil
		},
		Ready: func() error {
			checks.Add(1)
			return nil
		},
		Upcoming: func(at time.Time) { upcoming <- at },
		Failed:   func(err error) { failed <- err },
	})
	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	due := forceNext(s, 50*time.Millisecond)

	s.Start()
	defer s.Stop()

	select {
	case at := <-upcoming:
		if !at.Equal(due) {
			t.Fatalf("announced %v, want %v", at, due)
		}
	case <-time.After(time.Second):
		t.Fatalf("run was not announced in time")
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run in time")
	}

	if checks.Load() == 0 {
		t.Fatalf("precheck should have been executed")
	}
	if next, _ := s.Status(); !next.After(due) {
		t.Fatalf("next run should advance past %v, got %v", due, next)
	}

	select {
	case err := <-failed:
		t.Fatalf("unexpected failure: %v", err)
	default:
	}
}

func TestSchedulerPreCheckFailure(t *testing.T) {
	ran := make(chan struct{}, 1)
	failed := make(chan error, 4)
	var checks atomic.Int32

	s := NewScheduler(Hooks{
		Run: func() error {
			ran <- struct{}{}
			return nil
		},
		Ready: func() error {
			checks.Add(1)
			return errors.New("boom")
		},
		Failed: func(err error) { failed <- err },
	})
	s.Lead = 0
	s.Retries = 2
	s.RetryInterval = 10 * time.Millisecond
	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	due := forceNext(s, 20*time.Millisecond)

	s.Start()
	defer s.Stop()

	select {
	case err := <-failed:
		if err == nil {
			t.Fatalf("expected an error")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a failure from the precheck")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if next, _ := s.Status(); next.After(due) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run should be given up after the retries")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := checks.Load(); got != 3 {
		t.Fatalf("precheck ran %d times, want 3", got)
	}
	select {
	case <-ran:
		t.Fatalf("job should not run when the precheck fails")
	default:
	}
	// The same error is reported once.
	if len(failed) != 0 {
		t.Fatalf("repeated precheck errors should not be reported again")
	}
}

func TestSchedulerRestart(t *testing.T) {
	s := NewScheduler(Hooks{Run: noop})
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	s.Start()
	s.Stop()
	if _, running := s.Status(); running {
		t.Fatalf("scheduler should be stopped")
	}

	s.Start()
	defer s.Stop()
	if _, running := s.Status(); !running {
		t.Fatalf("scheduler should run again after restart")
	}
}

func TestSchedulerPostpone(t *testing.T) {
	s := NewScheduler(Hooks{Run: noop})
	if err := s.Postpone(time.Minute); err == nil {
		t.Fatalf("expected error when nothing is scheduled")
	}

	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if err := s.Postpone(time.Minute); err == nil {
		t.Fatalf("expected error when the scheduler is not running")
	}
	s.Start()
	defer s.Stop()

	orig, _ := s.Status()
	if err := s.Postpone(10 * time.Minute); err != nil {
		t.Fatalf("Postpone returned error: %v", err)
	}
	next, _ := s.Status()
	if !next.After(orig) {
		t.Fatalf("expected postpone to move the next run, got %v <= %v", next, orig)
	}

	if err := s.Postpone(2 * time.Hour); err == nil {
		t.Fatalf("expected error when postponing past the following run")
	}
	if err := s.Postpone(0); err == nil {
		t.Fatalf("expected error for non-positive duration")
	}
}
