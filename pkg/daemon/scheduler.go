package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultLead          = 5 * time.Minute
	defaultRetries       = 30
	defaultRetryInterval = 10 * time.Second
)

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Hooks are the callbacks of a Scheduler. Upcoming, Failed and Run are called
// on their own goroutines; Ready is called on the scheduler's.
type Hooks struct {
	// Run starts the scheduled job.
	Run func() error
	// Ready gates Run. A failing check is retried before the run is given up.
	Ready func() error
	// Upcoming announces a run Lead before it is due.
	Upcoming func(at time.Time)
	// Failed receives failed checks and failed runs.
	Failed func(err error)
}

// Scheduler fires Hooks.Run at the activations of a cron schedule.
type Scheduler struct {
	Lead          time.Duration
	Retries       int
	RetryInterval time.Duration

	hooks Hooks

	mu      sync.Mutex
	spec    cron.Schedule
	next    time.Time
	running bool
	quit    chan struct{}
	wake    chan struct{}
}

func NewScheduler(hooks Hooks) *Scheduler {
	if hooks.Run == nil {
		panic("scheduler needs a run hook")
	}
	return &Scheduler{
		Lead:          defaultLead,
		Retries:       defaultRetries,
		RetryInterval: defaultRetryInterval,
		hooks:         hooks,
		wake:          make(chan struct{}, 1),
	}
}

// NextRuns returns the next n activations of cronExpr after from.
func NextRuns(cronExpr string, from time.Time, n int) ([]time.Time, error) {
	spec, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		from = spec.Next(from)
		runs = append(runs, from)
	}
	return runs, nil
}

// Schedule replaces the schedule. The next run is recomputed from now.
func (s *Scheduler) Schedule(cronExpr string) error {
	spec, err := cronParser.Parse(cronExpr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.spec = spec
	s.next = spec.Next(time.Now())
	s.mu.Unlock()
	s.poke()
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.quit = make(chan struct{})
	go s.loop(s.quit)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.quit)
}

// Postpone moves the next run later by d. The new time must stay before the
// activation that follows it.
func (s *Scheduler) Postpone(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("postpone duration must be positive")
	}

	s.mu.Lock()
	if !s.running || s.spec == nil || s.next.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to postpone")
	}
	postponed := s.next.Add(d).Truncate(time.Second)
	if !postponed.Before(s.spec.Next(s.next).Truncate(time.Second)) {
		s.mu.Unlock()
		return fmt.Errorf("postpone duration too long")
	}
	s.next = postponed
	s.mu.Unlock()

	s.poke()
	return nil
}

// Skip drops the next run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.spec == nil || s.next.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to skip")
	}
	s.next = s.spec.Next(s.next)
	s.mu.Unlock()

	s.poke()
	return nil
}

func (s *Scheduler) Status() (next time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.running
}

func (s *Scheduler) nextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// poke wakes the loop so it re-reads the next run.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// advance moves past run unless the next run was changed meanwhile.
func (s *Scheduler) advance(run time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spec != nil && s.next.Equal(run) {
		s.next = s.spec.Next(run)
	}
}

func (s *Scheduler) loop(quit <-chan struct{}) {
	logrus.Debug("scheduler started")
	defer logrus.Debug("scheduler stopped")

	var (
		announced time.Time // run already announced through Upcoming
		pending   time.Time // run the retry state below belongs to
		attempts  int
		retryAt   time.Time
		lastErr   string
	)

	for {
		next := s.nextRun()
		if !next.Equal(pending) {
			pending, attempts, retryAt, lastErr = next, 0, time.Time{}, ""
		}

		var (
			at       time.Time
			announce bool
			fire     <-chan time.Time
			timer    *time.Timer
		)
		switch {
		case next.IsZero():
		case !announced.Equal(next):
			at, announce = next.Add(-s.Lead), true
		case !retryAt.IsZero():
			at = retryAt
		default:
			at = next
		}
		if !next.IsZero() {
			timer = time.NewTimer(nonNegative(time.Until(at)))
			fire = timer.C
		}

		select {
		case <-quit:
			stopTimer(timer)
			return
		case <-s.wake:
			stopTimer(timer)
			continue
		case <-fire:
		}

		// A change that raced with the timer wins.
		if !s.nextRun().Equal(next) {
			continue
		}

		if announce {
			announced = next
			logrus.WithField("at", next.Format(time.DateTime)).Debug("scheduled run upcoming")
			s.upcoming(next)
			continue
		}

		if s.hooks.Ready != nil {
			if err := s.hooks.Ready(); err != nil {
				if err.Error() != lastErr {
					lastErr = err.Error()
					s.failed(fmt.Errorf("precheck failed: %w", err))
				}
				attempts++
				if attempts <= s.Retries {
					logrus.Debugf("precheck failed (%d/%d): %v; retrying in %s", attempts, s.Retries, err, s.RetryInterval)
					retryAt = time.Now().Add(s.RetryInterval)
					continue
				}
				logrus.WithField("at", next.Format(time.DateTime)).Warn("scheduled run given up")
				s.advance(next)
				continue
			}
		}

		logrus.WithField("at", next.Format(time.DateTime)).Debug("running scheduled job")
		go func() {
			if err := s.hooks.Run(); err != nil {
				s.failed(fmt.Errorf("task failed: %w", err))
			}
		}()
		s.advance(next)
	}
}

func (s *Scheduler) upcoming(at time.Time) {
	if s.hooks.Upcoming != nil {
		go s.hooks.Upcoming(at)
	}
}

func (s *Scheduler) failed(err error) {
	if s.hooks.Failed != nil {
		go s.hooks.Failed(err)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func nonNegative(d time.Duration) time.Duration {
	return max(d, 0)
}
