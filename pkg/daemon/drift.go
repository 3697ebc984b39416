package daemon

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/controller"
	"github.com/charlie0129/dispcal/pkg/events"
)

// runDriftCheck starts an evaluation of the configured drift check targets
// against the published model.
func (s *server) runDriftCheck() error {
	targets := s.conf.DriftCheckTargets()
	target, meter := s.hardware()
	req := calibration.EvaluationRequest{
		Options: calibration.Options{ShowAlignmentPattern: s.conf.ShowAlignmentPattern()},
		Targets: targets,
	}
	if err := s.ctrl.StartEvaluation(target, meter, req, nil); err != nil {
		s.hub.Publish(events.DriftCheck, events.DriftCheckEvent{
			Started: false,
			Message: fmt.Sprintf("Drift check not started: %v", err),
			Ts:      time.Now().Unix(),
		})
		return err
	}

	logrus.WithField("targets", len(targets)).Info("drift check started")
	s.hub.Publish(events.DriftCheck, events.DriftCheckEvent{
		Started: true,
		Message: fmt.Sprintf("Drift check started with %d targets", len(targets)),
		Ts:      time.Now().Unix(),
	})
	go s.reportDriftCheck()
	return nil
}

func (s *server) reportDriftCheck() {
	out := s.ctrl.Wait()
	if out.Task != calibration.TaskEvaluation || out.State != calibration.StateCompleted {
		logrus.WithFields(logrus.Fields{
			"state": out.State,
			"error": out.Error,
		}).Warn("drift check did not complete")
		return
	}

	worst, sum := 0.0, 0.0
	rows := s.ctrl.Artifacts().Evaluation
	for _, r := range rows {
		sum += r.DeltaE
		worst = max(worst, r.DeltaE)
	}
	mean := 0.0
	if len(rows) > 0 {
		mean = sum / float64(len(rows))
	}
	logrus.WithFields(logrus.Fields{
		"targets":   len(rows),
		"meanDelta": fmt.Sprintf("%.2f", mean),
		"maxDelta":  fmt.Sprintf("%.2f", worst),
	}).Info("drift check finished")
}

// driftPreCheck holds a scheduled run back while the controller is busy or
// there is no model to evaluate.
func (s *server) driftPreCheck() error {
	if st := s.ctrl.Status(); st.State.Busy() {
		return controller.ErrTaskInProgress
	}
	if s.ctrl.Model() == nil {
		return controller.ErrNoDeviceModel
	}
	return nil
}

func (s *server) onDriftUpcoming(at time.Time) {
	logrus.WithField("at", at.Format(time.DateTime)).Info("drift check upcoming")
}

func (s *server) onDriftError(err error) {
	logrus.WithError(err).Warn("scheduled drift check failed")
	s.hub.Publish(events.DriftCheck, events.DriftCheckEvent{
		Started: false,
		Message: err.Error(),
		Ts:      time.Now().Unix(),
	})
}

// applySchedule arms the scheduler from the config, or stops it when drift
// checks are disabled.
func (s *server) applySchedule() error {
	cronExpr := s.conf.DriftCheckCron()
	if cronExpr == "" {
		s.scheduler.Stop()
		return nil
	}
	if err := s.scheduler.Schedule(cronExpr); err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// schedule sets the cron expression for drift checks and returns the next run
// times. An empty expression disables them.
func (s *server) schedule(cronExpr string) ([]time.Time, error) {
	if cronExpr == "" {
		if s.conf.DriftCheckCron() == "" {
			// Already disabled
			return nil, nil
		}

		s.conf.SetDriftCheckCron("")
		if err := s.conf.Save(); err != nil {
			logrus.WithError(err).Error("failed to save config")
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
		s.scheduler.Stop()
		logrus.Info("drift check schedule disabled")
		return nil, nil
	}

	nextRuns, err := NextRuns(cronExpr, time.Now(), 3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCron, err)
	}

	s.conf.SetDriftCheckCron(cronExpr)
	if err := s.conf.Save(); err != nil {
		logrus.WithError(err).Error("failed to save config")
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	if err := s.applySchedule(); err != nil {
		logrus.WithError(err).Error("failed to schedule drift checks")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"cron": cronExpr,
		"next": nextRuns[0].Format(time.DateTime),
	}).Info("drift checks scheduled")
	return nextRuns, nil
}

// scheduledRuns returns the next run times of the current schedule.
func (s *server) scheduledRuns() ([]time.Time, error) {
	cronExpr := s.conf.DriftCheckCron()
	if cronExpr == "" {
		return nil, nil
	}
	next, running := s.scheduler.Status()
	if !running || next.IsZero() {
		return NextRuns(cronExpr, time.Now(), 3)
	}
	rest, err := NextRuns(cronExpr, next, 2)
	if err != nil {
		return nil, err
	}
	return append([]time.Time{next}, rest...), nil
}

func (s *server) postpone(duration time.Duration) error {
	if err := s.scheduler.Postpone(duration); err != nil {
		logrus.WithError(err).Error("failed to postpone drift check")
		return err
	}
	logrus.WithField("duration", duration.String()).Info("drift check postponed")
	return nil
}

func (s *server) skipNextSchedule() error {
	if err := s.scheduler.Skip(); err != nil {
		logrus.WithError(err).Error("failed to skip next drift check")
		return err
	}
	logrus.Info("next drift check skipped")
	return nil
}
