// Package controller runs measurement tasks against a calibration target and
// a measurement device.
//
// A task moves through
//
//	Idle → Connecting → [WaitingForStart] → Running → {Completed | Stopped | Failed} → Idle
//
// Connecting happens on the caller's goroutine; everything after it runs on
// one worker goroutine per task. Only one task may hold the controller at a
// time.
package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/events"
	"github.com/charlie0129/dispcal/pkg/gamma"
	"github.com/charlie0129/dispcal/pkg/search"
)

// Settings are the measurement timings and defaults applied when a request
// leaves a field unset.
type Settings struct {
	// FirstSettle is waited after the first color of a sweep or target list.
	FirstSettle time.Duration
	// Settle is waited after every other color.
	Settle              time.Duration
	GammaSteps          int
	GammaVariant        gamma.Variant
	AverageReads        int
	SearchMaxIterations int
}

// DefaultSettings returns the timings of a typical LCD and colorimeter.
func DefaultSettings() Settings {
	return Settings{
		FirstSettle:         1000 * time.Millisecond,
		Settle:              300 * time.Millisecond,
		GammaSteps:          16,
		GammaVariant:        gamma.TwoParameter,
		AverageReads:        search.DefaultAverageReads,
		SearchMaxIterations: search.DefaultMaxIterations,
	}
}

// Controller owns the measurement state machine.
type Controller struct {
	mu sync.Mutex

	settings Settings
	hub      *events.Hub

	state     calibration.State
	task      calibration.TaskKind
	progress  int
	startedAt time.Time
	last      *calibration.Outcome
	artifacts calibration.Artifacts
	model     *display.Model

	start    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopping atomic.Bool
}

// New returns an idle controller. hub may be nil.
func New(settings Settings, hub *events.Hub) *Controller {
	return &Controller{
		settings: settings,
		hub:      hub,
		state:    calibration.StateIdle,
	}
}

// job is the per-task context handed to the worker.
type job struct {
	kind   calibration.TaskKind
	target device.CalibrationTarget
	dev    device.MeasurementDevice
	sink   device.ProgressSink
	opts   calibration.Options
	log    *logrus.Entry
}

type runFunc func(ctx context.Context, j *job) error

func newJob(kind calibration.TaskKind, target device.CalibrationTarget, dev device.MeasurementDevice, opts calibration.Options, sink device.ProgressSink) *job {
	if sink == nil {
		sink = device.Discard
	}
	return &job{
		kind:   kind,
		target: target,
		dev:    dev,
		sink:   sink,
		opts:   opts,
		log:    logrus.WithField("task", kind),
	}
}

// SetSettings replaces the settings used by tasks started afterwards.
func (c *Controller) SetSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// Settings returns the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// begin connects the device and opens the target on the caller's goroutine,
// then dispatches fn to a worker.
func (c *Controller) begin(j *job, fn runFunc) error {
	c.mu.Lock()
	if c.state.Busy() {
		st := c.state
		c.mu.Unlock()
		return pkgerrors.Wrapf(ErrTaskInProgress, "controller is %s", st)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.stopping.Store(false)
	c.done = make(chan struct{})
	c.task = j.kind
	c.progress = 0
	c.startedAt = time.Now()
	c.start = nil
	if j.opts.WaitForStart {
		c.start = make(chan struct{})
	}
	start := c.start
	from := c.state
	c.state = calibration.StateConnecting
	c.mu.Unlock()
	c.publishState(j, from, calibration.StateConnecting, "")

	if err := connect(j.dev); err != nil {
		j.log.WithError(err).Error("failed to connect measurement device")
		c.finish(j, calibration.StateFailed, err)
		return err
	}
	if err := j.target.Open(); err != nil {
		err = pkgerrors.Wrap(err, "failed to open calibration target")
		j.log.WithError(err).Error("failed to open calibration target")
		if cerr := j.dev.Close(); cerr != nil {
			j.log.WithError(cerr).Warn("failed to close measurement device")
		}
		c.finish(j, calibration.StateFailed, err)
		return err
	}

	if start != nil {
		c.transition(j, calibration.StateWaitingForStart, "waiting for start signal")
	}
	go c.work(ctx, j, start, fn)
	return nil
}

// connect is idempotent: a connected device is neither reconnected nor
// recalibrated.
func connect(dev device.MeasurementDevice) error {
	if dev.IsConnected() {
		return nil
	}
	if err := dev.Connect(); err != nil {
		return wrapConnection(err, "connect")
	}
	if err := dev.Calibrate(); err != nil {
		_ = dev.Close()
		return wrapConnection(err, "calibrate")
	}
	return nil
}

func wrapConnection(err error, op string) error {
	if errors.Is(err, device.ErrDeviceConnection) {
		return pkgerrors.Wrapf(err, "failed to %s measurement device", op)
	}
	return pkgerrors.Wrapf(device.ErrDeviceConnection, "failed to %s measurement device: %v", op, err)
}

func (c *Controller) work(ctx context.Context, j *job, start <-chan struct{}, fn runFunc) {
	err := c.run(ctx, j, start, fn)

	if cerr := j.target.Clear(); cerr != nil {
		j.log.WithError(cerr).Debug("failed to clear calibration target")
	}
	if cerr := j.target.Close(); cerr != nil {
		j.log.WithError(cerr).Warn("failed to close calibration target")
	}
	if cerr := j.dev.Close(); cerr != nil {
		j.log.WithError(cerr).Warn("failed to close measurement device")
	}

	// A stop that arrives after fn has returned cannot undo its results.
	switch {
	case err == nil:
		c.finish(j, calibration.StateCompleted, nil)
	case c.stopping.Load() || errors.Is(err, context.Canceled):
		c.finish(j, calibration.StateStopped, nil)
	default:
		j.log.WithError(err).Error("task failed")
		c.finish(j, calibration.StateFailed, err)
	}
}

func (c *Controller) run(ctx context.Context, j *job, start <-chan struct{}, fn runFunc) error {
	if j.opts.ShowAlignmentPattern {
		if err := j.target.ShowAlignmentPattern(); err != nil {
			return pkgerrors.Wrap(err, "failed to show alignment pattern")
		}
	}
	if start != nil {
		select {
		case <-start:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.transition(j, calibration.StateRunning, "")
	return fn(ctx, j)
}

// finish records the outcome and returns the controller to Idle.
func (c *Controller) finish(j *job, state calibration.State, err error) {
	c.mu.Lock()
	from := c.state
	out := calibration.Outcome{
		Task:       j.kind,
		State:      state,
		StartedAt:  c.startedAt,
		FinishedAt: time.Now(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	c.last = &out
	c.state = calibration.StateIdle
	c.task = ""
	c.start = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	done := c.done
	c.mu.Unlock()

	c.publishState(j, from, state, out.Error)
	c.publishState(j, state, calibration.StateIdle, "")
	j.log.WithFields(logrus.Fields{
		"state":    state,
		"duration": out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond),
	}).Info("task finished")

	close(done)
}

func (c *Controller) transition(j *job, to calibration.State, msg string) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.publishState(j, from, to, msg)
}

func (c *Controller) publishState(j *job, from, to calibration.State, msg string) {
	j.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("state changed")
	c.hub.Publish(events.TaskState, events.TaskStateEvent{
		Task:    string(j.kind),
		From:    string(from),
		To:      string(to),
		Message: msg,
		Ts:      time.Now().Unix(),
	})
}

// report forwards progress, dropping values that would go backwards.
func (c *Controller) report(j *job, done, total int) {
	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}
	c.mu.Lock()
	if percent <= c.progress {
		c.mu.Unlock()
		return
	}
	c.progress = percent
	c.mu.Unlock()

	j.sink.SetValue(percent)
	c.hub.Publish(events.TaskProgress, events.TaskProgressEvent{
		Task:    string(j.kind),
		Percent: percent,
		Ts:      time.Now().Unix(),
	})
}

// checkStop is called once per outer iteration.
func (c *Controller) checkStop(ctx context.Context) error {
	if c.stopping.Load() {
		return context.Canceled
	}
	return ctx.Err()
}

// settle waits for the display to stabilize. Stop interrupts it.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// readAverage takes n readings and returns their mean. Reads are never
// interrupted.
func readAverage(dev device.MeasurementDevice, n int) (colorimetry.XYZ, error) {
	if n < 1 {
		n = 1
	}
	var sum colorimetry.XYZ
	for i := 0; i < n; i++ {
		xyz, err := dev.Tristimulus()
		if err != nil {
			return colorimetry.XYZ{}, pkgerrors.Wrap(err, "failed to read measurement device")
		}
		sum = sum.Add(xyz)
	}
	return sum.Scale(1 / float64(n)), nil
}

// Resume releases a task parked in WaitingForStart.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != calibration.StateWaitingForStart || c.start == nil {
		return ErrNotWaiting
	}
	close(c.start)
	c.start = nil
	return nil
}

// Stop asks the running task to stop. It returns immediately; use Wait to
// block until the task has finished.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Busy() {
		return ErrNotRunning
	}
	c.stopping.Store(true)
	if c.cancel != nil {
		c.cancel()
	}
	logrus.WithField("task", c.task).Info("stop requested")
	return nil
}

// Wait blocks until the current task finishes and returns its outcome. It
// returns the last outcome immediately when the controller is idle.
func (c *Controller) Wait() calibration.Outcome {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return calibration.Outcome{State: calibration.StateIdle}
	}
	return *c.last
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() calibration.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := calibration.Status{
		State:     c.state,
		Task:      c.task,
		Progress:  c.progress,
		CanResume: c.state == calibration.StateWaitingForStart,
		CanStop:   c.state.Busy(),
	}
	if c.state.Busy() {
		st.StartedAt = c.startedAt
	}
	if c.last != nil {
		last := *c.last
		st.Last = &last
	}
	return st
}

// Outcome returns how the last task ended, or nil if none has run.
func (c *Controller) Outcome() *calibration.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	out := *c.last
	return &out
}

// Artifacts returns a copy of everything measured so far.
func (c *Controller) Artifacts() calibration.Artifacts {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.artifacts.Clone()
	if c.model != nil {
		m := *c.model
		a.Model = &m
	}
	return a
}

// Model returns a copy of the published display model, or nil.
func (c *Controller) Model() *display.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	m := *c.model
	return &m
}

// SetModel publishes m for evaluations and color table start points.
func (c *Controller) SetModel(m display.Model, source string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.model = &m
	c.mu.Unlock()
	logrus.WithFields(logrus.Fields{"source": source, "model": m.String()}).Info("display model published")
	c.hub.Publish(events.ModelUpdate, events.ModelUpdateEvent{Source: source, Ts: time.Now().Unix()})
	return nil
}

// white picks the reference white: the requested one, the published
// model's, or D65.
func (c *Controller) white(requested *colorimetry.XYZ) colorimetry.XYZ {
	if requested != nil && requested.Y > 0 {
		return *requested
	}
	if m := c.Model(); m != nil {
		if w := m.White(); w.Y > 0 {
			return w
		}
	}
	return colorimetry.D65
}
