package controller

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/device/sim"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/events"
)

func fastSettings() Settings {
	s := DefaultSettings()
	s.FirstSettle = 0
	s.Settle = 0
	return s
}

func newRig(opts sim.MeterOptions) (*sim.Target, *sim.Meter) {
	target := sim.NewTarget()
	return target, sim.NewMeter(target, opts)
}

func waitOutcome(t *testing.T, c *Controller) calibration.Outcome {
	t.Helper()
	ch := make(chan calibration.Outcome, 1)
	go func() { ch <- c.Wait() }()
	select {
	case out := <-ch:
		return out
	case <-time.After(10 * time.Second):
		t.Fatalf("task did not finish, status %+v", c.Status())
	}
	return calibration.Outcome{}
}

func waitState(t *testing.T, c *Controller, want calibration.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status().State == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller never reached %s, status %+v", want, c.Status())
}

type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) SetValue(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		max, steps int
		want       []int
	}{
		{255, 5, []int{255, 191, 128, 64, 0}},
		{255, 2, []int{255, 0}},
		{255, 1, []int{255, 0}},
		{3, 10, []int{3, 2, 1, 0}},
	}
	for _, tt := range tests {
		got := Levels(tt.max, tt.steps)
		if len(got) != len(tt.want) {
			t.Fatalf("Levels(%d, %d) = %v, want %v", tt.max, tt.steps, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Levels(%d, %d) = %v, want %v", tt.max, tt.steps, got, tt.want)
			}
		}
	}
}

func TestGammaWithConstantDeviceIsDegenerate(t *testing.T) {
	constant := colorimetry.XYZ{X: 50, Y: 0.3, Z: 0.3}
	target, meter := newRig(sim.MeterOptions{Constant: &constant})
	c := New(fastSettings(), nil)

	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{Steps: 5}, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	out := waitOutcome(t, c)
	if out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v, want Completed", out)
	}

	a := c.Artifacts()
	if len(a.Series) != 3 {
		t.Fatalf("got %d series, want 3", len(a.Series))
	}
	for _, s := range a.Series {
		if len(s.Samples) != 5 {
			t.Fatalf("channel %d has %d samples, want 5", s.Channel, len(s.Samples))
		}
		for i, smp := range s.Samples {
			if smp.XYZ != constant {
				t.Fatalf("channel %d sample %d = %v, want %v", s.Channel, i, smp.XYZ, constant)
			}
			if i > 0 && smp.DAC >= s.Samples[i-1].DAC {
				t.Fatalf("channel %d drive levels not strictly decreasing: %+v", s.Channel, s.Samples)
			}
		}
	}
	if len(a.Fits) != 3 {
		t.Fatalf("got %d fits, want 3", len(a.Fits))
	}
	for _, f := range a.Fits {
		if !f.Degenerate {
			t.Fatalf("flat channel %d should fit as degenerate", f.Channel)
		}
	}
	if c.Model() != nil {
		t.Fatalf("identical primaries must not publish a model")
	}
	if target.IsOpen() || meter.IsConnected() {
		t.Fatalf("target and meter must be closed after the task")
	}
	if st := c.Status(); st.State != calibration.StateIdle {
		t.Fatalf("state = %s, want Idle", st.State)
	}
}

func TestGammaWithBlackDeviceKeepsArtifactsEncodable(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{Constant: &colorimetry.XYZ{}})
	c := New(fastSettings(), nil)

	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{Steps: 5}, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v, want Completed", out)
	}

	a := c.Artifacts()
	if len(a.Fits) != 3 {
		t.Fatalf("got %d fits, want 3", len(a.Fits))
	}
	for _, f := range a.Fits {
		if !f.Degenerate || f.SSE != 0 {
			t.Fatalf("black channel %d fit = %+v, want degenerate with zero SSE", f.Channel, f)
		}
	}
	body, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("artifacts do not marshal: %v", err)
	}
	var back calibration.Artifacts
	if err := json.Unmarshal(body, &back); err != nil || len(back.Fits) != 3 {
		t.Fatalf("artifacts do not decode: %v (%s)", err, body)
	}
}

func TestGammaPublishesModel(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	c := New(fastSettings(), hub)
	progress := &recorder{}
	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{}, progress); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v", out)
	}

	m := c.Model()
	if m == nil {
		t.Fatal("no model published")
	}
	for ch := 0; ch < 3; ch++ {
		if m.Primaries[ch].Dist2(display.SRGB.Primaries[ch]) > 1e-18 {
			t.Errorf("primary %d = %v, want %v", ch, m.Primaries[ch], display.SRGB.Primaries[ch])
		}
		if math.Abs(m.Gamma[ch].Gamma-2.2) > 1e-3 || math.Abs(m.Gamma[ch].Gain-1) > 1e-3 {
			t.Errorf("channel %d fitted %v", ch, m.Gamma[ch])
		}
	}
	if n := len(c.Artifacts().Series[0].Samples); n != 16 {
		t.Fatalf("default sweep has %d levels, want 16", n)
	}

	values := progress.snapshot()
	if len(values) == 0 || values[len(values)-1] != 100 {
		t.Fatalf("progress = %v, want to end at 100", values)
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("progress went backwards: %v", values)
		}
	}

	sawState := false
	for len(sub) > 0 {
		if ev := <-sub; ev.Name == events.TaskState {
			sawState = true
		}
	}
	if !sawState {
		t.Fatal("no state events published")
	}
}

func TestStopDuringSettleYieldsStopped(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	s := fastSettings()
	s.FirstSettle = time.Hour
	c := New(s, nil)

	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{}, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	waitState(t, c, calibration.StateRunning)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	out := waitOutcome(t, c)
	if out.State != calibration.StateStopped {
		t.Fatalf("outcome = %+v, want Stopped", out)
	}
	if out.Error != "" {
		t.Fatalf("stopped task should carry no error, got %q", out.Error)
	}
	if target.IsOpen() || meter.IsConnected() {
		t.Fatal("target and meter must be closed after stop")
	}
	if c.Model() != nil {
		t.Fatal("stopped sweep must not publish a model")
	}
	if err := c.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestStopWhileWaitingForStart(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	c := New(fastSettings(), nil)
	req := calibration.GammaRequest{Options: calibration.Options{WaitForStart: true, ShowAlignmentPattern: true}}
	if err := c.StartGammaMeasurement(target, meter, req, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateStopped {
		t.Fatalf("outcome = %+v, want Stopped", out)
	}
	if meter.Reads != 0 {
		t.Fatalf("meter was read %d times before start", meter.Reads)
	}
}

func TestStopAfterWorkReturnedKeepsCompleted(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	c := New(fastSettings(), nil)

	j := newJob(calibration.TaskGammaParameters, target, meter, calibration.Options{}, nil)
	var stopErr error
	err := c.begin(j, func(context.Context, *job) error {
		stopErr = c.Stop()
		return nil
	})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	out := waitOutcome(t, c)
	if stopErr != nil {
		t.Fatalf("Stop while running: %v", stopErr)
	}
	if out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v, want Completed", out)
	}
}

func TestSingleFlightAndResume(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	c := New(fastSettings(), nil)

	if err := c.Resume(); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("Resume on idle controller = %v, want ErrNotWaiting", err)
	}

	req := calibration.GammaRequest{Steps: 3, Options: calibration.Options{WaitForStart: true}}
	if err := c.StartGammaMeasurement(target, meter, req, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	st := c.Status()
	if st.State != calibration.StateWaitingForStart || !st.CanResume {
		t.Fatalf("status = %+v, want WaitingForStart", st)
	}

	other, otherMeter := newRig(sim.MeterOptions{})
	if err := c.StartGammaMeasurement(other, otherMeter, calibration.GammaRequest{}, nil); !errors.Is(err, ErrTaskInProgress) {
		t.Fatalf("second start = %v, want ErrTaskInProgress", err)
	}
	if other.Opened != 0 || otherMeter.IsConnected() {
		t.Fatal("rejected start must not touch its hardware")
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v", out)
	}
	if err := c.Resume(); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("Resume after completion = %v, want ErrNotWaiting", err)
	}

	// The controller can be reused once idle.
	if err := c.StartGammaMeasurement(other, otherMeter, calibration.GammaRequest{Steps: 2}, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestConnectFailure(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{FailConnect: true})
	c := New(fastSettings(), nil)

	err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{}, nil)
	if !errors.Is(err, device.ErrDeviceConnection) {
		t.Fatalf("start = %v, want ErrDeviceConnection", err)
	}
	out := c.Wait()
	if out.State != calibration.StateFailed || out.Error == "" {
		t.Fatalf("outcome = %+v, want Failed with an error", out)
	}
	if target.Opened != 0 {
		t.Fatal("target must not be opened when the device cannot connect")
	}
	if st := c.Status(); st.State != calibration.StateIdle {
		t.Fatalf("state = %s, want Idle", st.State)
	}

	calTarget, calMeter := newRig(sim.MeterOptions{FailCalibrate: true})
	if err := c.StartGammaMeasurement(calTarget, calMeter, calibration.GammaRequest{}, nil); !errors.Is(err, device.ErrDeviceConnection) {
		t.Fatalf("start = %v, want ErrDeviceConnection", err)
	}
}

func TestConnectSkippedWhenConnected(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	if err := meter.Connect(); err != nil {
		t.Fatal(err)
	}
	c := New(fastSettings(), nil)
	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{Steps: 2, Channels: []int{device.Red}}, nil); err != nil {
		t.Fatalf("StartGammaMeasurement: %v", err)
	}
	if out := waitOutcome(t, c); out.State != calibration.StateCompleted {
		t.Fatalf("outcome = %+v", out)
	}
	if c.Model() != nil {
		t.Fatal("a single channel must not publish a model")
	}
	if len(c.Artifacts().Fits) != 1 {
		t.Fatal("the measured channel should still be fitted")
	}
}

func TestUnknownChannelRejected(t *testing.T) {
	target, meter := newRig(sim.MeterOptions{})
	c := New(fastSettings(), nil)
	if err := c.StartGammaMeasurement(target, meter, calibration.GammaRequest{Channels: []int{7}}, nil); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("start = %v, want ErrUnknownChannel", err)
	}
	if c.Status().State != calibration.StateIdle {
		t.Fatal("rejected request must leave the controller idle")
	}
}
