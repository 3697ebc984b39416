package daemon

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/config"
	"github.com/charlie0129/dispcal/pkg/controller"
	"github.com/charlie0129/dispcal/pkg/device/sim"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

// newSimulator builds the simulated display and meter described by the
// simulator section of the config.
func newSimulator(c config.Simulator) (*sim.Target, *sim.Meter) {
	model := display.Model{Primaries: c.Primaries}
	for i, g := range c.Gamma {
		model.Gamma[i] = gamma.Params{Gamma: g, Gain: 1}
	}
	if err := model.Validate(); err != nil {
		logrus.WithError(err).Warn("invalid simulator primaries, using sRGB")
		model = display.SRGB
	}

	target := sim.NewTarget()
	meter := sim.NewMeter(target, sim.MeterOptions{Model: &model, Noise: c.Noise, Seed: time.Now().UnixNano()})
	return target, meter
}

func settingsFromConfig(c config.Config) controller.Settings {
	return controller.Settings{
		FirstSettle:         c.FirstSettle(),
		Settle:              c.Settle(),
		GammaSteps:          c.GammaSteps(),
		GammaVariant:        c.GammaVariant(),
		AverageReads:        c.AverageReads(),
		SearchMaxIterations: c.SearchMaxIterations(),
	}
}

// hardware returns the target and meter tasks run against.
func (s *server) hardware() (*sim.Target, *sim.Meter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.meter
}

// reloadHardware rebuilds the simulator from the config. It is a no-op while
// a task holds the current one.
func (s *server) reloadHardware() {
	if s.ctrl.Status().State.Busy() {
		logrus.Warn("task in progress, simulator settings apply after a restart or the next reload")
		return
	}
	target, meter := newSimulator(s.conf.Simulator())
	s.mu.Lock()
	s.target, s.meter = target, meter
	s.mu.Unlock()
}
