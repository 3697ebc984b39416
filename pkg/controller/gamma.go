package controller

import (
	"context"
	"math"
	"slices"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

// Levels returns steps drive levels from maxDAC down to 0, evenly spaced and
// strictly decreasing.
func Levels(maxDAC, steps int) []int {
	if steps < 2 {
		steps = 2
	}
	levels := make([]int, 0, steps)
	for i := 0; i < steps; i++ {
		dac := int(math.Round(float64(maxDAC) * float64(steps-1-i) / float64(steps-1)))
		if n := len(levels); n > 0 && dac >= levels[n-1] {
			continue
		}
		levels = append(levels, dac)
	}
	return levels
}

// StartGammaMeasurement sweeps each requested channel from its maximum drive
// level down to 0, reading the device once per level. When the sweep
// completes each channel is fitted and, if all three primaries were
// measured, the resulting display model is published.
func (c *Controller) StartGammaMeasurement(target device.CalibrationTarget, dev device.MeasurementDevice, req calibration.GammaRequest, sink device.ProgressSink) error {
	settings := c.Settings()
	if req.Steps <= 0 {
		req.Steps = settings.GammaSteps
	}
	if req.Variant == 0 {
		req.Variant = settings.GammaVariant
	}
	primaries := target.PrimaryCodes()
	if len(req.Channels) == 0 {
		req.Channels = primaries
	}
	for _, ch := range req.Channels {
		if !slices.Contains(primaries, ch) {
			return pkgerrors.Wrapf(ErrUnknownChannel, "channel %d", ch)
		}
	}

	j := newJob(calibration.TaskGammaParameters, target, dev, req.Options, sink)
	return c.begin(j, func(ctx context.Context, j *job) error {
		return c.runGamma(ctx, j, req, primaries, settings)
	})
}

func (c *Controller) runGamma(ctx context.Context, j *job, req calibration.GammaRequest, primaries []int, settings Settings) error {
	if err := j.dev.SetTristimulusEmittanceMode(); err != nil {
		return pkgerrors.Wrap(err, "failed to set tristimulus mode")
	}

	levels := Levels(j.target.Resolution()-1, req.Steps)
	total := len(req.Channels) * len(levels)

	c.mu.Lock()
	c.artifacts.Series = nil
	c.artifacts.Fits = nil
	c.mu.Unlock()

	for ci, ch := range req.Channels {
		c.mu.Lock()
		c.artifacts.Series = append(c.artifacts.Series, calibration.Series{Channel: ch})
		idx := len(c.artifacts.Series) - 1
		c.mu.Unlock()

		for li, dac := range levels {
			if err := c.checkStop(ctx); err != nil {
				return err
			}
			if err := j.target.ShowChannel(ch, dac); err != nil {
				return pkgerrors.Wrapf(err, "failed to show %s at %d", device.ChannelName(ch), dac)
			}
			wait := settings.Settle
			if li == 0 {
				wait = settings.FirstSettle
			}
			if err := settle(ctx, wait); err != nil {
				return err
			}
			xyz, err := readAverage(j.dev, 1)
			if err != nil {
				return err
			}

			c.mu.Lock()
			c.artifacts.Series[idx].Samples = append(c.artifacts.Series[idx].Samples, calibration.Sample{DAC: dac, XYZ: xyz})
			c.mu.Unlock()

			j.log.WithFields(logrus.Fields{
				"channel": device.ChannelName(ch),
				"dac":     dac,
				"xyz":     xyz,
			}).Debug("measured")
			c.report(j, ci*len(levels)+li+1, total)
		}
	}

	if err := c.checkStop(ctx); err != nil {
		return err
	}
	return c.fitSeries(j, req.Variant, primaries)
}

// fitSeries fits every measured channel and publishes a model when all
// three primaries are known.
func (c *Controller) fitSeries(j *job, variant gamma.Variant, primaries []int) error {
	c.mu.Lock()
	series := make([]calibration.Series, 0, len(c.artifacts.Series))
	for _, s := range c.artifacts.Series {
		series = append(series, s.Clone())
	}
	c.mu.Unlock()

	var (
		model  display.Model
		have   [3]bool
		fits   []calibration.ChannelFit
		source = "gamma measurement"
	)
	if m := c.Model(); m != nil {
		model = *m
		have = [3]bool{true, true, true}
	}

	for _, s := range series {
		pairs := make([]gamma.Pair, 0, len(s.Samples))
		for _, smp := range s.Samples {
			pairs = append(pairs, gamma.Pair{DAC: smp.DAC, Luminance: smp.XYZ.Y})
		}
		res, err := gamma.Fit(pairs, variant, nil)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to fit %s", device.ChannelName(s.Channel))
		}
		fits = append(fits, calibration.ChannelFit{
			Channel:    s.Channel,
			Params:     res.Params,
			SSE:        res.SSE,
			Degenerate: res.Degenerate,
		})
		j.log.WithFields(logrus.Fields{
			"channel":    device.ChannelName(s.Channel),
			"gamma":      res.Params.Gamma,
			"gain":       res.Params.Gain,
			"offset":     res.Params.Offset,
			"degenerate": res.Degenerate,
		}).Info("channel fitted")

		i := slices.Index(primaries, s.Channel)
		if i < 0 || i > 2 {
			continue
		}
		model.Primaries[i] = s.Samples[0].XYZ
		model.Gamma[i] = res.Params
		have[i] = true
	}

	c.mu.Lock()
	c.artifacts.Fits = fits
	c.mu.Unlock()

	if have != [3]bool{true, true, true} {
		j.log.Info("not every primary was measured, display model left unchanged")
		return nil
	}
	if err := c.SetModel(model, source); err != nil {
		// A flat or collinear response cannot be inverted; the fits are still
		// reported.
		j.log.WithError(err).Warn("measured primaries do not form a usable display model")
	}
	return nil
}
