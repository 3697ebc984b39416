package controller

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/search"
)

// midGray is the search start point when no display model is published.
var midGray = colorimetry.DeviceRGB{128, 128, 128}

// StartColorTable searches the device drive values reproducing each target.
func (c *Controller) StartColorTable(target device.CalibrationTarget, dev device.MeasurementDevice, req calibration.ColorTableRequest, sink device.ProgressSink) error {
	if len(req.Targets) == 0 {
		return ErrNoTargets
	}
	settings := c.Settings()
	if req.MaxIterations <= 0 {
		req.MaxIterations = settings.SearchMaxIterations
	}
	if req.AverageReads <= 0 {
		req.AverageReads = settings.AverageReads
	}
	white := c.white(req.White)

	j := newJob(calibration.TaskColorTable, target, dev, req.Options, sink)
	return c.begin(j, func(ctx context.Context, j *job) error {
		return c.runColorTable(ctx, j, req, white, settings)
	})
}

func (c *Controller) runColorTable(ctx context.Context, j *job, req calibration.ColorTableRequest, white colorimetry.XYZ, settings Settings) error {
	if err := j.dev.SetTristimulusEmittanceMode(); err != nil {
		return pkgerrors.Wrap(err, "failed to set tristimulus mode")
	}

	c.mu.Lock()
	c.artifacts.ColorTable = nil
	c.artifacts.White = white
	c.mu.Unlock()

	first := true
	measure := func(ctx context.Context, rgb colorimetry.DeviceRGB, reads int) (colorimetry.XYZ, error) {
		if err := j.target.ShowColor(rgb.Normalized()); err != nil {
			return colorimetry.XYZ{}, pkgerrors.Wrapf(err, "failed to show %v", rgb)
		}
		wait := settings.Settle
		if first {
			wait, first = settings.FirstSettle, false
		}
		if err := settle(ctx, wait); err != nil {
			return colorimetry.XYZ{}, err
		}
		return readAverage(j.dev, reads)
	}
	opts := &search.Options{MaxIterations: req.MaxIterations, AverageReads: req.AverageReads}

	for i, t := range req.Targets {
		if err := c.checkStop(ctx); err != nil {
			return err
		}
		res, err := search.Search(ctx, t, c.startPoint(t), measure, opts)
		if err != nil {
			return err
		}
		row := calibration.ColorTableRow{
			Target:    t,
			DeviceRGB: res.RGB,
			Measured:  res.Measured,
			DeltaE:    colorimetry.DeltaE76(t.Lab(white), res.Measured.Lab(white)),
			Converged: res.Converged,
		}
		c.mu.Lock()
		c.artifacts.ColorTable = append(c.artifacts.ColorTable, row)
		c.mu.Unlock()

		j.log.WithFields(logrus.Fields{
			"target":       t,
			"rgb":          res.RGB,
			"deltaE":       row.DeltaE,
			"measurements": res.Measurements,
		}).Info("target matched")
		c.report(j, i+1, len(req.Targets))
	}
	return nil
}

// startPoint seeds the search from the published model when there is one.
func (c *Controller) startPoint(t colorimetry.XYZ) colorimetry.DeviceRGB {
	m := c.Model()
	if m == nil {
		return midGray
	}
	rgb, _, err := m.Inverse(t)
	if err != nil {
		return midGray
	}
	return rgb.Quantize()
}
