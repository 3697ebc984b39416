package controller

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
)

// StartEvaluation displays each Lab target through the published display
// model and records the color difference to what the device measures.
func (c *Controller) StartEvaluation(target device.CalibrationTarget, dev device.MeasurementDevice, req calibration.EvaluationRequest, sink device.ProgressSink) error {
	if len(req.Targets) == 0 {
		return ErrNoTargets
	}
	model := c.Model()
	if model == nil {
		return ErrNoDeviceModel
	}
	settings := c.Settings()
	if req.AverageReads <= 0 {
		req.AverageReads = settings.AverageReads
	}
	white := c.white(req.White)

	j := newJob(calibration.TaskEvaluation, target, dev, req.Options, sink)
	return c.begin(j, func(ctx context.Context, j *job) error {
		return c.runEvaluation(ctx, j, req, *model, white, settings)
	})
}

func (c *Controller) runEvaluation(ctx context.Context, j *job, req calibration.EvaluationRequest, model display.Model, white colorimetry.XYZ, settings Settings) error {
	if err := j.dev.SetTristimulusEmittanceMode(); err != nil {
		return pkgerrors.Wrap(err, "failed to set tristimulus mode")
	}

	c.mu.Lock()
	c.artifacts.Evaluation = nil
	c.artifacts.White = white
	c.mu.Unlock()

	for i, lab := range req.Targets {
		if err := c.checkStop(ctx); err != nil {
			return err
		}
		xyz := lab.XYZ(white)
		rgb, inGamut, err := model.Inverse(xyz)
		if err != nil {
			return err
		}
		if err := j.target.ShowColor(rgb); err != nil {
			return pkgerrors.Wrapf(err, "failed to show %v", rgb)
		}
		wait := settings.Settle
		if i == 0 {
			wait = settings.FirstSettle
		}
		if err := settle(ctx, wait); err != nil {
			return err
		}
		measured, err := readAverage(j.dev, req.AverageReads)
		if err != nil {
			return err
		}

		row := calibration.EvaluationRow{
			Target:    xyz,
			Requested: rgb,
			InGamut:   inGamut,
			Measured:  measured,
			DeltaE:    colorimetry.DeltaE76(lab, measured.Lab(white)),
		}
		c.mu.Lock()
		c.artifacts.Evaluation = append(c.artifacts.Evaluation, row)
		c.mu.Unlock()

		entry := j.log.WithFields(logrus.Fields{"target": lab, "rgb": rgb, "deltaE": row.DeltaE})
		if !inGamut {
			entry.Warn("target is outside the display gamut")
		} else {
			entry.Debug("target evaluated")
		}
		c.report(j, i+1, len(req.Targets))
	}
	return nil
}
