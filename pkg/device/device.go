// Package device defines the hardware the calibration controller drives: a
// target that displays drive values and a meter that measures the light it
// emits. Package sim provides in-process implementations of both.
package device

import (
	"errors"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/spectral"
)

// ErrDeviceConnection is returned when the measurement device cannot be
// connected or calibrated. It is retryable.
var ErrDeviceConnection = errors.New("measurement device connection failed")

// Channel indexes of a three-primary display.
const (
	Red = iota
	Green
	Blue
)

// ChannelName returns a human-readable channel name.
func ChannelName(channel int) string {
	switch channel {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return "unknown"
}

// CalibrationTarget is the display under calibration.
type CalibrationTarget interface {
	Open() error
	Close() error
	// ShowAlignmentPattern displays a pattern used to position the meter.
	ShowAlignmentPattern() error
	// ShowChannel drives a single channel at dac with the others at 0.
	ShowChannel(channel, dac int) error
	// ShowColor drives all channels with normalized values.
	ShowColor(rgb colorimetry.RGB) error
	Clear() error
	// Resolution is the number of drive levels per channel.
	Resolution() int
	// PrimaryCodes are the channel identifiers understood by ShowChannel.
	PrimaryCodes() []int
}

// MeasurementDevice is a colorimeter or spectroradiometer.
type MeasurementDevice interface {
	Connect() error
	IsConnected() bool
	// Calibrate runs the device's own dark/white calibration.
	Calibrate() error
	// Control sends a raw vendor command and returns the reply.
	Control(code, value string) (string, error)
	SetSpectralReflectanceMode() error
	SetTristimulusEmittanceMode() error
	// Tristimulus takes one reading in cd/m².
	Tristimulus() (colorimetry.XYZ, error)
	// Spectrum takes one spectral reading.
	Spectrum() (*spectral.Distribution, error)
	Close() error
}

// ProgressSink receives task progress in percent.
type ProgressSink interface {
	SetValue(percent int)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(percent int)

func (f ProgressFunc) SetValue(percent int) { f(percent) }

// Discard is a ProgressSink that ignores progress.
var Discard ProgressSink = ProgressFunc(func(int) {})
