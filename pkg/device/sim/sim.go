// Package sim implements a simulated display and meter. The meter reads
// whatever the target currently shows and maps it through a display.Model,
// which makes it useful both in tests and for running the daemon without
// hardware.
package sim

import (
	"math"
	"math/rand"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/spectral"
)

// Target is a simulated display. It only remembers what it shows.
type Target struct {
	mu      sync.Mutex
	open    bool
	current colorimetry.RGB
	// Opened and Closed count calls, for tests.
	Opened int
	Closed int
}

// NewTarget returns a closed, blank target.
func NewTarget() *Target {
	return &Target{}
}

func (t *Target) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = true
	t.Opened++
	logrus.Trace("simulated target opened")
	return nil
}

func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	t.current = colorimetry.RGB{}
	t.Closed++
	logrus.Trace("simulated target closed")
	return nil
}

// IsOpen reports whether Open was called without a matching Close.
func (t *Target) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

func (t *Target) ShowAlignmentPattern() error {
	return t.ShowColor(colorimetry.RGB{1, 1, 1})
}

func (t *Target) ShowChannel(channel, dac int) error {
	if channel < device.Red || channel > device.Blue {
		return pkgerrors.Errorf("unknown channel %d", channel)
	}
	var rgb colorimetry.RGB
	rgb[channel] = float64(dac) / colorimetry.MaxDAC
	return t.ShowColor(rgb)
}

func (t *Target) ShowColor(rgb colorimetry.RGB) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return pkgerrors.New("target is not open")
	}
	t.current = rgb.Clamp()
	logrus.WithField("rgb", t.current).Trace("simulated target showing color")
	return nil
}

func (t *Target) Clear() error {
	return t.ShowColor(colorimetry.RGB{})
}

// Current returns the drive values being shown.
func (t *Target) Current() colorimetry.RGB {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Target) Resolution() int { return colorimetry.MaxDAC + 1 }

func (t *Target) PrimaryCodes() []int { return []int{device.Red, device.Green, device.Blue} }

// MeterOptions configures a simulated meter.
type MeterOptions struct {
	// Model maps drive values to XYZ. display.SRGB when nil.
	Model *display.Model
	// Noise is the standard deviation of Gaussian noise added to each
	// component, relative to the component value.
	Noise float64
	// Seed seeds the noise source.
	Seed int64
	// Constant, when set, is returned by every reading regardless of input.
	Constant *colorimetry.XYZ
	// FailConnect makes Connect fail.
	FailConnect bool
	// FailCalibrate makes Calibrate fail.
	FailCalibrate bool
}

// Meter is a simulated colorimeter pointed at a Target.
type Meter struct {
	mu        sync.Mutex
	target    *Target
	opts      MeterOptions
	model     display.Model
	rng       *rand.Rand
	connected bool
	spectral  bool
	primaries [3]*spectral.Distribution
	// Reads counts Tristimulus calls, for tests.
	Reads int
}

// Peak wavelengths of the simulated primary spectra.
var primaryPeaks = [3]float64{610, 545, 450}

const (
	spectrumFirst = 380
	spectrumLast  = 780
	spectrumStep  = 5
	spectrumWidth = 20.0
)

// NewMeter returns a disconnected meter reading from target.
func NewMeter(target *Target, opts MeterOptions) *Meter {
	m := &Meter{
		target: target,
		opts:   opts,
		model:  display.SRGB,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
	if opts.Model != nil {
		m.model = *opts.Model
	}
	for c := range m.primaries {
		m.primaries[c] = primarySpectrum(primaryPeaks[c], m.model.Primaries[c].Y)
	}
	return m
}

// primarySpectrum is a Gaussian emission band scaled to the given luminance.
func primarySpectrum(peak, luminance float64) *spectral.Distribution {
	d, err := spectral.NewUniform(spectrumFirst, spectrumLast, spectrumStep, 0)
	if err != nil {
		panic(err)
	}
	for i := 0; i < d.Len(); i++ {
		w := d.Wavelength(i)
		x := (float64(w) - peak) / spectrumWidth
		if err := d.SetValue(w, math.Exp(-x*x/2)); err != nil {
			panic(err)
		}
	}
	if y, err := d.Luminance(); err == nil && y > 0 {
		d.Scale(luminance / y)
	}
	return d
}

func (m *Meter) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts.FailConnect {
		return pkgerrors.Wrap(device.ErrDeviceConnection, "simulated meter refused connection")
	}
	m.connected = true
	logrus.Debug("simulated meter connected")
	return nil
}

func (m *Meter) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Meter) Calibrate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return pkgerrors.Wrap(device.ErrDeviceConnection, "meter is not connected")
	}
	if m.opts.FailCalibrate {
		return pkgerrors.Wrap(device.ErrDeviceConnection, "simulated meter calibration failed")
	}
	return nil
}

// Control echoes the command, mimicking devices that acknowledge with the
// request.
func (m *Meter) Control(code, value string) (string, error) {
	logrus.WithFields(logrus.Fields{"code": code, "value": value}).Trace("simulated meter control")
	return code + value, nil
}

func (m *Meter) SetSpectralReflectanceMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spectral = true
	return nil
}

func (m *Meter) SetTristimulusEmittanceMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spectral = false
	return nil
}

func (m *Meter) Tristimulus() (colorimetry.XYZ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return colorimetry.XYZ{}, pkgerrors.Wrap(device.ErrDeviceConnection, "meter is not connected")
	}
	m.Reads++
	if m.opts.Constant != nil {
		return *m.opts.Constant, nil
	}
	xyz := m.model.Forward(m.target.Current())
	if m.opts.Noise > 0 {
		xyz.X *= 1 + m.rng.NormFloat64()*m.opts.Noise
		xyz.Y *= 1 + m.rng.NormFloat64()*m.opts.Noise
		xyz.Z *= 1 + m.rng.NormFloat64()*m.opts.Noise
	}
	return xyz, nil
}

// Spectrum returns the sum of the primary emission bands weighted by the
// model's response to the current drive values.
func (m *Meter) Spectrum() (*spectral.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, pkgerrors.Wrap(device.ErrDeviceConnection, "meter is not connected")
	}
	rgb := m.target.Current()
	out, err := spectral.NewUniform(spectrumFirst, spectrumLast, spectrumStep, 0)
	if err != nil {
		return nil, err
	}
	for c, p := range m.primaries {
		band := p.Clone()
		band.Scale(m.model.Gamma[c].Eval(rgb[c]))
		if err := out.Add(band); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Meter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	logrus.Debug("simulated meter closed")
	return nil
}

var (
	_ device.CalibrationTarget = (*Target)(nil)
	_ device.MeasurementDevice = (*Meter)(nil)
)
