// Package spectral implements tabulated spectral power distributions, their
// colorimetric integration against the CIE standard observers, and the
// composition of light sources with chains of filters.
package spectral

import (
	"math"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
)

// LuminousEfficacy is the maximum luminous efficacy in lm/W.
const LuminousEfficacy = 683.0

// Distribution is a function of wavelength sampled every step nanometers
// from first to last inclusive.
//
// A Distribution is not safe for concurrent mutation.
type Distribution struct {
	first int
	last  int
	step  int
	data  []float64
}

// New creates a distribution. data is copied.
func New(first, last, step int, data []float64) (*Distribution, error) {
	if err := checkRange(first, last, step); err != nil {
		return nil, err
	}
	if n := (last-first)/step + 1; len(data) != n {
		return nil, pkgerrors.Wrapf(ErrInvalidRange, "%d-%d/%d nm needs %d samples, got %d", first, last, step, n, len(data))
	}
	return &Distribution{
		first: first,
		last:  last,
		step:  step,
		data:  append([]float64(nil), data...),
	}, nil
}

// NewUniform creates a distribution with every sample set to v.
func NewUniform(first, last, step int, v float64) (*Distribution, error) {
	if err := checkRange(first, last, step); err != nil {
		return nil, err
	}
	data := make([]float64, (last-first)/step+1)
	for i := range data {
		data[i] = v
	}
	return &Distribution{first: first, last: last, step: step, data: data}, nil
}

func checkRange(first, last, step int) error {
	if step <= 0 || last < first || (last-first)%step != 0 {
		return pkgerrors.Wrapf(ErrInvalidRange, "first=%d last=%d step=%d", first, last, step)
	}
	return nil
}

func (d *Distribution) First() int { return d.first }
func (d *Distribution) Last() int  { return d.last }
func (d *Distribution) Step() int  { return d.step }
func (d *Distribution) Len() int   { return len(d.data) }

// Data returns a copy of the samples.
func (d *Distribution) Data() []float64 {
	return append([]float64(nil), d.data...)
}

// Wavelength returns the wavelength of sample i.
func (d *Distribution) Wavelength(i int) int {
	return d.first + i*d.step
}

// Clone returns a deep copy.
func (d *Distribution) Clone() *Distribution {
	return &Distribution{first: d.first, last: d.last, step: d.step, data: d.Data()}
}

// SameRange reports whether both distributions share (first, last, step).
func (d *Distribution) SameRange(o *Distribution) bool {
	return d.first == o.first && d.last == o.last && d.step == o.step
}

// Covers reports whether o can act as a filter on d: its range contains d's
// and its step evenly divides d's step.
func (d *Distribution) Covers(o *Distribution) bool {
	return o.first <= d.first && o.last >= d.last && d.step%o.step == 0
}

// ValueAt linearly interpolates between tabulated samples. Wavelengths
// outside [first, last] yield 0.
func (d *Distribution) ValueAt(w int) float64 {
	if w < d.first || w > d.last {
		return 0
	}
	off := w - d.first
	i := off / d.step
	rem := off % d.step
	if rem == 0 {
		return d.data[i]
	}
	frac := float64(rem) / float64(d.step)
	return d.data[i]*(1-frac) + d.data[i+1]*frac
}

// index returns the sample index of wavelength w, or -1 when w is not on the grid.
func (d *Distribution) index(w int) int {
	if w < d.first || w > d.last || (w-d.first)%d.step != 0 {
		return -1
	}
	return (w - d.first) / d.step
}

// SetValue replaces the sample at wavelength w, which must lie on the grid.
func (d *Distribution) SetValue(w int, v float64) error {
	i := d.index(w)
	if i < 0 {
		return pkgerrors.Wrapf(ErrInvalidRange, "%d nm is not a sample of %d-%d/%d nm", w, d.first, d.last, d.step)
	}
	d.data[i] = v
	return nil
}

// SetData replaces every sample. data must have Len() entries.
func (d *Distribution) SetData(data []float64) error {
	if len(data) != len(d.data) {
		return pkgerrors.Wrapf(ErrInvalidRange, "expected %d samples, got %d", len(d.data), len(data))
	}
	copy(d.data, data)
	return nil
}

// Filter multiplies d by o pointwise, in place.
func (d *Distribution) Filter(o *Distribution) error {
	if !d.Covers(o) {
		return pkgerrors.Wrapf(ErrRangeMismatch, "filter %d-%d/%d nm cannot cover %d-%d/%d nm",
			o.first, o.last, o.step, d.first, d.last, d.step)
	}
	for i := range d.data {
		d.data[i] *= o.ValueAt(d.Wavelength(i))
	}
	return nil
}

// Add sums o into d, in place. Both must share the same range.
func (d *Distribution) Add(o *Distribution) error {
	if !d.SameRange(o) {
		return pkgerrors.Wrapf(ErrRangeMismatch, "cannot add %d-%d/%d nm to %d-%d/%d nm",
			o.first, o.last, o.step, d.first, d.last, d.step)
	}
	for i := range d.data {
		d.data[i] += o.data[i]
	}
	return nil
}

// Scale multiplies every sample by k.
func (d *Distribution) Scale(k float64) {
	for i := range d.data {
		d.data[i] *= k
	}
}

// Max returns the largest sample.
func (d *Distribution) Max() float64 {
	m := math.Inf(-1)
	for _, v := range d.data {
		m = math.Max(m, v)
	}
	return m
}

// Normalize divides every sample by the maximum sample. A distribution whose
// maximum is zero is left unchanged.
func (d *Distribution) Normalize() {
	m := d.Max()
	if m == 0 {
		return
	}
	d.Scale(1 / m)
}

// ModifyWavelengthRange resamples d onto a new grid. The samples are first
// interpolated onto a dense 1 nm grid, zero-filled beyond the original range,
// and then picked every step nanometers.
func (d *Distribution) ModifyWavelengthRange(first, last, step int) error {
	if err := checkRange(first, last, step); err != nil {
		return err
	}
	dense := make([]float64, last-first+1)
	for i := range dense {
		dense[i] = d.ValueAt(first + i)
	}
	data := make([]float64, (last-first)/step+1)
	for i := range data {
		data[i] = dense[i*step]
	}
	d.first, d.last, d.step, d.data = first, last, step, data
	return nil
}

// ToXYZ integrates d against the matching functions of the given observer.
// The result is scaled by LuminousEfficacy times the sample step, so a
// spectral radiance in W/(sr·m²·nm) yields cd/m².
func (d *Distribution) ToXYZ(observer Observer) (colorimetry.XYZ, error) {
	table, err := observer.table()
	if err != nil {
		return colorimetry.XYZ{}, err
	}
	if d.first < cmfFirst || d.last > cmfLast {
		return colorimetry.XYZ{}, pkgerrors.Wrapf(ErrRange, "%d-%d nm is outside %d-%d nm", d.first, d.last, cmfFirst, cmfLast)
	}

	var sum colorimetry.XYZ
	for i, v := range d.data {
		if v == 0 {
			continue
		}
		cmf := matchingAt(table, d.Wavelength(i))
		sum.X += v * cmf.X
		sum.Y += v * cmf.Y
		sum.Z += v * cmf.Z
	}
	return sum.Scale(LuminousEfficacy * float64(d.step)), nil
}

// Luminance is the Y component of ToXYZ for the 2 degree observer.
func (d *Distribution) Luminance() (float64, error) {
	xyz, err := d.ToXYZ(Observer2)
	if err != nil {
		return 0, err
	}
	return xyz.Y, nil
}
