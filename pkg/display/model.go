// Package display holds the device transform published by a gamma
// calibration: the tristimulus value of each primary at full drive plus the
// response curve of each channel. Evaluation runs and the simulated meter
// both go through it.
package display

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

// ErrSingular is returned when the primaries are linearly dependent.
var ErrSingular = errors.New("primaries are not linearly independent")

// gamutSlack tolerates round-off when deciding whether a color is reproducible.
const gamutSlack = 1e-9

// Model maps normalized drive values to tristimulus values:
//
//	XYZ = Σc Primaries[c] · Gamma[c].Eval(rgb[c])
type Model struct {
	Primaries [3]colorimetry.XYZ `json:"primaries"`
	Gamma     [3]gamma.Params    `json:"gamma"`
}

// SRGB is a model with Rec. 709 primaries, a white of Y=100 and a plain 2.2
// response, used as the simulator default.
var SRGB = Model{
	Primaries: [3]colorimetry.XYZ{
		{X: 41.24, Y: 21.26, Z: 1.93},
		{X: 35.76, Y: 71.52, Z: 11.92},
		{X: 18.05, Y: 7.22, Z: 95.05},
	},
	Gamma: [3]gamma.Params{
		{Gamma: 2.2, Gain: 1},
		{Gamma: 2.2, Gain: 1},
		{Gamma: 2.2, Gain: 1},
	},
}

// Forward returns the color produced by drive values rgb.
func (m *Model) Forward(rgb colorimetry.RGB) colorimetry.XYZ {
	var out colorimetry.XYZ
	for c := 0; c < 3; c++ {
		out = out.Add(m.Primaries[c].Scale(m.Gamma[c].Eval(rgb[c])))
	}
	return out
}

// White is the color at full drive on every channel.
func (m *Model) White() colorimetry.XYZ {
	return m.Forward(colorimetry.RGB{1, 1, 1})
}

func (m *Model) primaryMatrix() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for c, p := range m.Primaries {
		d.Set(0, c, p.X)
		d.Set(1, c, p.Y)
		d.Set(2, c, p.Z)
	}
	return d
}

// Validate checks that the primaries can be inverted.
func (m *Model) Validate() error {
	var inv mat.Dense
	if err := inv.Inverse(m.primaryMatrix()); err != nil {
		return pkgerrors.Wrapf(ErrSingular, "%v", err)
	}
	return nil
}

// Linear solves for the per-channel linear light that mixes to xyz.
func (m *Model) Linear(xyz colorimetry.XYZ) ([3]float64, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.primaryMatrix()); err != nil {
		return [3]float64{}, pkgerrors.Wrapf(ErrSingular, "%v", err)
	}
	var lin mat.VecDense
	lin.MulVec(&inv, mat.NewVecDense(3, []float64{xyz.X, xyz.Y, xyz.Z}))
	return [3]float64{lin.AtVec(0), lin.AtVec(1), lin.AtVec(2)}, nil
}

// Inverse returns the drive values reproducing xyz. inGamut is false when
// some channel would need linear light outside [0, 1]; the returned drive
// values are clamped in that case.
func (m *Model) Inverse(xyz colorimetry.XYZ) (rgb colorimetry.RGB, inGamut bool, err error) {
	lin, err := m.Linear(xyz)
	if err != nil {
		return colorimetry.RGB{}, false, err
	}
	inGamut = true
	for c, v := range lin {
		if v < -gamutSlack || v > 1+gamutSlack {
			inGamut = false
		}
		rgb[c] = m.Gamma[c].Inverse(v)
	}
	return rgb, inGamut, nil
}

func (m *Model) String() string {
	return fmt.Sprintf("primaries=%v gamma=%v", m.Primaries, m.Gamma)
}
