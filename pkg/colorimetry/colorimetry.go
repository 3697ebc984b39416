// Package colorimetry holds the color representations shared by the
// calibration code: CIE XYZ tristimulus values, Yxy, CIE L*a*b* and the
// device drive values sent to a display.
package colorimetry

import (
	"fmt"
	"math"
)

// XYZ is a CIE 1931 tristimulus value.
type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Yxy is luminance plus chromaticity coordinates.
type Yxy struct {
	Y  float64 `json:"Y"`
	Cx float64 `json:"x"`
	Cy float64 `json:"y"`
}

// Lab is a CIE 1976 L*a*b* color relative to some reference white.
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// D65 is the CIE standard illuminant D65 white point with Y normalized to 100.
var D65 = XYZ{X: 95.047, Y: 100, Z: 108.883}

const (
	labEpsilon = 216.0 / 24389.0
	labKappa   = 24389.0 / 27.0
)

func (c XYZ) Add(o XYZ) XYZ { return XYZ{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }

func (c XYZ) Sub(o XYZ) XYZ { return XYZ{c.X - o.X, c.Y - o.Y, c.Z - o.Z} }

func (c XYZ) Scale(k float64) XYZ { return XYZ{c.X * k, c.Y * k, c.Z * k} }

// Dist2 returns the squared euclidean distance between two tristimulus values.
func (c XYZ) Dist2(o XYZ) float64 {
	d := c.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

func (c XYZ) IsZero() bool { return c.X == 0 && c.Y == 0 && c.Z == 0 }

func (c XYZ) String() string {
	return fmt.Sprintf("XYZ(%.4f, %.4f, %.4f)", c.X, c.Y, c.Z)
}

// Yxy converts to luminance and chromaticity. Black maps to (0, 0, 0).
func (c XYZ) Yxy() Yxy {
	sum := c.X + c.Y + c.Z
	if sum == 0 {
		return Yxy{}
	}
	return Yxy{Y: c.Y, Cx: c.X / sum, Cy: c.Y / sum}
}

// XYZ converts back to tristimulus values. A zero y chromaticity yields black.
func (c Yxy) XYZ() XYZ {
	if c.Cy == 0 {
		return XYZ{}
	}
	return XYZ{
		X: c.Cx * c.Y / c.Cy,
		Y: c.Y,
		Z: (1 - c.Cx - c.Cy) * c.Y / c.Cy,
	}
}

func labCompress(t float64) float64 {
	if t > labEpsilon {
		return math.Cbrt(t)
	}
	return (labKappa*t + 16) / 116
}

func labUncompress(ft float64) float64 {
	ft3 := ft * ft * ft
	if ft3 > labEpsilon {
		return ft3
	}
	return (116*ft - 16) / labKappa
}

// Lab converts to L*a*b* relative to white. white must have non-zero components.
func (c XYZ) Lab(white XYZ) Lab {
	fx := labCompress(c.X / white.X)
	fy := labCompress(c.Y / white.Y)
	fz := labCompress(c.Z / white.Z)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// XYZ converts L*a*b* back to tristimulus values relative to white.
func (c Lab) XYZ(white XYZ) XYZ {
	fy := (c.L + 16) / 116
	fx := c.A/500 + fy
	fz := fy - c.B/200
	return XYZ{
		X: labUncompress(fx) * white.X,
		Y: labUncompress(fy) * white.Y,
		Z: labUncompress(fz) * white.Z,
	}
}

// DeltaE76 is the CIE 1976 color difference, the euclidean distance in L*a*b*.
func DeltaE76(a, b Lab) float64 {
	dl, da, db := a.L-b.L, a.A-b.A, a.B-b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}
