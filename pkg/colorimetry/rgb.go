package colorimetry

import "fmt"

// MaxDAC is the largest drive level of an 8-bit display channel.
const MaxDAC = 255

// DeviceRGB is an integer drive triple on the [0, MaxDAC] lattice.
type DeviceRGB [3]int

// RGB is a normalized drive triple, each component in [0, 1].
type RGB [3]float64

// InLattice reports whether every component lies in [0, MaxDAC].
func (c DeviceRGB) InLattice() bool {
	for _, v := range c {
		if v < 0 || v > MaxDAC {
			return false
		}
	}
	return true
}

// Clamp limits every component to [0, MaxDAC].
func (c DeviceRGB) Clamp() DeviceRGB {
	for i, v := range c {
		c[i] = min(max(v, 0), MaxDAC)
	}
	return c
}

// Normalized maps the drive triple onto [0, 1].
func (c DeviceRGB) Normalized() RGB {
	return RGB{
		float64(c[0]) / MaxDAC,
		float64(c[1]) / MaxDAC,
		float64(c[2]) / MaxDAC,
	}
}

func (c DeviceRGB) String() string {
	return fmt.Sprintf("RGB(%d, %d, %d)", c[0], c[1], c[2])
}

// Clamp limits every component to [0, 1].
func (c RGB) Clamp() RGB {
	for i, v := range c {
		c[i] = min(max(v, 0), 1)
	}
	return c
}

// Quantize rounds to the nearest lattice point.
func (c RGB) Quantize() DeviceRGB {
	var out DeviceRGB
	for i, v := range c.Clamp() {
		out[i] = int(v*MaxDAC + 0.5)
	}
	return out
}
