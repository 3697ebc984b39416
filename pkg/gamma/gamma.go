// Package gamma models the response of a display channel to its drive level
// and fits that model to measured luminance.
//
// The model for a normalized drive value x in [0, 1] is
//
//	G(x) = (gain·(x−1) + 1)^gamma
//
// and G(x) is defined as 0 wherever the base gain·(x−1)+1 is not positive.
// With gain > 1 the curve therefore has a flat black region below
// x = 1 − 1/gain, which is what makes the objective non-smooth and why the
// fit uses a derivative-free minimizer.
package gamma

import (
	"fmt"
	"math"
	"strings"
)

// Params are the fitted response parameters of one channel.
type Params struct {
	Gamma float64 `json:"gamma"`
	Gain  float64 `json:"gain"`
	// Offset is the normalized black level: the luminance at the lowest
	// measured drive value divided by the luminance at the highest. It is
	// reported alongside the fit and not used by Eval.
	Offset float64 `json:"offset"`
}

// DefaultStart is the initial guess of every fit unless overridden.
var DefaultStart = Params{Gamma: 2.2, Gain: 1}

// Linear is the identity response.
var Linear = Params{Gamma: 1, Gain: 1}

// Eval returns the normalized output for normalized input x.
func (p Params) Eval(x float64) float64 {
	base := p.Gain*(x-1) + 1
	if base <= 0 {
		// Below the cut-off the channel emits nothing. Keep this branch
		// explicit: math.Pow of a negative base is NaN for non-integer gamma.
		return 0
	}
	return math.Pow(base, p.Gamma)
}

// Inverse returns the smallest normalized input in [0, 1] whose output is y.
// Outputs at or below 0 map to the cut-off point; outputs above 1 map to 1.
func (p Params) Inverse(y float64) float64 {
	if p.Gain <= 0 {
		return 1
	}
	if y <= 0 {
		return clamp01(1 - 1/p.Gain)
	}
	if p.Gamma == 0 {
		return clamp01(1 - 1/p.Gain)
	}
	base := math.Pow(y, 1/p.Gamma)
	return clamp01((base-1)/p.Gain + 1)
}

func (p Params) String() string {
	return fmt.Sprintf("gamma=%.4f gain=%.4f offset=%.4f", p.Gamma, p.Gain, p.Offset)
}

func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

// Variant selects which parameters a fit may change.
type Variant int

const (
	// OneParameter fits gamma with gain fixed at 1.
	OneParameter Variant = 1
	// TwoParameter fits gamma and gain.
	TwoParameter Variant = 2
)

func (v Variant) String() string {
	switch v {
	case OneParameter:
		return "one-parameter"
	case TwoParameter:
		return "two-parameter"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant accepts "1", "2", "one-parameter" or "two-parameter".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "one", "one-parameter":
		return OneParameter, nil
	case "2", "two", "two-parameter", "":
		return TwoParameter, nil
	}
	return 0, fmt.Errorf("unknown gamma variant %q", s)
}
