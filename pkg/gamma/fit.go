package gamma

import (
	"errors"
	"math"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/optimize"
)

// ErrInsufficientData is returned when fewer than two measurements are given.
var ErrInsufficientData = errors.New("at least 2 measurements are required")

// flatTolerance is the normalized luminance spread below which the data is
// considered flat.
const flatTolerance = 1e-9

// Pair is a drive level with the luminance measured for it.
type Pair struct {
	DAC       int     `json:"dac"`
	Luminance float64 `json:"luminance"`
}

// Options tunes Fit. The zero value uses DefaultStart and
// optimize.DefaultSettings.
type Options struct {
	Start    *Params
	Settings optimize.Settings
}

// Result of a fit.
type Result struct {
	Params     Params  `json:"params"`
	SSE        float64 `json:"sse"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	// Degenerate is set when the data carries no usable response: the
	// anchor luminance is not positive, or every normalized sample is equal.
	Degenerate bool `json:"degenerate"`
}

// Fit estimates the response parameters from measured pairs.
//
// The first pair must be the anchor: the largest drive level and its
// luminance. Both axes are normalized by it. The sum of squared residuals
// between the model and the normalized luminance is minimized with Powell's
// method from opts.Start (DefaultStart when nil).
//
// Only a local minimum reachable from the start point is found. Callers that
// need confidence in the fit should inspect SSE, and may refit from other
// start points.
func Fit(pairs []Pair, variant Variant, opts *Options) (Result, error) {
	if len(pairs) < 2 {
		return Result{}, pkgerrors.Wrapf(ErrInsufficientData, "got %d", len(pairs))
	}
	if variant != OneParameter && variant != TwoParameter {
		return Result{}, pkgerrors.Errorf("unsupported variant %v", variant)
	}
	if opts == nil {
		opts = &Options{}
	}
	start := DefaultStart
	if opts.Start != nil {
		start = *opts.Start
	}
	if variant == OneParameter {
		start.Gain = 1
	}

	anchor := pairs[0]
	if anchor.DAC <= 0 {
		return Result{}, pkgerrors.Errorf("anchor drive level must be positive, got %d", anchor.DAC)
	}

	log := logrus.WithFields(logrus.Fields{
		"variant": variant,
		"samples": len(pairs),
	})

	if anchor.Luminance <= 0 {
		log.WithField("anchorLuminance", anchor.Luminance).Warn("anchor luminance is not positive, cannot normalize")
		return Result{Params: start, Converged: true, Degenerate: true}, nil
	}

	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	lo, hi := math.Inf(1), math.Inf(-1)
	minDAC := 0
	for i, p := range pairs {
		xs[i] = float64(p.DAC) / float64(anchor.DAC)
		ys[i] = p.Luminance / anchor.Luminance
		lo, hi = math.Min(lo, ys[i]), math.Max(hi, ys[i])
		if p.DAC < pairs[minDAC].DAC {
			minDAC = i
		}
	}
	degenerate := hi-lo < flatTolerance

	toParams := func(x []float64) Params {
		if variant == OneParameter {
			return Params{Gamma: x[0], Gain: 1}
		}
		return Params{Gamma: x[0], Gain: x[1]}
	}
	objective := func(x []float64) float64 {
		p := toParams(x)
		var sse float64
		for i := range xs {
			r := p.Eval(xs[i]) - ys[i]
			sse += r * r
		}
		return sse
	}

	x0 := []float64{start.Gamma}
	if variant == TwoParameter {
		x0 = append(x0, start.Gain)
	}
	res := optimize.Powell(objective, x0, opts.Settings)

	fitted := toParams(res.X)
	fitted.Offset = math.Max(ys[minDAC], 0)

	out := Result{
		Params:     fitted,
		SSE:        res.F,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Degenerate: degenerate,
	}
	entry := log.WithFields(logrus.Fields{
		"gamma":      fitted.Gamma,
		"gain":       fitted.Gain,
		"sse":        res.F,
		"iterations": res.Iterations,
	})
	if degenerate {
		entry.Warn("measured response is flat, fit is degenerate")
	} else {
		entry.Debug("gamma fit finished")
	}
	return out, nil
}
