// Package search finds the device drive values that best reproduce a target
// color when the only way to evaluate a candidate is to display it and read
// a (possibly noisy) meter.
package search

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
)

// MeasureFunc displays rgb, waits for it to settle and returns the mean of
// reads meter readings.
type MeasureFunc func(ctx context.Context, rgb colorimetry.DeviceRGB, reads int) (colorimetry.XYZ, error)

// Options tunes Search. Zero fields take their defaults.
type Options struct {
	// MaxIterations bounds the number of moves of the neighborhood descent.
	MaxIterations int
	// AverageReads is the number of readings averaged per candidate during
	// the neighborhood descent. The line searches read once.
	AverageReads int
}

const (
	DefaultMaxIterations = 255
	DefaultAverageReads  = 3
)

// Result of a search. Distance is the squared XYZ distance between the
// target and Measured.
type Result struct {
	RGB          colorimetry.DeviceRGB `json:"rgb"`
	Measured     colorimetry.XYZ       `json:"measured"`
	Distance     float64               `json:"distance"`
	Measurements int                   `json:"measurements"`
	Iterations   int                   `json:"iterations"`
	// Converged is false when the neighborhood descent stopped because it
	// hit MaxIterations rather than because no neighbor improved.
	Converged bool `json:"converged"`
}

type searcher struct {
	ctx     context.Context
	target  colorimetry.XYZ
	measure MeasureFunc
	count   int
	log     *logrus.Entry
}

type point struct {
	rgb colorimetry.DeviceRGB
	xyz colorimetry.XYZ
	d   float64
}

func (s *searcher) eval(rgb colorimetry.DeviceRGB, reads int) (point, error) {
	if err := s.ctx.Err(); err != nil {
		return point{}, err
	}
	xyz, err := s.measure(s.ctx, rgb, reads)
	if err != nil {
		return point{}, err
	}
	s.count++
	return point{rgb: rgb, xyz: xyz, d: s.target.Dist2(xyz)}, nil
}

// Search looks for the lattice point in [0, 255]³ minimizing the squared
// distance between target and the measured color, starting from start.
//
// It runs three local refinements in order:
//
//  1. a line search along each channel in turn,
//  2. a line search along each constant-sum channel pair (one up, one down),
//  3. a descent over the 8 cube-corner neighbors with averaged readings.
//
// A line search walks while the distance keeps decreasing, reverses at the
// first step that does not improve, and gives up after the second reversal
// or when a step would leave the lattice.
//
// The result is a local minimum. Failing to get close to the target is not
// an error; callers should inspect Distance. Only measurement failures and
// context cancellation are returned as errors.
func Search(ctx context.Context, target colorimetry.XYZ, start colorimetry.DeviceRGB, measure MeasureFunc, opts *Options) (Result, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.AverageReads <= 0 {
		o.AverageReads = DefaultAverageReads
	}

	s := &searcher{
		ctx:     ctx,
		target:  target,
		measure: measure,
		log:     logrus.WithField("target", target),
	}

	cur, err := s.eval(start.Clamp(), 1)
	if err != nil {
		return Result{}, err
	}

	for c := 0; c < 3; c++ {
		var delta [3]int
		delta[c] = 1
		if cur, err = s.line(cur, delta); err != nil {
			return Result{}, err
		}
	}
	s.log.WithFields(logrus.Fields{"rgb": cur.rgb, "distance": cur.d}).Debug("axis search done")

	for _, pair := range [3][2]int{{0, 1}, {1, 2}, {2, 0}} {
		var delta [3]int
		delta[pair[0]], delta[pair[1]] = 1, -1
		if cur, err = s.line(cur, delta); err != nil {
			return Result{}, err
		}
	}
	s.log.WithFields(logrus.Fields{"rgb": cur.rgb, "distance": cur.d}).Debug("paired-axis search done")

	cur, iterations, converged, err := s.descend(cur, o)
	if err != nil {
		return Result{}, err
	}
	s.log.WithFields(logrus.Fields{
		"rgb":          cur.rgb,
		"distance":     cur.d,
		"iterations":   iterations,
		"converged":    converged,
		"measurements": s.count,
	}).Debug("neighborhood descent done")

	return Result{
		RGB:          cur.rgb,
		Measured:     cur.xyz,
		Distance:     cur.d,
		Measurements: s.count,
		Iterations:   iterations,
		Converged:    converged,
	}, nil
}

// line walks from cur along ±delta with single readings.
func (s *searcher) line(cur point, delta [3]int) (point, error) {
	best := cur
	pos := cur.rgb
	dir := 1
	for reversals := 0; reversals < 2; {
		var next colorimetry.DeviceRGB
		for i := range next {
			next[i] = pos[i] + dir*delta[i]
		}
		if !next.InLattice() {
			break
		}
		p, err := s.eval(next, 1)
		if err != nil {
			return point{}, err
		}
		if p.d < best.d {
			best = p
			pos = next
			continue
		}
		reversals++
		dir = -dir
		pos = best.rgb
	}
	return best, nil
}

// descend moves to the best strictly improving cube corner until none
// improves or the iteration bound is hit.
func (s *searcher) descend(cur point, o Options) (point, int, bool, error) {
	// Re-read the starting point with averaging so comparisons are fair.
	cur, err := s.eval(cur.rgb, o.AverageReads)
	if err != nil {
		return point{}, 0, false, err
	}

	for iter := 0; iter < o.MaxIterations; iter++ {
		best := cur
		seen := map[colorimetry.DeviceRGB]bool{cur.rgb: true}
		for corner := 0; corner < 8; corner++ {
			var next colorimetry.DeviceRGB
			for i := range next {
				step := 1
				if corner&(1<<i) != 0 {
					step = -1
				}
				next[i] = cur.rgb[i] + step
			}
			next = next.Clamp()
			if seen[next] {
				continue
			}
			seen[next] = true

			p, err := s.eval(next, o.AverageReads)
			if err != nil {
				return point{}, iter, false, err
			}
			if p.d < best.d {
				best = p
			}
		}
		if best.rgb == cur.rgb {
			return cur, iter, true, nil
		}
		cur = best
	}
	return cur, o.MaxIterations, false, nil
}
