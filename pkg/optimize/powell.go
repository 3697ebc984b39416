// Package optimize provides a derivative-free minimizer for small, possibly
// non-smooth objectives.
package optimize

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Func is an objective over a parameter vector.
type Func func(x []float64) float64

// Settings tunes Powell.
type Settings struct {
	// MaxIterations bounds the number of outer (direction-set) iterations.
	MaxIterations int
	// Tolerance is the fractional decrease of the objective below which an
	// outer iteration counts as converged.
	Tolerance float64
	// LineTolerance is the fractional precision of each line minimization.
	LineTolerance float64
}

// DefaultSettings are suitable for fits with a handful of parameters.
var DefaultSettings = Settings{
	MaxIterations: 200,
	Tolerance:     1e-12,
	LineTolerance: 1e-8,
}

// Result of a minimization.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	Converged  bool
}

// ceiling replaces non-finite or huge objective values so the bracketing
// arithmetic never overflows.
const ceiling = 1e100

func guard(f Func) Func {
	return func(x []float64) float64 {
		v := f(x)
		if math.IsNaN(v) || v > ceiling {
			return ceiling
		}
		return v
	}
}

// Powell minimizes f from x0 with Powell's conjugate direction method,
// starting from the coordinate axes and replacing the direction of largest
// decrease by the average direction of each sweep. Each direction is searched
// with Brent's method, so no derivatives are needed.
//
// The result is a local minimum reachable from x0; there is no guarantee of
// a global one. When MaxIterations is reached Converged is false and the
// best point found is returned.
func Powell(f Func, x0 []float64, s Settings) Result {
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultSettings.MaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultSettings.Tolerance
	}
	if s.LineTolerance <= 0 {
		s.LineTolerance = DefaultSettings.LineTolerance
	}
	f = guard(f)

	n := len(x0)
	dirs := make([][]float64, n)
	for i := range dirs {
		dirs[i] = make([]float64, n)
		dirs[i][i] = 1
	}

	p := append([]float64(nil), x0...)
	pt := append([]float64(nil), x0...)
	ptt := make([]float64, n)
	xit := make([]float64, n)
	fret := f(p)

	for iter := 1; iter <= s.MaxIterations; iter++ {
		fp := fret
		ibig := 0
		del := 0.0
		for i := 0; i < n; i++ {
			fptt := fret
			fret = lineMinimize(f, p, dirs[i], s.LineTolerance)
			if fptt-fret > del {
				del = fptt - fret
				ibig = i
			}
		}

		if 2*(fp-fret) <= s.Tolerance*(math.Abs(fp)+math.Abs(fret))+1e-25 {
			return Result{X: p, F: fret, Iterations: iter, Converged: true}
		}

		floats.SubTo(xit, p, pt)
		floats.AddScaledTo(ptt, p, 1, xit)
		copy(pt, p)

		fptt := f(ptt)
		if fptt < fp {
			t := 2*(fp-2*fret+fptt)*sq(fp-fret-del) - del*sq(fp-fptt)
			if t < 0 {
				dir := append([]float64(nil), xit...)
				fret = lineMinimize(f, p, dir, s.LineTolerance)
				dirs[ibig] = dirs[n-1]
				dirs[n-1] = dir
			}
		}
	}
	return Result{X: p, F: fret, Iterations: s.MaxIterations, Converged: false}
}

func sq(x float64) float64 { return x * x }

// lineMinimize moves p to the minimum of f along dir, rescales dir to the
// step actually taken, and returns the new objective value.
func lineMinimize(f Func, p, dir []float64, tol float64) float64 {
	trial := make([]float64, len(p))
	g := func(a float64) float64 {
		floats.AddScaledTo(trial, p, a, dir)
		return f(trial)
	}

	ax, bx, cx := bracket(g, 0, 1)
	xmin, fmin := brent(g, ax, bx, cx, tol)

	floats.Scale(xmin, dir)
	floats.Add(p, dir)
	return fmin
}

const (
	golden    = 1.618034
	growLimit = 100.0
	tiny      = 1e-20
	cgold     = 0.3819660
	zeps      = 1e-18
)

// bracket searches downhill from a and b for a triple (a, b, c) with
// g(b) <= g(a) and g(b) <= g(c).
func bracket(g func(float64) float64, a, b float64) (float64, float64, float64) {
	fa, fb := g(a), g(b)
	if fb > fa {
		a, b = b, a
		fa, fb = fb, fa
	}
	c := b + golden*(b-a)
	fc := g(c)

	for i := 0; fb > fc && i < 200; i++ {
		r := (b - a) * (fb - fc)
		q := (b - c) * (fb - fa)
		u := b - ((b-c)*q-(b-a)*r)/(2*math.Copysign(math.Max(math.Abs(q-r), tiny), q-r))
		ulim := b + growLimit*(c-b)
		var fu float64

		switch {
		case (b-u)*(u-c) > 0:
			fu = g(u)
			if fu < fc {
				return b, u, c
			} else if fu > fb {
				return a, b, u
			}
			u = c + golden*(c-b)
			fu = g(u)
		case (c-u)*(u-ulim) > 0:
			fu = g(u)
			if fu < fc {
				b, c, u = c, u, u+golden*(u-c)
				fb, fc, fu = fc, fu, g(u)
			}
		case (u-ulim)*(ulim-c) >= 0:
			u = ulim
			fu = g(u)
		default:
			u = c + golden*(c-b)
			fu = g(u)
		}

		a, b, c = b, c, u
		fa, fb, fc = fb, fc, fu
	}
	return a, b, c
}

// brent finds the minimum of g inside the bracket (a, b, c) to fractional
// precision tol.
func brent(g func(float64) float64, ax, bx, cx, tol float64) (float64, float64) {
	a, b := math.Min(ax, cx), math.Max(ax, cx)
	x, w, v := bx, bx, bx
	fx := g(x)
	fw, fv := fx, fx
	var d, e float64

	for iter := 0; iter < 100; iter++ {
		xm := 0.5 * (a + b)
		tol1 := tol*math.Abs(x) + zeps
		tol2 := 2 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(b-a) {
			break
		}

		if math.Abs(e) > tol1 {
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d
			if math.Abs(p) >= math.Abs(0.5*q*etemp) || p <= q*(a-x) || p >= q*(b-x) {
				e = goldenStep(x, xm, a, b)
				d = cgold * e
			} else {
				d = p / q
				u := x + d
				if u-a < tol2 || b-u < tol2 {
					d = math.Copysign(tol1, xm-x)
				}
			}
		} else {
			e = goldenStep(x, xm, a, b)
			d = cgold * e
		}

		u := x + math.Copysign(tol1, d)
		if math.Abs(d) >= tol1 {
			u = x + d
		}
		fu := g(u)

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
		} else {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, w = w, u
				fv, fw = fw, fu
			} else if fu <= fv || v == x || v == w {
				v = u
				fv = fu
			}
		}
	}
	return x, fx
}

func goldenStep(x, xm, a, b float64) float64 {
	if x >= xm {
		return a - x
	}
	return b - x
}
