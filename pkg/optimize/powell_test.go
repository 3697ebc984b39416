package optimize

import (
	"math"
	"testing"
)

func TestPowell(t *testing.T) {
	tests := []struct {
		name string
		f    Func
		x0   []float64
		want []float64
		tol  float64
	}{
		{
			name: "shifted quadratic",
			f: func(x []float64) float64 {
				return sq(x[0]-3) + 10*sq(x[1]+1) + 0.5*sq(x[2])
			},
			x0:   []float64{0, 0, 5},
			want: []float64{3, -1, 0},
			tol:  1e-6,
		},
		{
			name: "rosenbrock",
			f: func(x []float64) float64 {
				return 100*sq(x[1]-x[0]*x[0]) + sq(1-x[0])
			},
			x0:   []float64{-1.2, 1},
			want: []float64{1, 1},
			tol:  1e-3,
		},
		{
			name: "non-smooth separable",
			f: func(x []float64) float64 {
				return math.Abs(x[0]-1) + math.Abs(x[1]+2)
			},
			x0:   []float64{5, 5},
			want: []float64{1, -2},
			tol:  1e-5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Powell(tt.f, tt.x0, DefaultSettings)
			for i := range tt.want {
				if math.Abs(res.X[i]-tt.want[i]) > tt.tol {
					t.Fatalf("x = %v, want %v (f=%g, iterations=%d)", res.X, tt.want, res.F, res.Iterations)
				}
			}
		})
	}
}

func TestPowellDoesNotMutateStart(t *testing.T) {
	x0 := []float64{1, 2}
	Powell(func(x []float64) float64 { return sq(x[0]) + sq(x[1]) }, x0, DefaultSettings)
	if x0[0] != 1 || x0[1] != 2 {
		t.Fatalf("start point mutated: %v", x0)
	}
}

func TestPowellTerminatesOnFlatAndNaN(t *testing.T) {
	flat := Powell(func([]float64) float64 { return 1 }, []float64{2.2, 1}, DefaultSettings)
	if !flat.Converged || flat.F != 1 {
		t.Fatalf("flat objective: %+v", flat)
	}

	nan := Powell(func(x []float64) float64 {
		if x[0] < 0 {
			return math.NaN()
		}
		return sq(x[0] - 0.5)
	}, []float64{2}, Settings{MaxIterations: 50})
	if math.IsNaN(nan.F) || math.Abs(nan.X[0]-0.5) > 1e-6 {
		t.Fatalf("NaN region: %+v", nan)
	}
}
