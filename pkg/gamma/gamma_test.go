package gamma

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

// synthesize samples the model at 16 levels from 255 down to 0, scaled to
// a peak luminance of 80.
func synthesize(p Params) []Pair {
	var pairs []Pair
	for i := 0; i < 16; i++ {
		dac := int(math.Round(255 * float64(15-i) / 15))
		pairs = append(pairs, Pair{DAC: dac, Luminance: 80 * p.Eval(float64(dac)/255)})
	}
	return pairs
}

func TestEvalDegenerateBranch(t *testing.T) {
	p := Params{Gamma: 2.2, Gain: 1.25}
	// base <= 0 below x = 1 - 1/1.25 = 0.2
	for _, x := range []float64{0, 0.1, 0.2} {
		if got := p.Eval(x); got != 0 {
			t.Errorf("Eval(%v) = %v, want 0", x, got)
		}
	}
	if got := p.Eval(1); got != 1 {
		t.Errorf("Eval(1) = %v, want 1", got)
	}
	if got := p.Eval(0.6); math.IsNaN(got) || got <= 0 {
		t.Errorf("Eval(0.6) = %v", got)
	}
}

func TestInverse(t *testing.T) {
	for _, p := range []Params{{Gamma: 2.2, Gain: 1}, {Gamma: 1.8, Gain: 0.9}, {Gamma: 2.6, Gain: 1.1}, Linear} {
		for _, x := range []float64{0.15, 0.3, 0.5, 0.75, 1} {
			y := p.Eval(x)
			if got := p.Inverse(y); math.Abs(got-x) > 1e-9 {
				t.Errorf("%v: Inverse(Eval(%v)) = %v", p, x, got)
			}
		}
	}
	if got := (Params{Gamma: 2, Gain: 1.25}).Inverse(0); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("Inverse(0) = %v, want cut-off 0.2", got)
	}
	if got := Linear.Inverse(2); got != 1 {
		t.Errorf("Inverse(2) = %v, want 1", got)
	}
}

func TestFitRecoversTwoParameterModel(t *testing.T) {
	tests := []struct {
		name  string
		truth Params
	}{
		{"gain below one", Params{Gamma: 2.4, Gain: 0.95}},
		{"cut-off near black", Params{Gamma: 2.2, Gain: 1.2}},
		{"wide cut-off", Params{Gamma: 1.8, Gain: 1.5}},
	}
	for _, tt := range tests {
		pairs := synthesize(tt.truth)
		starts := []struct {
			name  string
			start *Params
		}{
			{"from default guess", nil},
			{"from true values", &Params{Gamma: tt.truth.Gamma, Gain: tt.truth.Gain}},
		}
		for _, st := range starts {
			t.Run(tt.name+" "+st.name, func(t *testing.T) {
				res, err := Fit(pairs, TwoParameter, &Options{Start: st.start})
				if err != nil {
					t.Fatalf("Fit: %v", err)
				}
				if math.Abs(res.Params.Gamma-tt.truth.Gamma) > 1e-3 || math.Abs(res.Params.Gain-tt.truth.Gain) > 1e-3 {
					t.Fatalf("fitted %v, want %v (sse=%g)", res.Params, tt.truth, res.SSE)
				}
				if res.Degenerate {
					t.Fatalf("fit should not be degenerate")
				}
			})
		}
	}
}

func TestFitRecoversOneParameterModel(t *testing.T) {
	truth := Params{Gamma: 1.8, Gain: 1}
	pairs := synthesize(truth)
	for _, start := range []*Params{nil, {Gamma: 1.8, Gain: 1}} {
		res, err := Fit(pairs, OneParameter, &Options{Start: start})
		if err != nil {
			t.Fatalf("Fit: %v", err)
		}
		if math.Abs(res.Params.Gamma-truth.Gamma) > 1e-3 {
			t.Fatalf("fitted %v, want %v", res.Params, truth)
		}
		if res.Params.Gain != 1 {
			t.Fatalf("one-parameter fit changed gain: %v", res.Params)
		}
		if res.SSE > 1e-9 {
			t.Fatalf("unexpected residual %g", res.SSE)
		}
	}
}

func TestFitOffsetIsBlackLevel(t *testing.T) {
	pairs := []Pair{{255, 100}, {128, 22}, {0, 0.5}}
	res, err := Fit(pairs, TwoParameter, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(res.Params.Offset-0.005) > 1e-12 {
		t.Fatalf("offset = %v, want 0.005", res.Params.Offset)
	}
}

func TestFitInsufficientData(t *testing.T) {
	for _, pairs := range [][]Pair{nil, {{255, 10}}} {
		if _, err := Fit(pairs, TwoParameter, nil); !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("expected ErrInsufficientData for %d pairs, got %v", len(pairs), err)
		}
	}
}

func TestFitFlatDataIsDegenerate(t *testing.T) {
	pairs := []Pair{{255, 0.3}, {191, 0.3}, {128, 0.3}, {64, 0.3}, {0, 0.3}}
	for _, v := range []Variant{OneParameter, TwoParameter} {
		res, err := Fit(pairs, v, nil)
		if err != nil {
			t.Fatalf("%v: Fit: %v", v, err)
		}
		if !res.Degenerate {
			t.Fatalf("%v: flat data should be reported as degenerate", v)
		}
	}

	res, err := Fit([]Pair{{255, 0}, {0, 0}}, TwoParameter, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !res.Degenerate || res.Params.Gamma != DefaultStart.Gamma {
		t.Fatalf("zero anchor should return the start point flagged degenerate, got %+v", res)
	}
	if res.SSE != 0 {
		t.Fatalf("zero anchor SSE = %v, want 0", res.SSE)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("degenerate result does not marshal: %v", err)
	}
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"1": OneParameter, "two-parameter": TwoParameter, "": TwoParameter} {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Errorf("ParseVariant(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVariant("three"); err == nil {
		t.Errorf("expected error")
	}
}
