package spectral

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, first, last, step int, data []float64) *Distribution {
	t.Helper()
	d, err := New(first, last, step, data)
	if err != nil {
		t.Fatalf("New(%d, %d, %d): %v", first, last, step, err)
	}
	return d
}

func mustUniform(t *testing.T, first, last, step int, v float64) *Distribution {
	t.Helper()
	d, err := NewUniform(first, last, step, v)
	if err != nil {
		t.Fatalf("NewUniform(%d, %d, %d): %v", first, last, step, err)
	}
	return d
}

func TestNewRejectsInvalidRange(t *testing.T) {
	tests := []struct {
		name              string
		first, last, step int
		n                 int
	}{
		{"step does not divide span", 400, 703, 10, 31},
		{"wrong length", 400, 700, 10, 30},
		{"zero step", 400, 700, 0, 1},
		{"reversed", 700, 400, 10, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.first, tt.last, tt.step, make([]float64, tt.n))
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestValueAt(t *testing.T) {
	d := mustNew(t, 400, 420, 10, []float64{1, 3, 5})
	tests := []struct {
		w    int
		want float64
	}{
		{399, 0},
		{400, 1},
		{405, 2},
		{410, 3},
		{417, 4.4},
		{420, 5},
		{421, 0},
	}
	for _, tt := range tests {
		if got := d.ValueAt(tt.w); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ValueAt(%d) = %v, want %v", tt.w, got, tt.want)
		}
	}
}

func TestModifyWavelengthRangeIdentity(t *testing.T) {
	data := []float64{0.1, 0.4, 0.9, 0.3, 0.25, 0.7, 0.05}
	d := mustNew(t, 400, 700, 50, data)
	if err := d.ModifyWavelengthRange(400, 700, 50); err != nil {
		t.Fatalf("ModifyWavelengthRange: %v", err)
	}
	got := d.Data()
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("sample %d changed: %v -> %v", i, data[i], got[i])
		}
	}
}

func TestModifyWavelengthRangeResamples(t *testing.T) {
	d := mustNew(t, 400, 500, 50, []float64{0, 10, 20})
	if err := d.ModifyWavelengthRange(350, 550, 25); err != nil {
		t.Fatalf("ModifyWavelengthRange: %v", err)
	}
	want := []float64{0, 0, 0, 5, 10, 15, 20, 0, 0}
	got := d.Data()
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d (%d nm) = %v, want %v", i, d.Wavelength(i), got[i], want[i])
		}
	}
	if d.First() != 350 || d.Last() != 550 || d.Step() != 25 {
		t.Errorf("unexpected range %d-%d/%d", d.First(), d.Last(), d.Step())
	}
}

func TestLuminanceScalesLinearly(t *testing.T) {
	base := mustUniform(t, 380, 780, 5, 0.01)
	l1, err := base.Luminance()
	if err != nil {
		t.Fatalf("Luminance: %v", err)
	}
	if l1 <= 0 {
		t.Fatalf("expected positive luminance, got %v", l1)
	}
	for _, k := range []float64{0.5, 2, 13.7} {
		scaled := mustUniform(t, 380, 780, 5, 0.01*k)
		lk, err := scaled.Luminance()
		if err != nil {
			t.Fatalf("Luminance: %v", err)
		}
		if math.Abs(lk-k*l1) > 1e-9*k*l1 {
			t.Errorf("k=%v: luminance %v, want %v", k, lk, k*l1)
		}
	}
}

func TestToXYZEqualEnergyIsNeutral(t *testing.T) {
	d, _ := Named("E")
	xyz, err := d.ToXYZ(Observer2)
	if err != nil {
		t.Fatalf("ToXYZ: %v", err)
	}
	c := xyz.Yxy()
	if math.Abs(c.Cx-1.0/3) > 0.002 || math.Abs(c.Cy-1.0/3) > 0.002 {
		t.Fatalf("equal energy chromaticity = (%v, %v), want about (1/3, 1/3)", c.Cx, c.Cy)
	}
}

func TestIlluminantAChromaticity(t *testing.T) {
	d, ok := Named("A")
	if !ok {
		t.Fatalf("illuminant A not registered")
	}
	xyz, err := d.ToXYZ(Observer2)
	if err != nil {
		t.Fatalf("ToXYZ: %v", err)
	}
	c := xyz.Yxy()
	if math.Abs(c.Cx-0.4476) > 0.002 || math.Abs(c.Cy-0.4074) > 0.002 {
		t.Fatalf("illuminant A chromaticity = (%v, %v)", c.Cx, c.Cy)
	}
}

func TestNamedReturnsCopy(t *testing.T) {
	a, _ := Named("E")
	a.Scale(0)
	b, _ := Named("E")
	if b.Max() != 1 {
		t.Fatalf("registry was mutated through a returned copy")
	}
}

func TestToXYZOutOfRange(t *testing.T) {
	d := mustUniform(t, 300, 700, 10, 1)
	if _, err := d.ToXYZ(Observer2); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	d = mustUniform(t, 400, 900, 10, 1)
	if _, err := d.ToXYZ(Observer10); !errors.Is(err, ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestFilterByConstants(t *testing.T) {
	src := mustNew(t, 400, 440, 10, []float64{1, 2, 3, 4, 5})

	ones := mustUniform(t, 380, 460, 5, 1)
	d := src.Clone()
	if err := d.Filter(ones); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	for i, v := range d.Data() {
		if v != src.Data()[i] {
			t.Fatalf("filtering by 1.0 changed sample %d: %v", i, v)
		}
	}

	zeros := mustUniform(t, 400, 440, 10, 0)
	d = src.Clone()
	if err := d.Filter(zeros); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	for i, v := range d.Data() {
		if v != 0 {
			t.Fatalf("filtering by 0.0 left sample %d = %v", i, v)
		}
	}
}

func TestFilterRangeMismatch(t *testing.T) {
	src := mustUniform(t, 400, 440, 10, 1)
	tests := []struct {
		name   string
		filter *Distribution
	}{
		{"narrower", mustUniform(t, 410, 440, 10, 1)},
		{"coarser step", mustUniform(t, 400, 440, 20, 1)},
		{"step not dividing", mustUniform(t, 400, 442, 3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := src.Clone().Filter(tt.filter); !errors.Is(err, ErrRangeMismatch) {
				t.Fatalf("expected ErrRangeMismatch, got %v", err)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	a := mustNew(t, 400, 420, 10, []float64{1, 2, 3})
	b := mustNew(t, 400, 420, 10, []float64{3, 2, 1})
	if err := a.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, v := range a.Data() {
		if v != 4 {
			t.Fatalf("unexpected sum %v", a.Data())
		}
	}
	if err := a.Add(mustUniform(t, 400, 430, 10, 1)); !errors.Is(err, ErrRangeMismatch) {
		t.Fatalf("expected ErrRangeMismatch, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	d := mustNew(t, 400, 420, 10, []float64{1, 4, 2})
	d.Normalize()
	want := []float64{0.25, 1, 0.5}
	for i, v := range d.Data() {
		if v != want[i] {
			t.Fatalf("Normalize = %v, want %v", d.Data(), want)
		}
	}

	z := mustUniform(t, 400, 420, 10, 0)
	z.Normalize()
	for _, v := range z.Data() {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("normalizing zeros produced %v", z.Data())
		}
	}
}

func TestBlackbodyPeak(t *testing.T) {
	// Wien: peak near 2.898e6/T nm.
	d, err := Blackbody(5000, 360, 830, 1)
	if err != nil {
		t.Fatalf("Blackbody: %v", err)
	}
	peak, best := 0, 0.0
	for i, v := range d.Data() {
		if v > best {
			peak, best = d.Wavelength(i), v
		}
	}
	if peak < 575 || peak > 585 {
		t.Fatalf("5000 K peak at %d nm, want about 580 nm", peak)
	}
}
