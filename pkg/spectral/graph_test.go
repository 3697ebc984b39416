package spectral

import (
	"errors"
	"math"
	"testing"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	steps := []struct {
		name string
		d    *Distribution
	}{
		{"lamp", mustNew(t, 400, 440, 10, []float64{10, 20, 30, 40, 50})},
		{"nd", mustUniform(t, 400, 440, 5, 0.5)},
		{"green", mustNew(t, 390, 450, 10, []float64{0, 0.1, 0.8, 1, 0.8, 0.1, 0})},
	}
	for _, s := range steps {
		if err := g.AddDistribution(s.name, s.d); err != nil {
			t.Fatalf("AddDistribution(%s): %v", s.name, err)
		}
	}
	if err := g.AddLight("filtered", "lamp", "nd", "green"); err != nil {
		t.Fatalf("AddLight: %v", err)
	}
	return g
}

func assertSamples(t *testing.T, d *Distribution, want []float64) {
	t.Helper()
	got := d.Data()
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestLightOutputIsProduct(t *testing.T) {
	g := newTestGraph(t)
	out, err := g.Output("filtered")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	assertSamples(t, out, []float64{10 * 0.5 * 0.1, 20 * 0.5 * 0.8, 30 * 0.5 * 1, 40 * 0.5 * 0.8, 50 * 0.5 * 0.1})
}

func TestLightRejectsIncompatibleFilter(t *testing.T) {
	g := newTestGraph(t)
	if err := g.AddDistribution("short", mustUniform(t, 410, 440, 10, 1)); err != nil {
		t.Fatalf("AddDistribution: %v", err)
	}
	if err := g.AddLight("bad", "lamp", "short"); !errors.Is(err, ErrRangeMismatch) {
		t.Fatalf("expected ErrRangeMismatch, got %v", err)
	}
	if err := g.AddLight("bad", "lamp", "missing"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestSetValueIncremental(t *testing.T) {
	g := newTestGraph(t)
	var calls int
	g.Subscribe("filtered", func(name string, out *Distribution) {
		calls++
		if name != "filtered" {
			t.Errorf("unexpected notification for %s", name)
		}
	})

	if err := g.SetValue("lamp", 420, 100); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	out, _ := g.Output("filtered")
	assertSamples(t, out, []float64{0.5, 8, 100 * 0.5, 16, 2.5})

	// A filter edit between the light's samples does not touch its grid.
	if err := g.SetValue("nd", 415, 0); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	out, _ = g.Output("filtered")
	assertSamples(t, out, []float64{0.5, 8, 50, 16, 2.5})

	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
}

func TestSetDataFullRecompute(t *testing.T) {
	g := newTestGraph(t)
	if err := g.SetData("nd", make([]float64, 9)); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	out, _ := g.Output("filtered")
	assertSamples(t, out, []float64{0, 0, 0, 0, 0})

	if err := g.SetData("filtered", []float64{1, 1, 1, 1, 1}); err == nil {
		t.Fatalf("editing a derived light should fail")
	}
}

func TestChainedLightsAndCycles(t *testing.T) {
	g := newTestGraph(t)
	if err := g.AddLight("twice", "filtered", "nd"); err != nil {
		t.Fatalf("AddLight: %v", err)
	}

	var order []string
	record := func(name string, _ *Distribution) { order = append(order, name) }
	g.Subscribe("filtered", record)
	g.Subscribe("twice", record)

	if err := g.SetValue("lamp", 400, 20); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	out, _ := g.Output("twice")
	assertSamples(t, out, []float64{0.5, 4, 7.5, 8, 1.25})
	if len(order) != 2 || order[0] != "filtered" || order[1] != "twice" {
		t.Fatalf("notifications out of dependency order: %v", order)
	}

	if err := g.Rewire("filtered", "twice"); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if err := g.Rewire("filtered", "filtered"); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self reference, got %v", err)
	}

	if err := g.Rewire("filtered", "lamp"); err != nil {
		t.Fatalf("Rewire: %v", err)
	}
	out, _ = g.Output("twice")
	assertSamples(t, out, []float64{10, 10, 15, 20, 25})
}

func TestRewireKeepsDependentsCovered(t *testing.T) {
	g := NewGraph()
	for _, s := range []struct {
		name string
		d    *Distribution
	}{
		{"lamp", mustUniform(t, 400, 700, 50, 2)},
		{"wide", mustUniform(t, 400, 700, 50, 1)},
		{"narrow", mustUniform(t, 500, 600, 50, 1)},
	} {
		if err := g.AddDistribution(s.name, s.d); err != nil {
			t.Fatalf("AddDistribution(%s): %v", s.name, err)
		}
	}
	if err := g.AddLight("f", "wide"); err != nil {
		t.Fatalf("AddLight(f): %v", err)
	}
	if err := g.AddLight("out", "lamp", "f"); err != nil {
		t.Fatalf("AddLight(out): %v", err)
	}
	if err := g.AddLight("chain", "f"); err != nil {
		t.Fatalf("AddLight(chain): %v", err)
	}

	if err := g.Rewire("f", "narrow"); !errors.Is(err, ErrRangeMismatch) {
		t.Fatalf("expected ErrRangeMismatch, got %v", err)
	}
	f, _ := g.Output("f")
	if f.First() != 400 || f.Last() != 700 {
		t.Fatalf("rejected rewire changed f to %d-%d nm", f.First(), f.Last())
	}
	out, _ := g.Output("out")
	assertSamples(t, out, []float64{2, 2, 2, 2, 2, 2, 2})
}

func TestRewireMovesChainedLightsToNewRange(t *testing.T) {
	g := NewGraph()
	for _, s := range []struct {
		name string
		d    *Distribution
	}{
		{"wide", mustUniform(t, 400, 700, 50, 1)},
		{"narrow", mustUniform(t, 500, 600, 50, 3)},
		{"nd", mustUniform(t, 400, 700, 50, 0.5)},
	} {
		if err := g.AddDistribution(s.name, s.d); err != nil {
			t.Fatalf("AddDistribution(%s): %v", s.name, err)
		}
	}
	if err := g.AddLight("f", "wide"); err != nil {
		t.Fatalf("AddLight(f): %v", err)
	}
	if err := g.AddLight("chain", "f", "nd"); err != nil {
		t.Fatalf("AddLight(chain): %v", err)
	}

	if err := g.Rewire("f", "narrow"); err != nil {
		t.Fatalf("Rewire: %v", err)
	}
	chain, _ := g.Output("chain")
	if chain.First() != 500 || chain.Last() != 600 || chain.Step() != 50 {
		t.Fatalf("chain range = %d-%d/%d nm, want 500-600/50", chain.First(), chain.Last(), chain.Step())
	}
	assertSamples(t, chain, []float64{1.5, 1.5, 1.5})
}
