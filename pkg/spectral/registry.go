package spectral

import (
	"math"
	"slices"
	"sync"
)

const (
	planckH = 6.62607015e-34 // J·s
	lightC  = 2.99792458e8   // m/s
	boltzK  = 1.380649e-23   // J/K
)

var (
	registryOnce sync.Once
	registry     map[string]*Distribution
)

func buildRegistry() {
	equal, _ := NewUniform(cmfFirst, cmfLast, cmfStep, 1)

	// CIE illuminant A, normalized to 100 at 560 nm.
	a := make([]float64, (cmfLast-cmfFirst)/cmfStep+1)
	const c2 = 1.435e7
	ref := math.Exp(c2/(2848*560)) - 1
	for i := range a {
		w := float64(cmfFirst + i*cmfStep)
		a[i] = 100 * math.Pow(560/w, 5) * ref / (math.Exp(c2/(2848*w)) - 1)
	}
	illuminantA, _ := New(cmfFirst, cmfLast, cmfStep, a)

	registry = map[string]*Distribution{
		"E": equal,
		"A": illuminantA,
	}
}

// Named returns a copy of a built-in distribution. The table itself is built
// once and never mutated.
func Named(name string) (*Distribution, bool) {
	registryOnce.Do(buildRegistry)
	d, ok := registry[name]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Names lists the built-in distributions.
func Names() []string {
	registryOnce.Do(buildRegistry)
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Blackbody returns the spectral radiance of a black body at tempK kelvin in
// W/(sr·m²·nm).
func Blackbody(tempK float64, first, last, step int) (*Distribution, error) {
	d, err := NewUniform(first, last, step, 0)
	if err != nil {
		return nil, err
	}
	for i := range d.data {
		lambda := float64(d.Wavelength(i)) * 1e-9
		radiance := 2 * planckH * lightC * lightC / math.Pow(lambda, 5) /
			(math.Exp(planckH*lightC/(lambda*boltzK*tempK)) - 1)
		d.data[i] = radiance * 1e-9
	}
	return d, nil
}
