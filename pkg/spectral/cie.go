package spectral

import "fmt"

// Observer selects a CIE standard observer by its field of view in degrees.
type Observer int

const (
	Observer2  Observer = 2
	Observer10 Observer = 10
)

func (o Observer) table() ([]MatchingFunction, error) {
	switch o {
	case Observer2:
		return cie1931[:], nil
	case Observer10:
		return cie1964[:], nil
	}
	return nil, fmt.Errorf("unsupported observer: %d degree", int(o))
}

// matchingAt linearly interpolates a 5 nm table at wavelength w, which must
// lie in [cmfFirst, cmfLast].
func matchingAt(table []MatchingFunction, w int) MatchingFunction {
	off := w - cmfFirst
	i := off / cmfStep
	rem := off % cmfStep
	if rem == 0 {
		return table[i]
	}
	a, b := table[i], table[i+1]
	f := float64(rem) / cmfStep
	return MatchingFunction{
		Wavelength: w,
		X:          a.X + (b.X-a.X)*f,
		Y:          a.Y + (b.Y-a.Y)*f,
		Z:          a.Z + (b.Z-a.Z)*f,
	}
}

// MatchingFunctionAt returns the interpolated matching function of observer
// at wavelength w.
func MatchingFunctionAt(observer Observer, w int) (MatchingFunction, error) {
	table, err := observer.table()
	if err != nil {
		return MatchingFunction{}, err
	}
	if w < cmfFirst || w > cmfLast {
		return MatchingFunction{}, fmt.Errorf("matching function for wavelength %d not found", w)
	}
	return matchingAt(table, w), nil
}
