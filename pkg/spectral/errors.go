package spectral

import "errors"

var (
	// ErrInvalidRange is returned when (first, last, step) and the data length disagree.
	ErrInvalidRange = errors.New("invalid wavelength range")

	// ErrRangeMismatch is returned when two distributions cannot be combined
	// because their wavelength domains are incompatible.
	ErrRangeMismatch = errors.New("wavelength range mismatch")

	// ErrRange is returned when a distribution extends beyond the tabulated
	// color-matching functions.
	ErrRange = errors.New("wavelength out of color-matching range")

	// ErrCycle is returned when a light would (indirectly) filter itself.
	ErrCycle = errors.New("cyclic light composition")

	// ErrUnknownNode is returned when a graph node name is not registered.
	ErrUnknownNode = errors.New("unknown distribution")
)
