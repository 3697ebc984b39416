package config

import (
	"time"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

type Config interface {
	GammaSteps() int
	GammaVariant() gamma.Variant
	FirstSettle() time.Duration
	Settle() time.Duration
	AverageReads() int
	SearchMaxIterations() int
	ShowAlignmentPattern() bool
	AllowNonRootAccess() bool
	DriftCheckCron() string
	DriftCheckTargets() []colorimetry.Lab
	Simulator() Simulator

	SetGammaSteps(int)
	SetAllowNonRootAccess(bool)
	SetDriftCheckCron(string)
	SetDriftCheckTargets([]colorimetry.Lab)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

// Simulator configures the simulated display and meter the daemon drives
// when no hardware is attached.
type Simulator struct {
	// Primaries are the tristimulus values of each channel at full drive.
	Primaries [3]colorimetry.XYZ `json:"primaries"`
	// Gamma is the exponent of each channel's response.
	Gamma [3]float64 `json:"gamma"`
	// Noise is the relative standard deviation of each reading.
	Noise float64 `json:"noise"`
}
