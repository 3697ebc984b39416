package config

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/gamma"
	"github.com/charlie0129/dispcal/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		GammaSteps:           ptr.To(16),
		GammaVariant:         ptr.To(gamma.TwoParameter.String()),
		FirstSettleMillis:    ptr.To(1000),
		SettleMillis:         ptr.To(300),
		AverageReads:         ptr.To(3),
		SearchMaxIterations:  ptr.To(255),
		ShowAlignmentPattern: ptr.To(false),
		AllowNonRootAccess:   ptr.To(false),
		// Drift checks are opt-in.
		DriftCheckCron: ptr.To(""),
		DriftCheckTargets: []colorimetry.Lab{
			{L: 50},
			{L: 60, A: 20, B: -10},
			{L: 40, A: -15, B: 20},
		},
		Simulator: &Simulator{
			Primaries: display.SRGB.Primaries,
			Gamma:     [3]float64{2.2, 2.2, 2.2},
		},
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	GammaSteps           *int              `json:"gammaSteps,omitempty"`
	GammaVariant         *string           `json:"gammaVariant,omitempty"`
	FirstSettleMillis    *int              `json:"firstSettleMillis,omitempty"`
	SettleMillis         *int              `json:"settleMillis,omitempty"`
	AverageReads         *int              `json:"averageReads,omitempty"`
	SearchMaxIterations  *int              `json:"searchMaxIterations,omitempty"`
	ShowAlignmentPattern *bool             `json:"showAlignmentPattern,omitempty"`
	AllowNonRootAccess   *bool             `json:"allowNonRootAccess,omitempty"`
	DriftCheckCron       *string           `json:"driftCheckCron,omitempty"`
	DriftCheckTargets    []colorimetry.Lab `json:"driftCheckTargets,omitempty"`
	Simulator            *Simulator        `json:"simulator,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	sim := c.Simulator()
	rawConfig := &RawFileConfig{
		GammaSteps:           ptr.To(c.GammaSteps()),
		GammaVariant:         ptr.To(c.GammaVariant().String()),
		FirstSettleMillis:    ptr.To(int(c.FirstSettle().Milliseconds())),
		SettleMillis:         ptr.To(int(c.Settle().Milliseconds())),
		AverageReads:         ptr.To(c.AverageReads()),
		SearchMaxIterations:  ptr.To(c.SearchMaxIterations()),
		ShowAlignmentPattern: ptr.To(c.ShowAlignmentPattern()),
		AllowNonRootAccess:   ptr.To(c.AllowNonRootAccess()),
		DriftCheckCron:       ptr.To(c.DriftCheckCron()),
		DriftCheckTargets:    c.DriftCheckTargets(),
		Simulator:            &sim,
	}

	return rawConfig, nil
}

// positive returns *v when set and positive, the default otherwise.
func positive(v, def *int) int {
	if v != nil && *v > 0 {
		return *v
	}
	return *def
}

// nonNegative returns *v when set and not negative, the default otherwise.
func nonNegative(v, def *int) int {
	if v != nil && *v >= 0 {
		return *v
	}
	return *def
}

func (f *File) GammaSteps() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	steps := positive(f.c.GammaSteps, defaultFileConfig.GammaSteps)
	if steps < 2 {
		steps = 2
	}
	return steps
}

func (f *File) GammaVariant() gamma.Variant {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	s := ptr.Deref(f.c.GammaVariant, *defaultFileConfig.GammaVariant)
	v, err := gamma.ParseVariant(s)
	if err != nil {
		logrus.WithError(err).Warn("invalid gammaVariant in config, using default")
		v, _ = gamma.ParseVariant(*defaultFileConfig.GammaVariant)
	}
	return v
}

func (f *File) FirstSettle() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return time.Duration(nonNegative(f.c.FirstSettleMillis, defaultFileConfig.FirstSettleMillis)) * time.Millisecond
}

func (f *File) Settle() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return time.Duration(nonNegative(f.c.SettleMillis, defaultFileConfig.SettleMillis)) * time.Millisecond
}

func (f *File) AverageReads() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return positive(f.c.AverageReads, defaultFileConfig.AverageReads)
}

func (f *File) SearchMaxIterations() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return positive(f.c.SearchMaxIterations, defaultFileConfig.SearchMaxIterations)
}

func (f *File) ShowAlignmentPattern() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ShowAlignmentPattern, *defaultFileConfig.ShowAlignmentPattern)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) DriftCheckCron() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.DriftCheckCron, *defaultFileConfig.DriftCheckCron)
}

func (f *File) DriftCheckTargets() []colorimetry.Lab {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.c.DriftCheckTargets) > 0 {
		return slices.Clone(f.c.DriftCheckTargets)
	}
	return slices.Clone(defaultFileConfig.DriftCheckTargets)
}

func (f *File) Simulator() Simulator {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	out := *defaultFileConfig.Simulator
	if s := f.c.Simulator; s != nil {
		for i := range s.Primaries {
			if !s.Primaries[i].IsZero() {
				out.Primaries[i] = s.Primaries[i]
			}
			if s.Gamma[i] > 0 {
				out.Gamma[i] = s.Gamma[i]
			}
		}
		if s.Noise > 0 {
			out.Noise = s.Noise
		}
	}
	return out
}

func (f *File) SetGammaSteps(i int) {
	if f.c == nil {
		panic("config is nil")
	}

	if i < 2 {
		panic("gamma steps must be at least 2")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.GammaSteps = &i
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) SetDriftCheckCron(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.DriftCheckCron = &s
}

func (f *File) SetDriftCheckTargets(targets []colorimetry.Lab) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.DriftCheckTargets = slices.Clone(targets)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"gammaSteps":           f.GammaSteps(),
		"gammaVariant":         f.GammaVariant().String(),
		"firstSettle":          f.FirstSettle(),
		"settle":               f.Settle(),
		"averageReads":         f.AverageReads(),
		"searchMaxIterations":  f.SearchMaxIterations(),
		"showAlignmentPattern": f.ShowAlignmentPattern(),
		"allowNonRootAccess":   f.AllowNonRootAccess(),
		"driftCheckCron":       f.DriftCheckCron(),
		"driftCheckTargets":    len(f.DriftCheckTargets()),
	}
}
