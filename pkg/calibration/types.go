package calibration

import (
	"time"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/display"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

// TaskKind identifies a measurement task.
type TaskKind string

const (
	TaskGammaParameters TaskKind = "GammaParameters"
	TaskColorTable      TaskKind = "ColorTable"
	TaskEvaluation      TaskKind = "Evaluation"
)

// State is a controller state.
type State string

const (
	StateIdle            State = "Idle"
	StateConnecting      State = "Connecting"
	StateWaitingForStart State = "WaitingForStart"
	StateRunning         State = "Running"
	StateCompleted       State = "Completed"
	StateStopped         State = "Stopped"
	StateFailed          State = "Failed"
)

// Terminal reports whether s ends a task.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

// Busy reports whether a task holds the controller in state s.
func (s State) Busy() bool {
	return s == StateConnecting || s == StateWaitingForStart || s == StateRunning
}

// Options shared by every task.
type Options struct {
	// ShowAlignmentPattern shows the alignment pattern before measuring.
	ShowAlignmentPattern bool `json:"showAlignmentPattern,omitempty"`
	// WaitForStart parks the task in WaitingForStart until resumed.
	WaitForStart bool `json:"waitForStart,omitempty"`
}

// GammaRequest starts a gamma measurement.
type GammaRequest struct {
	Options
	// Channels to sweep. All primaries of the target when empty.
	Channels []int `json:"channels,omitempty"`
	// Steps is the number of drive levels per channel, including 0 and the
	// maximum.
	Steps   int           `json:"steps,omitempty"`
	Variant gamma.Variant `json:"variant,omitempty"`
}

// ColorTableRequest starts a color table search.
type ColorTableRequest struct {
	Options
	Targets []colorimetry.XYZ `json:"targets"`
	// White is the reference white for ΔE. The published model's white, or
	// D65, when nil.
	White         *colorimetry.XYZ `json:"white,omitempty"`
	MaxIterations int              `json:"maxIterations,omitempty"`
	AverageReads  int              `json:"averageReads,omitempty"`
}

// EvaluationRequest starts an evaluation of the published model.
type EvaluationRequest struct {
	Options
	Targets      []colorimetry.Lab `json:"targets"`
	White        *colorimetry.XYZ  `json:"white,omitempty"`
	AverageReads int               `json:"averageReads,omitempty"`
}

// Sample is one reading of a channel sweep.
type Sample struct {
	DAC int             `json:"dac"`
	XYZ colorimetry.XYZ `json:"xyz"`
}

// Series is the sweep of one channel, largest drive level first.
type Series struct {
	Channel int      `json:"channel"`
	Samples []Sample `json:"samples"`
}

// Clone returns a deep copy of s.
func (s Series) Clone() Series {
	s.Samples = append([]Sample(nil), s.Samples...)
	return s
}

// ChannelFit is the fitted response of one channel.
type ChannelFit struct {
	Channel    int          `json:"channel"`
	Params     gamma.Params `json:"params"`
	SSE        float64      `json:"sse"`
	Degenerate bool         `json:"degenerate,omitempty"`
}

// ColorTableRow is the device drive value found for a target.
type ColorTableRow struct {
	Target    colorimetry.XYZ       `json:"target"`
	DeviceRGB colorimetry.DeviceRGB `json:"deviceRGB"`
	Measured  colorimetry.XYZ       `json:"measured"`
	DeltaE    float64               `json:"deltaE"`
	Converged bool                  `json:"converged"`
}

// EvaluationRow compares a target with what the display produced for it.
type EvaluationRow struct {
	Target    colorimetry.XYZ `json:"target"`
	Requested colorimetry.RGB `json:"requested"`
	InGamut   bool            `json:"inGamut"`
	Measured  colorimetry.XYZ `json:"measured"`
	DeltaE    float64         `json:"deltaE"`
}

// ExportRow is the flat form of a color table or evaluation row.
// DeviceRGB is nil for evaluation rows.
type ExportRow struct {
	TargetYxy   colorimetry.Yxy        `json:"targetYxy"`
	MeasuredYxy colorimetry.Yxy        `json:"measuredYxy"`
	TargetLab   colorimetry.Lab        `json:"targetLab"`
	MeasuredLab colorimetry.Lab        `json:"measuredLab"`
	DeltaE      float64                `json:"deltaE"`
	TargetXYZ   colorimetry.XYZ        `json:"targetXYZ"`
	DeviceRGB   *colorimetry.DeviceRGB `json:"deviceRGB,omitempty"`
}

func exportRow(target, measured, white colorimetry.XYZ, deltaE float64) ExportRow {
	return ExportRow{
		TargetYxy:   target.Yxy(),
		MeasuredYxy: measured.Yxy(),
		TargetLab:   target.Lab(white),
		MeasuredLab: measured.Lab(white),
		DeltaE:      deltaE,
		TargetXYZ:   target,
	}
}

// Export flattens r using white for the Lab columns.
func (r ColorTableRow) Export(white colorimetry.XYZ) ExportRow {
	out := exportRow(r.Target, r.Measured, white, r.DeltaE)
	rgb := r.DeviceRGB
	out.DeviceRGB = &rgb
	return out
}

// Export flattens r using white for the Lab columns.
func (r EvaluationRow) Export(white colorimetry.XYZ) ExportRow {
	return exportRow(r.Target, r.Measured, white, r.DeltaE)
}

// Artifacts are the results of the last task of each kind.
type Artifacts struct {
	Series     []Series        `json:"series,omitempty"`
	Fits       []ChannelFit    `json:"fits,omitempty"`
	Model      *display.Model  `json:"model,omitempty"`
	White      colorimetry.XYZ `json:"white"`
	ColorTable []ColorTableRow `json:"colorTable,omitempty"`
	Evaluation []EvaluationRow `json:"evaluation,omitempty"`
}

// Clone returns a deep copy of a.
func (a Artifacts) Clone() Artifacts {
	out := a
	out.Series = nil
	for _, s := range a.Series {
		out.Series = append(out.Series, s.Clone())
	}
	out.Fits = append([]ChannelFit(nil), a.Fits...)
	out.ColorTable = append([]ColorTableRow(nil), a.ColorTable...)
	out.Evaluation = append([]EvaluationRow(nil), a.Evaluation...)
	if a.Model != nil {
		m := *a.Model
		out.Model = &m
	}
	return out
}

// Export is the flat form of the color table and evaluation results.
type Export struct {
	White      colorimetry.XYZ `json:"white"`
	ColorTable []ExportRow     `json:"colorTable,omitempty"`
	Evaluation []ExportRow     `json:"evaluation,omitempty"`
}

// Export flattens the color table and evaluation rows against a.White.
func (a Artifacts) Export() Export {
	out := Export{White: a.White}
	for _, r := range a.ColorTable {
		out.ColorTable = append(out.ColorTable, r.Export(a.White))
	}
	for _, r := range a.Evaluation {
		out.Evaluation = append(out.Evaluation, r.Export(a.White))
	}
	return out
}

// Outcome is how a task ended.
type Outcome struct {
	Task       TaskKind  `json:"task"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Status is a snapshot of the controller exposed over HTTP.
type Status struct {
	State     State     `json:"state"`
	Task      TaskKind  `json:"task,omitempty"`
	Progress  int       `json:"progress"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	CanResume bool      `json:"canResume"`
	CanStop   bool      `json:"canStop"`
	Last      *Outcome  `json:"last,omitempty"`
	// NextDriftCheck is the next scheduled evaluation, zero when none.
	NextDriftCheck time.Time `json:"nextDriftCheck,omitempty"`
}
