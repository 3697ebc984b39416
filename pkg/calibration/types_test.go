package calibration

import (
	"testing"

	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/display"
)

func TestArtifactsCloneIsDeep(t *testing.T) {
	m := display.SRGB
	a := Artifacts{
		Series: []Series{{Channel: 0, Samples: []Sample{{DAC: 255, XYZ: colorimetry.XYZ{X: 1}}}}},
		Model:  &m,
	}
	c := a.Clone()
	c.Series[0].Samples[0].DAC = 0
	c.Model.Primaries[0].X = -1

	if a.Series[0].Samples[0].DAC != 255 {
		t.Fatalf("clone shares series storage")
	}
	if a.Model.Primaries[0].X == -1 {
		t.Fatalf("clone shares the model")
	}
}

func TestExportRows(t *testing.T) {
	white := colorimetry.D65
	row := ColorTableRow{
		Target:    white,
		DeviceRGB: colorimetry.DeviceRGB{255, 255, 255},
		Measured:  white,
	}
	out := row.Export(white)
	if out.DeviceRGB == nil || *out.DeviceRGB != row.DeviceRGB {
		t.Fatalf("device RGB missing from export: %+v", out)
	}
	if out.TargetLab != out.MeasuredLab {
		t.Fatalf("identical colors should export identical Lab")
	}

	ev := EvaluationRow{Target: white, Measured: white}.Export(white)
	if ev.DeviceRGB != nil {
		t.Fatalf("evaluation rows carry no device RGB")
	}
}

func TestArtifactsExport(t *testing.T) {
	a := Artifacts{
		White:      colorimetry.D65,
		ColorTable: []ColorTableRow{{Target: colorimetry.D65, Measured: colorimetry.D65}},
		Evaluation: []EvaluationRow{{Target: colorimetry.D65}, {Target: colorimetry.D65}},
	}
	out := a.Export()
	if len(out.ColorTable) != 1 || len(out.Evaluation) != 2 {
		t.Fatalf("export = %+v", out)
	}
	if out.ColorTable[0].TargetLab.L < 99.999 {
		t.Fatalf("white should export as L=100, got %v", out.ColorTable[0].TargetLab)
	}
}

func TestStateClassification(t *testing.T) {
	for _, s := range []State{StateConnecting, StateWaitingForStart, StateRunning} {
		if !s.Busy() || s.Terminal() {
			t.Errorf("%s should be busy", s)
		}
	}
	for _, s := range []State{StateCompleted, StateStopped, StateFailed} {
		if s.Busy() || !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StateIdle.Busy() || StateIdle.Terminal() {
		t.Errorf("idle is neither busy nor terminal")
	}
}
