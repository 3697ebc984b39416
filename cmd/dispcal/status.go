package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/config"
	"github.com/charlie0129/dispcal/pkg/device"
	"github.com/charlie0129/dispcal/pkg/display"
)

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of dispcal",
		Long:    `Get the controller state, the last task outcome and the configuration.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetStatus()
			if err != nil {
				return err
			}
			raw, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}
			if asJSON {
				return printJSON(cmd, struct {
					Status *calibration.Status    `json:"status"`
					Config *config.RawFileConfig `json:"config"`
				}{st, raw})
			}
			conf := config.NewFileFromConfig(raw, "")

			cmd.Println(bold("Controller:"))
			cmd.Printf("  State: %s\n", stateText(st.State))
			if st.State.Busy() {
				cmd.Printf("  Task: %s\n", bold("%s", st.Task))
				cmd.Printf("  Progress: %s\n", bold("%d%%", st.Progress))
				cmd.Printf("  Running for: %s\n", time.Since(st.StartedAt).Round(time.Second))
				cmd.Printf("  Can resume: %s  Can stop: %s\n", bool2Text(st.CanResume), bool2Text(st.CanStop))
			}
			if st.Last != nil {
				cmd.Printf("  Last task: %s %s at %s\n", st.Last.Task, stateText(st.Last.State), st.Last.FinishedAt.Local().Format(time.DateTime))
				if st.Last.Error != "" {
					cmd.Printf("    Error: %s\n", st.Last.Error)
				}
			}
			if !st.NextDriftCheck.IsZero() {
				cmd.Printf("  Next drift check: %s\n", bold("%s", st.NextDriftCheck.Local().Format(time.DateTime)))
			}

			cmd.Println()
			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Gamma steps: %s (%s)\n", bold("%d", conf.GammaSteps()), conf.GammaVariant())
			cmd.Printf("  Settle: %s first, %s after\n", bold("%s", conf.FirstSettle()), bold("%s", conf.Settle()))
			cmd.Printf("  Readings averaged: %s\n", bold("%d", conf.AverageReads()))
			cmd.Printf("  Search iteration bound: %s\n", bold("%d", conf.SearchMaxIterations()))
			cmd.Printf("  Show alignment pattern: %s\n", bool2Text(conf.ShowAlignmentPattern()))
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			if c := conf.DriftCheckCron(); c != "" {
				cmd.Printf("  Drift check schedule: %s (%d targets)\n", bold("%s", c), len(conf.DriftCheckTargets()))
			} else {
				cmd.Printf("  Drift check schedule: %s\n", bool2Text(false))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func NewResultsCommand() *cobra.Command {
	var asJSON, raw bool

	cmd := &cobra.Command{
		Use:     "results",
		GroupID: gBasic,
		Short:   "Show the results of the last tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := apiClient.GetArtifacts()
			if err != nil {
				return err
			}
			if raw {
				return printJSON(cmd, a)
			}
			ex, err := apiClient.GetExport()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, ex)
			}

			if len(a.Fits) > 0 {
				cmd.Println(bold("Gamma fits:"))
				for _, f := range a.Fits {
					note := ""
					if f.Degenerate {
						note = " (no usable response)"
					}
					cmd.Printf("  %-5s %s  SSE %.3g%s\n", device.ChannelName(f.Channel), bold("%s", f.Params), f.SSE, note)
				}
				cmd.Println()
			}
			if len(ex.ColorTable) > 0 {
				cmd.Println(bold("Color table:"))
				cmd.Printf("  %-26s %-14s %s\n", "target (Yxy)", "device RGB", "ΔE")
				for _, r := range ex.ColorTable {
					cmd.Printf("  %-26s %-14s %s\n", yxyText(r.TargetYxy), r.DeviceRGB, deltaEText(r.DeltaE))
				}
				cmd.Println()
			}
			if len(ex.Evaluation) > 0 {
				cmd.Println(bold("Evaluation:"))
				cmd.Printf("  %-26s %-26s %s\n", "target (Lab)", "measured (Lab)", "ΔE")
				for _, r := range ex.Evaluation {
					cmd.Printf("  %-26s %-26s %s\n", labText(r.TargetLab), labText(r.MeasuredLab), deltaEText(r.DeltaE))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the flat export as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print every artifact, including gamma series, as JSON")

	return cmd
}

func NewModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "model",
		GroupID: gAdvanced,
		Short:   "Show or publish the display model",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := apiClient.GetModel()
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <file>",
		Short: "Publish a display model from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m display.Model
			if err := readJSON(args[0], &m); err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			if _, err := apiClient.SetModel(m); err != nil {
				return fmt.Errorf("failed to publish model: %w", err)
			}
			cmd.Println("Display model published.")
			return nil
		},
	})

	return cmd
}

func yxyText(c colorimetry.Yxy) string {
	return fmt.Sprintf("Y=%.2f x=%.4f y=%.4f", c.Y, c.Cx, c.Cy)
}

func labText(c colorimetry.Lab) string {
	return fmt.Sprintf("L=%.2f a=%.2f b=%.2f", c.L, c.A, c.B)
}

// deltaEText colors a color difference by how visible it is.
func deltaEText(d float64) string {
	s := fmt.Sprintf("%.2f", d)
	switch {
	case d < 1:
		return color.GreenString(s)
	case d < 3:
		return color.YellowString(s)
	}
	return color.RedString(s)
}
