package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/calibration"
	"github.com/charlie0129/dispcal/pkg/colorimetry"
	"github.com/charlie0129/dispcal/pkg/gamma"
)

func addOptionFlags(cmd *cobra.Command, o *calibration.Options, watch *bool) {
	f := cmd.Flags()
	f.BoolVar(&o.WaitForStart, "wait-for-start", false, "Wait for 'dispcal resume' before measuring")
	f.BoolVar(&o.ShowAlignmentPattern, "alignment-pattern", false, "Show the alignment pattern while waiting")
	f.BoolVarP(watch, "watch", "w", false, "Follow progress until the task finishes")
}

func NewGammaCommand() *cobra.Command {
	var (
		req      calibration.GammaRequest
		channels []string
		variant  string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:     "gamma",
		Short:   "Measure the response curve of each channel",
		GroupID: gBasic,
		Long: `Measure the response curve of each channel.

Each channel is swept from full drive down to zero and a gamma curve is fitted
to the measured luminance. When all three primaries are measured the daemon
publishes a display model that evaluations and color table searches use.`,
		Example: `  dispcal gamma --watch
  dispcal gamma --channels r,g --steps 32 --variant one-parameter`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.Channels, err = parseChannels(channels); err != nil {
				return err
			}
			if variant != "" {
				if req.Variant, err = gamma.ParseVariant(variant); err != nil {
					return err
				}
			}
			return startTask(cmd, watch, func() (*calibration.Status, error) {
				return apiClient.StartGamma(req)
			})
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&channels, "channels", nil, "Channels to measure (r, g, b). All when empty")
	f.IntVar(&req.Steps, "steps", 0, "Drive levels per channel, including 0 and full drive. Config default when 0")
	f.StringVar(&variant, "variant", "", "Fit variant: one-parameter or two-parameter. Config default when empty")
	addOptionFlags(cmd, &req.Options, &watch)

	return cmd
}

func NewTableCommand() *cobra.Command {
	var (
		req     calibration.ColorTableRequest
		targets []string
		file    string
		white   string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:     "table",
		Short:   "Search the device values that reproduce target colors",
		GroupID: gBasic,
		Long: `Search the device values that reproduce target colors.

Targets are CIE XYZ values, given with --target x,y,z or as a JSON array of
{"x":..,"y":..,"z":..} objects in a file.`,
		Example: `  dispcal table --target 41.24,21.26,1.93 --target 95.05,100,108.9 --watch
  dispcal table --file targets.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				if err := readJSON(file, &req.Targets); err != nil {
					return err
				}
			}
			for _, t := range targets {
				v, err := parseTriple(t)
				if err != nil {
					return err
				}
				req.Targets = append(req.Targets, colorimetry.XYZ{X: v[0], Y: v[1], Z: v[2]})
			}
			if len(req.Targets) == 0 {
				return fmt.Errorf("no targets given")
			}
			if white != "" {
				v, err := parseTriple(white)
				if err != nil {
					return err
				}
				req.White = &colorimetry.XYZ{X: v[0], Y: v[1], Z: v[2]}
			}
			logrus.WithField("targets", len(req.Targets)).Debug("starting color table search")
			return startTask(cmd, watch, func() (*calibration.Status, error) {
				return apiClient.StartColorTable(req)
			})
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&targets, "target", nil, "Target color as x,y,z (repeatable)")
	f.StringVarP(&file, "file", "f", "", "JSON file with target colors, - for stdin")
	f.StringVar(&white, "white", "", "Reference white as x,y,z for ΔE")
	f.IntVar(&req.MaxIterations, "max-iterations", 0, "Bound of the final search phase. Config default when 0")
	f.IntVar(&req.AverageReads, "reads", 0, "Readings averaged per measurement. Config default when 0")
	addOptionFlags(cmd, &req.Options, &watch)

	return cmd
}

func NewEvaluateCommand() *cobra.Command {
	var (
		req     calibration.EvaluationRequest
		targets []string
		file    string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:     "evaluate",
		Aliases: []string{"eval"},
		Short:   "Measure how well the display model reproduces target colors",
		GroupID: gBasic,
		Long: `Measure how well the display model reproduces target colors.

Targets are CIE L*a*b* values, given with --target L,a,b or as a JSON array of
{"l":..,"a":..,"b":..} objects in a file. A display model must have been
published by 'dispcal gamma' or 'dispcal model set'.`,
		Example: `  dispcal evaluate --target 50,0,0 --target 60,20,-10 --watch`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				if err := readJSON(file, &req.Targets); err != nil {
					return err
				}
			}
			for _, t := range targets {
				v, err := parseTriple(t)
				if err != nil {
					return err
				}
				req.Targets = append(req.Targets, colorimetry.Lab{L: v[0], A: v[1], B: v[2]})
			}
			if len(req.Targets) == 0 {
				return fmt.Errorf("no targets given")
			}
			return startTask(cmd, watch, func() (*calibration.Status, error) {
				return apiClient.StartEvaluation(req)
			})
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&targets, "target", nil, "Target color as L,a,b (repeatable)")
	f.StringVarP(&file, "file", "f", "", "JSON file with target colors, - for stdin")
	f.IntVar(&req.AverageReads, "reads", 0, "Readings averaged per measurement. Config default when 0")
	addOptionFlags(cmd, &req.Options, &watch)

	return cmd
}

func NewResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resume",
		Short:   "Start a task that waits for a start signal",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.Resume(); err != nil {
				return fmt.Errorf("failed to resume: %w", err)
			}
			cmd.Println("Task resumed.")
			return nil
		},
	}
}

func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stop",
		Short:   "Stop the running task",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.Stop(); err != nil {
				return fmt.Errorf("failed to stop: %w", err)
			}
			cmd.Println("Stop requested. The task ends after the current reading.")
			return nil
		},
	}
}
