package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlie0129/dispcal/pkg/gamma"
	"github.com/charlie0129/dispcal/pkg/spectral"
)

func NewFitCommand() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:     "fit <file>",
		Short:   "Fit gamma parameters to measured drive/luminance pairs",
		GroupID: gOffline,
		Long: `Fit gamma parameters to measured drive/luminance pairs without the daemon.

The file holds a JSON array of {"dac": <0-255>, "luminance": <cd/m²>} objects.
The pair with the largest drive level is used as the anchor. Use - to read stdin.`,
		Example: `  dispcal fit measurements.json
  dispcal fit --variant 1 - < measurements.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := gamma.ParseVariant(variant)
			if err != nil {
				return err
			}
			var pairs []gamma.Pair
			if err := readJSON(args[0], &pairs); err != nil {
				return err
			}
			// Anchor first.
			slices.SortStableFunc(pairs, func(a, b gamma.Pair) int { return b.DAC - a.DAC })

			res, err := gamma.Fit(pairs, v, nil)
			if err != nil {
				return err
			}
			cmd.Printf("Fit (%s) of %d pairs:\n", v, len(pairs))
			cmd.Printf("  Gamma:  %s\n", bold("%.4f", res.Params.Gamma))
			cmd.Printf("  Gain:   %s\n", bold("%.4f", res.Params.Gain))
			cmd.Printf("  Offset: %s\n", bold("%.4f", res.Params.Offset))
			cmd.Printf("  SSE:    %.4g after %d iterations\n", res.SSE, res.Iterations)
			cmd.Printf("  Converged: %s\n", bool2Text(res.Converged))
			if res.Degenerate {
				cmd.Println("  The data carries no usable response; parameters are the start point.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "2", "Fit variant: 1 (gamma only) or 2 (gamma and gain)")

	return cmd
}

func NewSpectrumCommand() *cobra.Command {
	var (
		blackbody float64
		observer  int
	)

	cmd := &cobra.Command{
		Use:     "spectrum [name]",
		Short:   "Compute the color of a spectral power distribution",
		GroupID: gOffline,
		Long: fmt.Sprintf(`Compute the tristimulus value, chromaticity and luminance of a built-in
illuminant or of a black body radiator.

Built-in distributions: %s`, strings.Join(spectral.Names(), ", ")),
		Example: `  dispcal spectrum A
  dispcal spectrum --blackbody 6500 --observer 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				d     *spectral.Distribution
				label string
			)
			switch {
			case blackbody > 0:
				if len(args) > 0 {
					return fmt.Errorf("a name cannot be combined with --blackbody")
				}
				var err error
				d, err = spectral.Blackbody(blackbody, 380, 780, 5)
				if err != nil {
					return err
				}
				label = fmt.Sprintf("black body at %gK", blackbody)
			case len(args) == 1:
				var ok bool
				d, ok = spectral.Named(args[0])
				if !ok {
					return fmt.Errorf("unknown distribution %q, available: %s", args[0], strings.Join(spectral.Names(), ", "))
				}
				label = "illuminant " + args[0]
			default:
				return fmt.Errorf("a distribution name or --blackbody is required")
			}

			xyz, err := d.ToXYZ(spectral.Observer(observer))
			if err != nil {
				return err
			}
			lum, err := d.Luminance()
			if err != nil {
				return err
			}
			cmd.Printf("%s (%d-%d nm, %d° observer):\n", bold("%s", label), d.First(), d.Last(), observer)
			cmd.Printf("  XYZ: %.4f %.4f %.4f\n", xyz.X, xyz.Y, xyz.Z)
			cmd.Printf("  Yxy: %s\n", yxyText(xyz.Yxy()))
			cmd.Printf("  Luminance: %s\n", bold("%.4f", lum))
			return nil
		},
	}

	cmd.Flags().Float64Var(&blackbody, "blackbody", 0, "Use a black body radiator at this temperature in kelvin")
	cmd.Flags().IntVar(&observer, "observer", 2, "CIE standard observer: 2 or 10")

	return cmd
}
