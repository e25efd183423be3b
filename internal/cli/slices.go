package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"volview/pkg/ingest"
	"volview/pkg/transfer"
	"volview/pkg/visualization"
)

// SlicesOptions holds flags for the slices command.
type SlicesOptions struct {
	Axis     string
	Out      string
	TFFile   string
	Preset   string
	Physical bool
}

// NewSlicesCommand creates the slices command.
func NewSlicesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlicesOptions{}

	cmd := &cobra.Command{
		Use:   "slices <volume>",
		Short: "Write every slice along an axis as PNG",
		Long: `Write every slice along an axis as PNG.

Slices are grayscale unless a transfer function is given with --tf or
--preset, in which case each pixel is colored through its lookup table.
With --physical, anisotropic slices are resampled so pixels are square in
physical space.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := opts.transferFunction(rootOpts)
			if err != nil {
				return err
			}

			_, vol, err := ingest.NewLoader(rootOpts.logger).LoadNormalized(args[0])
			if err != nil {
				return err
			}

			viewer := visualization.NewViewer(vol)
			seq := visualization.SequenceOptions{TransferFunction: tf, Physical: opts.Physical}
			if opts.Axis != "all" {
				n, err := viewer.SaveSliceSequence(opts.Axis, opts.Out, seq)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d slices to %s\n", n, opts.Out)
				return nil
			}

			for _, axis := range []string{"x", "y", "z"} {
				axisDir := filepath.Join(opts.Out, axis)
				n, err := viewer.SaveSliceSequence(axis, axisDir, seq)
				if err != nil {
					return fmt.Errorf("failed to save %s-axis slices: %w", axis, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d slices to %s\n", n, axisDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Axis, "axis", "z", "slice axis (x|y|z|all)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "slices", "output directory")
	cmd.Flags().StringVar(&opts.TFFile, "tf", "", "color slices with this .tfl transfer function")
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "color slices with this configured preset")
	cmd.Flags().BoolVar(&opts.Physical, "physical", false, "resample slices to the physical aspect ratio")
	cmd.MarkFlagsMutuallyExclusive("tf", "preset")

	return cmd
}

func (o *SlicesOptions) transferFunction(rootOpts *RootOptions) (*transfer.TransferFunction, error) {
	switch {
	case o.TFFile != "":
		knots, err := transfer.ReadFile(o.TFFile)
		if err != nil {
			return nil, err
		}
		tf := transfer.New(rootOpts.cfg.Viewer.TableSize)
		tf.ReplaceKnots(&knots.Colors, &knots.Alphas)
		return tf, nil

	case o.Preset != "":
		preset, err := rootOpts.cfg.PresetMap().Lookup(o.Preset)
		if err != nil {
			return nil, err
		}
		tf := transfer.New(rootOpts.cfg.Viewer.TableSize)
		tf.ApplyPreset(preset)
		return tf, nil
	}
	return nil, nil
}
