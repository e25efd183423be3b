package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"volview/pkg/transfer"
)

// NewTFCommand creates the tf command group.
func NewTFCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tf",
		Short: "Work with .tfl transfer function files",
	}

	cmd.AddCommand(newTFSampleCommand(rootOpts))
	cmd.AddCommand(newTFPresetCommand(rootOpts))

	return cmd
}

func newTFSampleCommand(rootOpts *RootOptions) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "sample <file.tfl>",
		Short: "Print the RGBA lookup table generated from a transfer function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			knots, err := transfer.ReadFile(args[0])
			if err != nil {
				return err
			}

			if size <= 0 {
				size = rootOpts.cfg.Viewer.TableSize
			}
			tf := transfer.New(size)
			tf.ReplaceKnots(&knots.Colors, &knots.Alphas)

			w := cmd.OutOrStdout()
			for i, e := range tf.Table() {
				fmt.Fprintf(w, "%d %g %g %g %g\n", i, e.R, e.G, e.B, e.A)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 0, "table size (default from config)")

	return cmd
}

func newTFPresetCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: "Write a configured preset as a .tfl file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, err := rootOpts.cfg.PresetMap().Lookup(args[0])
			if err != nil {
				return err
			}

			// round-trip through the model so the file is position sorted
			tf := transfer.New(rootOpts.cfg.Viewer.TableSize)
			tf.ApplyPreset(preset)

			if out == "" {
				return transfer.Write(cmd.OutOrStdout(), tf.Knots())
			}
			if err := transfer.WriteFile(out, tf.Knots()); err != nil {
				return err
			}
			rootOpts.logger.Info("preset written", "preset", preset.Name, "path", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output .tfl file (default stdout)")

	return cmd
}
