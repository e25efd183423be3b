package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"volview/pkg/ingest"
	"volview/pkg/normalize"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "inspect <volume>",
		Short: "Print volume metadata and intensity statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], bins, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&bins, "histogram", 0, "print a normalized intensity histogram with this many bins")

	return cmd
}

func runInspect(opts *RootOptions, path string, bins int, w io.Writer) error {
	loader := ingest.NewLoader(opts.logger)

	meta, buf, err := loader.Load(path)
	if err != nil {
		return err
	}
	vol, err := loader.Normalize(meta, buf)
	if err != nil {
		return err
	}

	values := buf.Float64s()

	fmt.Fprintf(w, "path:      %s\n", path)
	fmt.Fprintf(w, "data file: %s\n", meta.DataFile)
	fmt.Fprintf(w, "dims:      %s\n", meta.Dims)
	fmt.Fprintf(w, "type:      %s\n", meta.Type)
	fmt.Fprintf(w, "spacing:   %g %g %g\n", meta.Spacing.X, meta.Spacing.Y, meta.Spacing.Z)
	fmt.Fprintf(w, "encoding:  %s\n", meta.Encoding)
	fmt.Fprintf(w, "elements:  %d\n", buf.Len())
	fmt.Fprintf(w, "range:     %g .. %g\n", floats.Min(values), floats.Max(values))
	fmt.Fprintf(w, "scale:     %.6g %.6g %.6g\n", vol.ScaleFactors.X, vol.ScaleFactors.Y, vol.ScaleFactors.Z)
	fmt.Fprintf(w, "checksum:  %016x\n", buf.Checksum())
	if vol.Constant {
		fmt.Fprintln(w, "warning:   constant volume, normalized to zero")
	}

	if bins > 0 {
		fmt.Fprintln(w, "histogram:")
		for i, count := range normalize.Histogram(vol, bins) {
			fmt.Fprintf(w, "  %3d %.0f\n", i, count)
		}
	}

	return nil
}
