package cli

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"volview/internal/models"
	"volview/pkg/nrrd"
	"volview/pkg/rawfile"
	"volview/pkg/volerr"
)

// NewHeaderCommand creates the header command.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		out     string
		spacing []float64
		endian  string
	)

	cmd := &cobra.Command{
		Use:   "header <file.raw>",
		Short: "Write a detached .nhdr header for a raw volume",
		Long: `Write a detached .nhdr header for a raw volume.

Dims and type are taken from the <X>x<Y>x<Z>_<type>.raw file name. The
header refers to the raw file by its base name, so keep both in the
same directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawPath := args[0]

			dims, typ, err := rawfile.ParseFilename(rawPath)
			if err != nil {
				return err
			}
			info, err := os.Stat(rawPath)
			if err != nil {
				return volerr.Wrap(volerr.CodeFileNotFound, "cli.header", rawPath, err, "raw file not found")
			}
			want, ok := dims.CheckedBytes(typ.Size())
			if !ok || info.Size() != int64(want) {
				return volerr.New(volerr.CodeSizeMismatch, "cli.header", rawPath,
					"unexpected file size: expected %d bytes, got %d", want, info.Size())
			}

			if len(spacing) != 3 {
				return fmt.Errorf("--spacing needs 3 values, got %d", len(spacing))
			}
			meta := models.VolumeMetadata{
				Dims:     dims,
				Spacing:  models.Spacing{X: spacing[0], Y: spacing[1], Z: spacing[2]},
				Type:     typ,
				Encoding: nrrd.EncodingRaw,
			}
			if typ.Size() > 1 {
				if meta.ByteOrder, err = parseEndian(endian); err != nil {
					return err
				}
			}

			if out == "" {
				out = strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".nhdr"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := nrrd.WriteHeader(f, meta, filepath.Base(rawPath)); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			rootOpts.logger.Info("header written", "path", out, "dims", dims.String(), "type", typ.String())
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "header path (default: raw path with .nhdr extension)")
	cmd.Flags().Float64SliceVar(&spacing, "spacing", []float64{1, 1, 1}, "voxel spacing x,y,z")
	cmd.Flags().StringVar(&endian, "endian", "", "byte order of multi-byte elements (little|big, default native)")

	return cmd
}

// parseEndian returns nil for native order, which WriteHeader leaves out of
// the header so readers fall back to their own native order like the raw
// route does.
func parseEndian(s string) (binary.ByteOrder, error) {
	switch s {
	case "", "native":
		return nil, nil
	case "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("invalid --endian %q, expected little or big", s)
}
