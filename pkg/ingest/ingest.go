// Package ingest turns a volume path into decoded, optionally normalized,
// voxel data. It picks the header route for .nhdr files and the
// filename-convention route for .raw files.
package ingest

import (
	"log/slog"
	"path/filepath"
	"strings"

	"volview/internal/models"
	"volview/pkg/normalize"
	"volview/pkg/nrrd"
	"volview/pkg/rawfile"
	"volview/pkg/volerr"
)

// Loader loads volumes from disk.
type Loader struct {
	logger     *slog.Logger
	normalizer *normalize.Normalizer
}

// NewLoader creates a Loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:     logger,
		normalizer: normalize.New(logger),
	}
}

// Load uses a Loader with the default logger.
func Load(path string) (models.VolumeMetadata, *rawfile.VoxelBuffer, error) {
	return NewLoader(nil).Load(path)
}

// LoadNormalized uses a Loader with the default logger.
func LoadNormalized(path string) (models.VolumeMetadata, *models.NormalizedVolume, error) {
	return NewLoader(nil).LoadNormalized(path)
}

// Load reads the volume at path. The extension is matched case-insensitively:
// ".nhdr" is parsed as a detached header, ".raw" takes dims and type from the
// file name and gets unit spacing.
func (l *Loader) Load(path string) (models.VolumeMetadata, *rawfile.VoxelBuffer, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		meta models.VolumeMetadata
		buf  *rawfile.VoxelBuffer
		err  error
	)
	switch ext {
	case ".nhdr":
		meta, buf, err = l.loadHeader(path)
	case ".raw":
		meta, buf, err = l.loadRaw(path)
	default:
		err = volerr.New(volerr.CodeUnsupportedExtension, "ingest.Load", path, "unsupported file extension %q, expected .nhdr or .raw", ext)
	}
	if err != nil {
		l.logger.Error("volume load failed", "path", path, "code", volerr.CodeOf(err), "error", err)
		return models.VolumeMetadata{}, nil, err
	}

	l.logger.Info("volume loaded",
		"path", path,
		"dims", meta.Dims.String(),
		"type", meta.Type.String(),
		"spacing", []float64{meta.Spacing.X, meta.Spacing.Y, meta.Spacing.Z},
		"encoding", meta.Encoding)

	return meta, buf, nil
}

// LoadNormalized loads path and normalizes it for rendering.
func (l *Loader) LoadNormalized(path string) (models.VolumeMetadata, *models.NormalizedVolume, error) {
	meta, buf, err := l.Load(path)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}

	vol, err := l.Normalize(meta, buf)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}
	return meta, vol, nil
}

// Normalize rescales a buffer returned by Load.
func (l *Loader) Normalize(meta models.VolumeMetadata, buf *rawfile.VoxelBuffer) (*models.NormalizedVolume, error) {
	return l.normalizer.Normalize(meta.Dims, meta.Spacing, buf)
}

func (l *Loader) loadHeader(path string) (models.VolumeMetadata, *rawfile.VoxelBuffer, error) {
	meta, _, err := nrrd.ParseHeader(path)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}

	l.logger.Debug("header parsed", "path", path, "data_file", meta.DataFile)

	buf, err := nrrd.ReadVolume(meta)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}
	return meta, buf, nil
}

func (l *Loader) loadRaw(path string) (models.VolumeMetadata, *rawfile.VoxelBuffer, error) {
	dims, typ, err := rawfile.ParseFilename(path)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}

	buf, err := rawfile.DecodeFile(path, dims, typ)
	if err != nil {
		return models.VolumeMetadata{}, nil, err
	}

	meta := models.VolumeMetadata{
		Dims:      dims,
		Spacing:   models.UnitSpacing,
		Type:      typ,
		DataFile:  path,
		Encoding:  nrrd.EncodingRaw,
		ByteOrder: buf.ByteOrder(),
	}
	return meta, buf, nil
}
