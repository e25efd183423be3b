package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volview/internal/models"
	"volview/pkg/nrrd"
	"volview/pkg/scalar"
	"volview/pkg/volerr"
)

func quietLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// writeToothPair writes a header plus raw payload the size of the tooth
// sample volume.
func writeToothPair(t *testing.T, dir, headerName string) string {
	t.Helper()

	dims := models.Dims{X: 103, Y: 94, Z: 161}
	payload := make([]byte, dims.Count())
	for i := range payload {
		payload[i] = byte(i % 241)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tooth_103x94x161_uint8.raw"), payload, 0644))

	meta := models.VolumeMetadata{
		Dims:      dims,
		Spacing:   models.UnitSpacing,
		Type:      scalar.Uint8,
		Encoding:  nrrd.EncodingRaw,
		ByteOrder: binary.LittleEndian,
	}
	var header bytes.Buffer
	require.NoError(t, nrrd.WriteHeader(&header, meta, "tooth_103x94x161_uint8.raw"))

	path := filepath.Join(dir, headerName)
	require.NoError(t, os.WriteFile(path, header.Bytes(), 0644))
	return path
}

func TestLoadHeaderEndToEnd(t *testing.T) {
	path := writeToothPair(t, t.TempDir(), "tooth.nhdr")

	meta, buf, err := quietLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.Dims{X: 103, Y: 94, Z: 161}, meta.Dims)
	assert.Equal(t, scalar.Uint8, meta.Type)
	assert.Equal(t, 103*94*161, buf.Len())

	_, vol, err := quietLoader().LoadNormalized(path)
	require.NoError(t, err)
	require.Len(t, vol.Data, 103*94*161)
	for _, v := range vol.Data {
		if v < 0 || v > 1 {
			t.Fatalf("normalized value %v out of range", v)
		}
	}
	assert.Equal(t, 1.0, vol.ScaleFactors.Z)
	assert.InDelta(t, 103.0/161, vol.ScaleFactors.X, 1e-12)
}

func TestLoadExtensionIsCaseInsensitive(t *testing.T) {
	path := writeToothPair(t, t.TempDir(), "TOOTH.NHDR")

	_, buf, err := quietLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 103*94*161, buf.Len())
}

func TestLoadRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "128x128x64_uint8.raw")
	require.NoError(t, os.WriteFile(path, make([]byte, 128*128*64), 0644))

	meta, buf, err := quietLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.Dims{X: 128, Y: 128, Z: 64}, meta.Dims)
	assert.Equal(t, scalar.Uint8, meta.Type)
	assert.Equal(t, "UINT8", meta.Type.Name())
	assert.Equal(t, models.UnitSpacing, meta.Spacing)
	assert.Equal(t, path, meta.DataFile)
	assert.Equal(t, 128*128*64, buf.Len())

	// all-zero payload is a constant volume, not an error
	_, vol, err := quietLoader().LoadNormalized(path)
	require.NoError(t, err)
	assert.True(t, vol.Constant)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "4x4x4_uint16.raw")
	require.NoError(t, os.WriteFile(short, make([]byte, 100), 0644))
	overflow := filepath.Join(dir, "4294967296x4294967296x1_uint8.raw")
	require.NoError(t, os.WriteFile(overflow, nil, 0644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing dimension", filepath.Join(dir, "128x128_uint8.raw"), volerr.ErrMalformedFilename},
		{"unknown type", filepath.Join(dir, "2x2x2_cfloat.raw"), volerr.ErrUnknownType},
		{"missing raw", filepath.Join(dir, "2x2x2_uint8.raw"), volerr.ErrFileNotFound},
		{"missing header", filepath.Join(dir, "nothing.nhdr"), volerr.ErrFileNotFound},
		{"size mismatch", short, volerr.ErrSizeMismatch},
		{"overflowing dims", overflow, volerr.ErrMalformedFilename},
		{"unsupported extension", filepath.Join(dir, "volume.nrrd"), volerr.ErrUnsupportedExtension},
		{"no extension", filepath.Join(dir, "volume"), volerr.ErrUnsupportedExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, buf, err := quietLoader().Load(tt.path)
			require.Error(t, err)
			assert.Nil(t, buf)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			_, vol, err := quietLoader().LoadNormalized(tt.path)
			require.Error(t, err)
			assert.Nil(t, vol)
		})
	}
}

func TestLoadNormalizedInvalidSpacing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v.raw"), []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0644))

	header := "NRRD0004\ntype: uchar\ndimension: 3\nsizes: 2 2 2\n" +
		"space directions: (1,0,0) (0,-1,0) (0,0,1)\nencoding: raw\ndata file: v.raw\n"
	path := filepath.Join(dir, "v.nhdr")
	require.NoError(t, os.WriteFile(path, []byte(header), 0644))

	_, _, err := quietLoader().Load(path)
	require.NoError(t, err)

	_, vol, err := quietLoader().LoadNormalized(path)
	require.Error(t, err)
	assert.Nil(t, vol)
	assert.True(t, errors.Is(err, volerr.ErrInvalidSpacing))
}
