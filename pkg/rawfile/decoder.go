// Package rawfile decodes flat binary voxel payloads and parses the
// dimension-in-filename convention used for standalone raw volumes.
package rawfile

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/x448/float16"

	"volview/internal/models"
	"volview/pkg/scalar"
	"volview/pkg/volerr"
)

// VoxelBuffer owns the raw bytes of a decoded volume together with the
// layout needed to interpret them.
//
// Elements are logically indexed [x][y][z] with z varying fastest, see
// models.Dims.Index.
type VoxelBuffer struct {
	data  []byte
	dims  models.Dims
	typ   scalar.Type
	order binary.ByteOrder
}

// Option configures Decode.
type Option func(*decodeConfig)

type decodeConfig struct {
	order binary.ByteOrder
}

// WithByteOrder overrides the platform-native byte order used for
// multi-byte elements.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *decodeConfig) {
		if order != nil {
			c.order = order
		}
	}
}

// Decode reads the whole stream and interprets it as a flat array of typ
// elements reshaped to dims.
//
// The raw format carries no endianness marker, so elements are read in the
// host's native byte order unless WithByteOrder says otherwise.
func Decode(r io.Reader, dims models.Dims, typ scalar.Type, opts ...Option) (*VoxelBuffer, error) {
	const op = "rawfile.Decode"

	cfg := decodeConfig{order: binary.NativeEndian}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !typ.Valid() {
		return nil, volerr.New(volerr.CodeUnknownType, op, "", "invalid element type %s", typ.Name())
	}

	want, ok := dims.CheckedBytes(typ.Size())
	if !ok {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "", "invalid dims %s", dims)
	}

	// one byte past the expected size is enough to report an oversized payload
	data, err := io.ReadAll(io.LimitReader(r, int64(want)+1))
	if err != nil {
		return nil, volerr.Wrap(volerr.CodeMalformedField, op, "", err, "corrupt or unreadable payload")
	}

	return FromBytes(data, dims, typ, cfg.order)
}

// FromBytes wraps an in-memory payload without copying it.
func FromBytes(data []byte, dims models.Dims, typ scalar.Type, order binary.ByteOrder) (*VoxelBuffer, error) {
	const op = "rawfile.FromBytes"

	width := typ.Size()
	if width == 0 {
		return nil, volerr.New(volerr.CodeUnknownType, op, "", "invalid element type %s", typ.Name())
	}
	if _, ok := dims.CheckedBytes(width); !ok {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "", "invalid dims %s", dims)
	}
	if order == nil {
		order = binary.NativeEndian
	}

	expected := dims.Count()
	if len(data)%width != 0 {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "",
			"unexpected file size: expected %d elements, got %d bytes which is not a multiple of %d",
			expected, len(data), width)
	}
	if got := len(data) / width; got != expected {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "",
			"unexpected file size: expected %d elements, got %d", expected, got)
	}

	return &VoxelBuffer{data: data, dims: dims, typ: typ, order: order}, nil
}

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string, dims models.Dims, typ scalar.Type, opts ...Option) (*VoxelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, volerr.Wrap(volerr.CodeFileNotFound, "rawfile.DecodeFile", path, err, "raw file not found")
	}
	defer f.Close()

	buf, err := Decode(f, dims, typ, opts...)
	if err != nil {
		if e, ok := err.(*volerr.Error); ok && e.Path == "" {
			e.Path = path
		}
		return nil, err
	}
	return buf, nil
}

// Len returns the number of elements.
func (b *VoxelBuffer) Len() int {
	return b.dims.Count()
}

// Dims returns the grid size.
func (b *VoxelBuffer) Dims() models.Dims {
	return b.dims
}

// Type returns the element type.
func (b *VoxelBuffer) Type() scalar.Type {
	return b.typ
}

// ByteOrder returns the order multi-byte elements are read with.
func (b *VoxelBuffer) ByteOrder() binary.ByteOrder {
	return b.order
}

// Bytes returns the underlying payload. Callers must not modify it.
func (b *VoxelBuffer) Bytes() []byte {
	return b.data
}

// At returns element i converted to float64.
func (b *VoxelBuffer) At(i int) float64 {
	w := b.typ.Size()
	p := b.data[i*w : i*w+w]

	switch b.typ {
	case scalar.Uint8:
		return float64(p[0])
	case scalar.Int8:
		return float64(int8(p[0]))
	case scalar.Bool:
		if p[0] != 0 {
			return 1
		}
		return 0
	case scalar.Uint16:
		return float64(b.order.Uint16(p))
	case scalar.Int16:
		return float64(int16(b.order.Uint16(p)))
	case scalar.Uint32:
		return float64(b.order.Uint32(p))
	case scalar.Int32:
		return float64(int32(b.order.Uint32(p)))
	case scalar.Uint64:
		return float64(b.order.Uint64(p))
	case scalar.Int64:
		return float64(int64(b.order.Uint64(p)))
	case scalar.Float16:
		return float64(float16.Frombits(b.order.Uint16(p)).Float32())
	case scalar.Float32:
		return float64(math.Float32frombits(b.order.Uint32(p)))
	case scalar.Float64:
		return math.Float64frombits(b.order.Uint64(p))
	}
	return 0
}

// AtXYZ returns voxel (x, y, z) converted to float64.
func (b *VoxelBuffer) AtXYZ(x, y, z int) float64 {
	return b.At(b.dims.Index(x, y, z))
}

// Float64s converts every element to float64.
func (b *VoxelBuffer) Float64s() []float64 {
	out := make([]float64, b.Len())
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Checksum returns the xxhash64 digest of the payload. It identifies a
// volume's contents cheaply, e.g. to skip reloading identical data.
func (b *VoxelBuffer) Checksum() uint64 {
	return xxhash.Sum64(b.data)
}

// SHA512 returns the hex-encoded SHA-512 digest of the payload.
func (b *VoxelBuffer) SHA512() string {
	sum := sha512.Sum512(b.data)
	return hex.EncodeToString(sum[:])
}
