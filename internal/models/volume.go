package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/spatial/r3"

	"volview/pkg/scalar"
)

// Dims is the voxel count along each axis of a 3-D volume
type Dims struct {
	X, Y, Z int
}

// Count returns the total number of voxels. Callers must have checked the
// dims with CheckedCount first.
func (d Dims) Count() int {
	return d.X * d.Y * d.Z
}

// CheckedCount returns the total number of voxels, or false when an axis is
// not positive or the product does not fit in an int.
func (d Dims) CheckedCount() (int, bool) {
	return d.product(1)
}

// CheckedBytes returns the payload size in bytes for elements of width
// bytes, or false when it does not fit in an int.
func (d Dims) CheckedBytes(width int) (int, bool) {
	if width <= 0 {
		return 0, false
	}
	return d.product(width)
}

func (d Dims) product(n int) (int, bool) {
	if !d.Valid() {
		return 0, false
	}
	acc := uint64(n)
	for _, a := range [3]int{d.X, d.Y, d.Z} {
		hi, lo := bits.Mul64(acc, uint64(a))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		acc = lo
	}
	return int(acc), true
}

// Valid reports whether every axis has at least one voxel
func (d Dims) Valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// Index returns the flat offset of voxel (x, y, z). The axes are nested in
// x, y, z order, so z varies fastest.
func (d Dims) Index(x, y, z int) int {
	return (x*d.Y+y)*d.Z + z
}

// Axis returns the size along axis 0, 1 or 2
func (d Dims) Axis(i int) int {
	switch i {
	case 0:
		return d.X
	case 1:
		return d.Y
	default:
		return d.Z
	}
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Spacing is the physical distance between voxel centers along each axis
type Spacing struct {
	X, Y, Z float64
}

// UnitSpacing is used for volumes whose format carries no spacing
var UnitSpacing = Spacing{X: 1, Y: 1, Z: 1}

// Axis returns the spacing along axis 0, 1 or 2
func (s Spacing) Axis(i int) float64 {
	switch i {
	case 0:
		return s.X
	case 1:
		return s.Y
	default:
		return s.Z
	}
}

// VolumeMetadata describes a loaded volume
type VolumeMetadata struct {
	// Dims is the voxel grid size
	Dims Dims

	// Spacing is the physical voxel size
	Spacing Spacing

	// Type is the element type of the raw payload
	Type scalar.Type

	// DataFile is the resolved path of the raw payload
	DataFile string

	// Encoding is the payload compression, "raw" when uncompressed
	Encoding string

	// ByteOrder is the order multi-byte elements were decoded with
	ByteOrder binary.ByteOrder

	// ByteSkip is the number of decoded bytes preceding the voxel data
	ByteSkip int64
}

// NormalizedVolume is a volume rescaled for rendering in a unit cube
type NormalizedVolume struct {
	// Data holds intensities in [0, 1] with the same layout as the source buffer
	Data []float32

	// Dims is the voxel grid size
	Dims Dims

	// ScaleFactors maps the grid into a unit cube keeping the physical aspect
	// ratio. The longest physical axis is exactly 1.
	ScaleFactors r3.Vec

	// Constant is set when the source had no dynamic range and Data is all zero
	Constant bool
}
