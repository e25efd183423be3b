// Package normalize rescales decoded volumes into the unit cube used for
// rendering: intensities to [0, 1] and the grid to per-axis scale factors
// that keep the physical aspect ratio.
package normalize

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"volview/internal/models"
	"volview/pkg/volerr"
)

// Voxels is the read-only view of a decoded buffer the normalizer needs.
// *rawfile.VoxelBuffer satisfies it.
type Voxels interface {
	Len() int
	Float64s() []float64
}

// Normalizer holds the logger used to report degenerate volumes.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize uses a Normalizer with the default logger.
func Normalize(dims models.Dims, spacing models.Spacing, voxels Voxels) (*models.NormalizedVolume, error) {
	return New(nil).Normalize(dims, spacing, voxels)
}

// Normalize maps every voxel v to (v-min)/(max-min) and computes the scale
// factors for dims and spacing. Min and max are taken over finite voxels
// only; NaN and infinite voxels normalize to 0.
//
// A volume with no dynamic range normalizes to all zeros with Constant set
// and a warning logged; it is not an error.
func (n *Normalizer) Normalize(dims models.Dims, spacing models.Spacing, voxels Voxels) (*models.NormalizedVolume, error) {
	const op = "normalize.Normalize"

	count, ok := dims.CheckedCount()
	if !ok {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "", "invalid dims %s", dims)
	}
	if got := voxels.Len(); got != count {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "", "expected %d elements, got %d", count, got)
	}

	scale, err := ScaleFactors(dims, spacing)
	if err != nil {
		return nil, err
	}

	values := voxels.Float64s()
	if len(values) != count {
		return nil, volerr.New(volerr.CodeSizeMismatch, op, "", "expected %d elements, got %d", count, len(values))
	}

	vol := &models.NormalizedVolume{
		Data:         make([]float32, len(values)),
		Dims:         dims,
		ScaleFactors: scale,
	}

	lo, hi, finite := finiteRange(values)
	if finite < len(values) {
		n.logger.Warn("non-finite voxels set to zero",
			"dims", dims.String(),
			"count", len(values)-finite)
	}
	if finite == 0 || hi == lo {
		vol.Constant = true
		n.logger.Warn("constant volume, intensities set to zero",
			"dims", dims.String(),
			"value", lo)
		return vol, nil
	}

	// halve first so the span of extreme float64 data stays finite
	half := hi/2 - lo/2
	for i, v := range values {
		if isFinite(v) {
			vol.Data[i] = float32(min(1, max(0, (v/2-lo/2)/half)))
		}
	}

	n.logger.Debug("volume normalized",
		"dims", dims.String(),
		"min", lo,
		"max", hi,
		"scale", scale)

	return vol, nil
}

// finiteRange returns the minimum and maximum of the finite values and how
// many there are.
func finiteRange(values []float64) (lo, hi float64, n int) {
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		n++
	}
	return lo, hi, n
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ScaleFactors returns physical size per axis divided by the longest
// physical size. The longest axis is exactly 1.
func ScaleFactors(dims models.Dims, spacing models.Spacing) (r3.Vec, error) {
	const op = "normalize.ScaleFactors"

	for axis := 0; axis < 3; axis++ {
		s := spacing.Axis(axis)
		if !(s > 0) || math.IsInf(s, 0) {
			return r3.Vec{}, volerr.New(volerr.CodeInvalidSpacing, op, "", "invalid spacing %g on axis %d", s, axis)
		}
	}
	if !dims.Valid() {
		return r3.Vec{}, volerr.New(volerr.CodeSizeMismatch, op, "", "invalid dims %s", dims)
	}

	physical := r3.Vec{
		X: float64(dims.X) * spacing.X,
		Y: float64(dims.Y) * spacing.Y,
		Z: float64(dims.Z) * spacing.Z,
	}
	longest := math.Max(physical.X, math.Max(physical.Y, physical.Z))
	scale := r3.Scale(1/longest, physical)

	// Pin the longest axis so rounding in the division cannot leave it at 0.999...
	switch longest {
	case physical.X:
		scale.X = 1
	case physical.Y:
		scale.Y = 1
	default:
		scale.Z = 1
	}

	return scale, nil
}

// Histogram counts normalized intensities into bins equal-width buckets
// over [0, 1]. bins <= 0 uses 256.
func Histogram(vol *models.NormalizedVolume, bins int) []float64 {
	if bins <= 0 {
		bins = 256
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, 0, 1)
	// stat.Histogram buckets are half-open, widen the last edge so 1 lands in it
	dividers[bins] = math.Nextafter(1, 2)

	x := make([]float64, len(vol.Data))
	for i, v := range vol.Data {
		x[i] = float64(v)
	}
	sort.Float64s(x)

	return stat.Histogram(nil, dividers, x, nil)
}
