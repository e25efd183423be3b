package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"volview/internal/models"
	"volview/pkg/transfer"
)

// Viewer extracts 2-D previews from a normalized volume
type Viewer struct {
	// volume holds intensities in [0, 1], z varying fastest
	volume *models.NormalizedVolume
}

// NewViewer creates a viewer over vol
func NewViewer(vol *models.NormalizedVolume) *Viewer {
	return &Viewer{volume: vol}
}

// plane describes one axis-aligned slice: its image size and how image
// coordinates map back to voxels
type plane struct {
	width, height int
	at            func(i, j int) float32
}

func (v *Viewer) plane(axis string, position int) (plane, error) {
	if position < 0 {
		return plane{}, fmt.Errorf("position must be non-negative")
	}

	d := v.volume.Dims
	data := v.volume.Data

	switch axis {
	case "x", "X":
		// YZ plane, z across
		if position >= d.X {
			return plane{}, fmt.Errorf("position %d exceeds width %d", position, d.X)
		}
		return plane{d.Z, d.Y, func(z, y int) float32 { return data[d.Index(position, y, z)] }}, nil

	case "y", "Y":
		// XZ plane, x across
		if position >= d.Y {
			return plane{}, fmt.Errorf("position %d exceeds height %d", position, d.Y)
		}
		return plane{d.X, d.Z, func(x, z int) float32 { return data[d.Index(x, position, z)] }}, nil

	case "z", "Z":
		// XY plane
		if position >= d.Z {
			return plane{}, fmt.Errorf("position %d exceeds depth %d", position, d.Z)
		}
		return plane{d.X, d.Y, func(x, y int) float32 { return data[d.Index(x, y, position)] }}, nil
	}

	return plane{}, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 16-bit grayscale slice along axis at position
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	p, err := v.plane(axis, position)
	if err != nil {
		return nil, err
	}

	img := image.NewGray16(image.Rect(0, 0, p.width, p.height))
	for j := 0; j < p.height; j++ {
		for i := 0; i < p.width; i++ {
			value := uint16(math.Max(0, math.Min(65535, float64(p.at(i, j))*65535)))
			img.SetGray16(i, j, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// ExtractColoredSlice extracts a slice colored through the transfer
// function table, as the renderer would see it
func (v *Viewer) ExtractColoredSlice(axis string, position int, tf *transfer.TransferFunction) (image.Image, error) {
	p, err := v.plane(axis, position)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	for j := 0; j < p.height; j++ {
		for i := 0; i < p.width; i++ {
			e := tf.Lookup(float64(p.at(i, j)))
			img.SetNRGBA(i, j, color.NRGBA{
				R: to8(e.R),
				G: to8(e.G),
				B: to8(e.B),
				A: to8(e.A),
			})
		}
	}
	return img, nil
}

func to8(c float32) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, float64(c))) * 255))
}

// planeScale returns the scale factors along the image's horizontal and
// vertical axes for a slice along axis
func (v *Viewer) planeScale(axis string) (float64, float64, error) {
	s := v.volume.ScaleFactors
	switch axis {
	case "x", "X":
		return s.Z, s.Y, nil
	case "y", "Y":
		return s.X, s.Z, nil
	case "z", "Z":
		return s.X, s.Y, nil
	}
	return 0, 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// PhysicalAspect resamples a slice extracted along axis so its pixels are
// square in physical space. The side with more pixels per unit length keeps
// its pixel count and the other is stretched. Volumes without scale factors
// are returned unchanged.
func (v *Viewer) PhysicalAspect(img image.Image, axis string) (image.Image, error) {
	sx, sy, err := v.planeScale(axis)
	if err != nil {
		return nil, err
	}
	if sx <= 0 || sy <= 0 {
		return img, nil
	}

	b := img.Bounds()
	// pixels per unit of physical length
	density := math.Max(float64(b.Dx())/sx, float64(b.Dy())/sy)
	w := max(1, int(math.Round(sx*density)))
	h := max(1, int(math.Round(sy*density)))
	if w == b.Dx() && h == b.Dy() {
		return img, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// ExtractRegion copies a sub-box of the volume, keeping the z-fastest layout
func (v *Viewer) ExtractRegion(start models.Dims, size models.Dims) ([]float32, error) {
	d := v.volume.Dims

	if start.X < 0 || start.Y < 0 || start.Z < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if !size.Valid() {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	if start.X+size.X > d.X || start.Y+size.Y > d.Y || start.Z+size.Z > d.Z {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float32, 0, size.Count())
	for x := 0; x < size.X; x++ {
		for y := 0; y < size.Y; y++ {
			row := d.Index(start.X+x, start.Y+y, start.Z)
			region = append(region, v.volume.Data[row:row+size.Z]...)
		}
	}
	return region, nil
}

// SaveSlice writes an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SequenceOptions controls SaveSliceSequence
type SequenceOptions struct {
	// TransferFunction colors slices; nil writes grayscale
	TransferFunction *transfer.TransferFunction

	// Physical resamples slices to the physical aspect ratio
	Physical bool
}

// SaveSliceSequence saves every slice along axis into outputDir
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, opts SequenceOptions) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Dims.X
	case "y", "Y":
		maxPos = v.volume.Dims.Y
	case "z", "Z":
		maxPos = v.volume.Dims.Z
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		var (
			img image.Image
			err error
		)
		if opts.TransferFunction != nil {
			img, err = v.ExtractColoredSlice(axis, pos, opts.TransferFunction)
		} else {
			img, err = v.ExtractSlice(axis, pos)
		}
		if err != nil {
			return pos, err
		}
		if opts.Physical {
			if img, err = v.PhysicalAspect(img, axis); err != nil {
				return pos, err
			}
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
