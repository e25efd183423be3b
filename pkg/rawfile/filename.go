package rawfile

import (
	"path/filepath"
	"regexp"
	"strconv"

	"volview/internal/models"
	"volview/pkg/scalar"
	"volview/pkg/volerr"
)

// filenamePattern matches the trailing <X>x<Y>x<Z>_<TYPE>.raw of a standalone raw file.
var filenamePattern = regexp.MustCompile(`(\d+)x(\d+)x(\d+)_([a-zA-Z0-9]+)\.raw$`)

// ParseFilename extracts the grid size and element type encoded in a raw
// file name such as "tooth_103x94x161_uint8.raw". The file itself is not read.
func ParseFilename(path string) (models.Dims, scalar.Type, error) {
	const op = "rawfile.ParseFilename"

	m := filenamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return models.Dims{}, scalar.Invalid, volerr.New(volerr.CodeMalformedFilename, op, path,
			"invalid file name format, expected {X}x{Y}x{Z}_{DATATYPE}.raw")
	}

	var axes [3]int
	for i := range axes {
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n <= 0 {
			return models.Dims{}, scalar.Invalid, volerr.New(volerr.CodeMalformedFilename, op, path,
				"invalid dimension %q", m[i+1])
		}
		axes[i] = n
	}

	dims := models.Dims{X: axes[0], Y: axes[1], Z: axes[2]}
	if _, ok := dims.CheckedCount(); !ok {
		return models.Dims{}, scalar.Invalid, volerr.New(volerr.CodeMalformedFilename, op, path,
			"dimensions %s are too large", dims)
	}

	typ, err := scalar.Resolve(m[4])
	if err != nil {
		return models.Dims{}, scalar.Invalid, err
	}

	return dims, typ, nil
}

// FormatFilename builds the conventional raw file name for a volume.
func FormatFilename(prefix string, dims models.Dims, typ scalar.Type) string {
	name := dims.String() + "_" + typ.String() + ".raw"
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
