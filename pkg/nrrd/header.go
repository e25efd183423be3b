// Package nrrd reads detached NRRD headers (.nhdr) and opens the raw
// payload they point at.
//
// Only the subset needed for 3-D scalar volumes is understood: the
// dimension, data file, space directions (or spacings), sizes, type,
// encoding, endian and byte skip fields. Other fields and key/value pairs
// are kept in Header but otherwise ignored.
package nrrd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"volview/internal/models"
	"volview/pkg/scalar"
	"volview/pkg/volerr"
)

// Encodings supported for the data file.
const (
	EncodingRaw   = "raw"
	EncodingGzip  = "gzip"
	EncodingBzip2 = "bzip2"
	EncodingZstd  = "zstd"
	EncodingLZ4   = "lz4"
)

var encodingAliases = map[string]string{
	"raw":   EncodingRaw,
	"gzip":  EncodingGzip,
	"gz":    EncodingGzip,
	"bzip2": EncodingBzip2,
	"bz2":   EncodingBzip2,
	"zstd":  EncodingZstd,
	"lz4":   EncodingLZ4,
}

// Header is the parsed content of an NRRD header.
type Header struct {
	// Magic is the first line, e.g. "NRRD0004".
	Magic string

	// Fields holds "field: value" lines keyed by lower-case field name.
	Fields map[string]string

	// KeyValues holds "key:=value" lines.
	KeyValues map[string]string
}

// Get returns a field value and whether it was present.
func (h *Header) Get(name string) (string, bool) {
	v, ok := h.Fields[name]
	return v, ok
}

// ReadHeader parses header lines up to the first blank line or EOF.
func ReadHeader(r io.Reader) (*Header, error) {
	const op = "nrrd.ReadHeader"

	h := &Header{
		Fields:    make(map[string]string),
		KeyValues: make(map[string]string),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNo++

		if lineNo == 1 {
			if !strings.HasPrefix(line, "NRRD") {
				return nil, volerr.New(volerr.CodeMalformedField, op, "", "missing NRRD magic, got %q", line)
			}
			h.Magic = strings.TrimSpace(line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		if key, value, ok := strings.Cut(line, ":="); ok {
			h.KeyValues[key] = value
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, volerr.New(volerr.CodeMalformedField, op, "", "line %d: expected \"field: value\", got %q", lineNo, line)
		}
		h.Fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, volerr.Wrap(volerr.CodeMalformedField, op, "", err, "error reading header")
	}
	if lineNo == 0 {
		return nil, volerr.New(volerr.CodeMalformedField, op, "", "empty header")
	}

	return h, nil
}

// ParseHeader reads a detached header and returns the volume metadata
// together with the resolved path of its raw data file.
//
// Fields are validated in order: dimension, data file, space directions,
// sizes, type. A missing header or data file fails with
// volerr.ErrFileNotFound.
func ParseHeader(headerPath string) (models.VolumeMetadata, string, error) {
	const op = "nrrd.ParseHeader"

	f, err := os.Open(headerPath)
	if err != nil {
		return models.VolumeMetadata{}, "", volerr.Wrap(volerr.CodeFileNotFound, op, headerPath, err, "NHDR file not found")
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return models.VolumeMetadata{}, "", withPath(err, headerPath)
	}

	meta, err := h.Metadata(filepath.Dir(headerPath))
	if err != nil {
		return models.VolumeMetadata{}, "", withPath(err, headerPath)
	}

	if _, err := os.Stat(meta.DataFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.VolumeMetadata{}, "", volerr.Wrap(volerr.CodeFileNotFound, op, meta.DataFile, err, "raw data file not found")
		}
		return models.VolumeMetadata{}, "", volerr.Wrap(volerr.CodeFileNotFound, op, meta.DataFile, err, "raw data file not accessible")
	}

	return meta, meta.DataFile, nil
}

// Metadata validates the header fields and converts them to volume
// metadata. Relative data file paths are resolved against dir.
func (h *Header) Metadata(dir string) (models.VolumeMetadata, error) {
	var meta models.VolumeMetadata

	if err := h.parseDimension(); err != nil {
		return meta, err
	}

	dataFile, err := h.parseDataFile(dir)
	if err != nil {
		return meta, err
	}
	meta.DataFile = dataFile

	if meta.Spacing, err = h.parseSpacing(); err != nil {
		return meta, err
	}
	if meta.Dims, err = h.parseSizes(); err != nil {
		return meta, err
	}
	if meta.Type, err = h.parseType(); err != nil {
		return meta, err
	}
	if meta.Encoding, err = h.parseEncoding(); err != nil {
		return meta, err
	}
	if meta.ByteOrder, err = h.parseEndian(); err != nil {
		return meta, err
	}
	if meta.ByteSkip, err = h.parseByteSkip(); err != nil {
		return meta, err
	}

	return meta, nil
}

func (h *Header) parseDimension() error {
	value, _ := h.Get("dimension")
	dim, err := strconv.Atoi(value)
	if err != nil || dim != 3 {
		return volerr.New(volerr.CodeUnsupportedDimension, "nrrd.dimension", "", "unsupported volume dimension: %q", value)
	}
	return nil
}

func (h *Header) parseDataFile(dir string) (string, error) {
	name, ok := h.Get("data file")
	if !ok {
		name, ok = h.Get("datafile")
	}
	if !ok || name == "" {
		return "", volerr.New(volerr.CodeMissingField, "nrrd.data_file", "", "missing 'data file' in NHDR header")
	}
	if strings.HasPrefix(name, "LIST") || strings.Contains(name, "%") {
		return "", volerr.New(volerr.CodeMalformedField, "nrrd.data_file", "", "multi-file data %q is not supported", name)
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(dir, name), nil
}

// vectorPattern matches one "(a,b,c)" entry of a space directions field.
var vectorPattern = regexp.MustCompile(`\(([^)]*)\)|none`)

// SpaceDirections parses the space directions field into a 3x3 matrix
// whose row i is the direction vector of axis i.
func (h *Header) SpaceDirections() (*mat.Dense, error) {
	const op = "nrrd.space_directions"

	value, ok := h.Get("space directions")
	if !ok || value == "" {
		return nil, volerr.New(volerr.CodeMissingField, op, "", "invalid or missing 'space directions' in NHDR header")
	}

	vectors := vectorPattern.FindAllStringSubmatch(value, -1)
	if len(vectors) != 3 {
		return nil, volerr.New(volerr.CodeMalformedField, op, "", "expected 3 direction vectors, got %d in %q", len(vectors), value)
	}

	data := make([]float64, 0, 9)
	for _, v := range vectors {
		if v[0] == "none" {
			return nil, volerr.New(volerr.CodeMalformedField, op, "", "non-spatial axis in %q", value)
		}
		parts := strings.Split(v[1], ",")
		if len(parts) != 3 {
			return nil, volerr.New(volerr.CodeMalformedField, op, "", "expected 3 components in %q", v[0])
		}
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, volerr.Wrap(volerr.CodeMalformedField, op, "", err, "invalid component in %q", v[0])
			}
			data = append(data, f)
		}
	}

	return mat.NewDense(3, 3, data), nil
}

// parseSpacing takes the diagonal of the space directions matrix. Skewed or
// rotated grids lose their off-diagonal terms. Headers without space
// directions may give a "spacings" field instead.
func (h *Header) parseSpacing() (models.Spacing, error) {
	if _, ok := h.Get("space directions"); !ok {
		if value, ok := h.Get("spacings"); ok {
			return parseSpacings(value)
		}
	}

	dirs, err := h.SpaceDirections()
	if err != nil {
		return models.Spacing{}, err
	}
	return models.Spacing{X: dirs.At(0, 0), Y: dirs.At(1, 1), Z: dirs.At(2, 2)}, nil
}

func parseSpacings(value string) (models.Spacing, error) {
	const op = "nrrd.spacings"

	fields := strings.Fields(value)
	if len(fields) != 3 {
		return models.Spacing{}, volerr.New(volerr.CodeMalformedField, op, "", "expected 3 spacings, got %q", value)
	}
	var s [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.Spacing{}, volerr.Wrap(volerr.CodeMalformedField, op, "", err, "invalid spacing %q", f)
		}
		s[i] = v
	}
	return models.Spacing{X: s[0], Y: s[1], Z: s[2]}, nil
}

func (h *Header) parseSizes() (models.Dims, error) {
	const op = "nrrd.sizes"

	value, ok := h.Get("sizes")
	if !ok || value == "" {
		return models.Dims{}, volerr.New(volerr.CodeMissingField, op, "", "invalid or missing 'sizes' in NHDR header")
	}

	fields := strings.Fields(value)
	if len(fields) != 3 {
		return models.Dims{}, volerr.New(volerr.CodeMalformedField, op, "", "expected 3 sizes, got %q", value)
	}
	var n [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v <= 0 {
			return models.Dims{}, volerr.New(volerr.CodeMalformedField, op, "", "invalid size %q", f)
		}
		n[i] = v
	}
	dims := models.Dims{X: n[0], Y: n[1], Z: n[2]}
	if _, ok := dims.CheckedCount(); !ok {
		return models.Dims{}, volerr.New(volerr.CodeMalformedField, op, "", "sizes %q are too large", value)
	}
	return dims, nil
}

func (h *Header) parseType() (scalar.Type, error) {
	value, ok := h.Get("type")
	if !ok || value == "" {
		return scalar.Invalid, volerr.New(volerr.CodeMissingField, "nrrd.type", "", "missing 'type' in NHDR header")
	}
	return scalar.ResolveNRRD(value)
}

func (h *Header) parseEncoding() (string, error) {
	value, ok := h.Get("encoding")
	if !ok {
		return EncodingRaw, nil
	}
	enc, ok := encodingAliases[strings.ToLower(value)]
	if !ok {
		return "", volerr.New(volerr.CodeMalformedField, "nrrd.encoding", "", "unsupported encoding %q", value)
	}
	return enc, nil
}

func (h *Header) parseEndian() (binary.ByteOrder, error) {
	value, ok := h.Get("endian")
	if !ok {
		return binary.NativeEndian, nil
	}
	switch strings.ToLower(value) {
	case "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, volerr.New(volerr.CodeMalformedField, "nrrd.endian", "", "invalid endian %q", value)
}

func (h *Header) parseByteSkip() (int64, error) {
	value, ok := h.Get("byte skip")
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, volerr.New(volerr.CodeMalformedField, "nrrd.byte_skip", "", "unsupported byte skip %q", value)
	}
	return n, nil
}

// withPath fills in the header path on errors raised while parsing fields.
func withPath(err error, path string) error {
	var e *volerr.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}

// WriteHeader writes a detached header describing meta. dataFile is written
// verbatim, so pass a path relative to the header's directory to keep the
// pair relocatable.
func WriteHeader(w io.Writer, meta models.VolumeMetadata, dataFile string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "NRRD0004")
	fmt.Fprintln(bw, "# written by volview")
	fmt.Fprintf(bw, "type: %s\n", meta.Type)
	fmt.Fprintln(bw, "dimension: 3")
	fmt.Fprintf(bw, "space directions: (%s,0,0) (0,%s,0) (0,0,%s)\n",
		formatFloat(meta.Spacing.X), formatFloat(meta.Spacing.Y), formatFloat(meta.Spacing.Z))
	fmt.Fprintf(bw, "sizes: %d %d %d\n", meta.Dims.X, meta.Dims.Y, meta.Dims.Z)

	enc := meta.Encoding
	if enc == "" {
		enc = EncodingRaw
	}
	fmt.Fprintf(bw, "encoding: %s\n", enc)

	switch meta.ByteOrder {
	case binary.BigEndian:
		fmt.Fprintln(bw, "endian: big")
	case binary.LittleEndian:
		fmt.Fprintln(bw, "endian: little")
	}
	if meta.ByteSkip > 0 {
		fmt.Fprintf(bw, "byte skip: %d\n", meta.ByteSkip)
	}
	fmt.Fprintf(bw, "data file: %s\n", dataFile)

	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
