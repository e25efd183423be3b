package nrrd

import (
	"compress/bzip2"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"volview/internal/models"
	"volview/pkg/rawfile"
	"volview/pkg/volerr"
)

// dataReader reads decoded payload bytes and closes every layer beneath it.
type dataReader struct {
	io.Reader
	closers []io.Closer
}

func (d *dataReader) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenData opens the data file named by meta and returns a reader over the
// decoded payload, positioned after any byte skip.
func OpenData(meta models.VolumeMetadata) (io.ReadCloser, error) {
	const op = "nrrd.OpenData"

	f, err := os.Open(meta.DataFile)
	if err != nil {
		return nil, volerr.Wrap(volerr.CodeFileNotFound, op, meta.DataFile, err, "raw data file not found")
	}

	d := &dataReader{Reader: f, closers: []io.Closer{f}}

	switch meta.Encoding {
	case "", EncodingRaw:
	case EncodingGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			d.Close()
			return nil, volerr.Wrap(volerr.CodeMalformedField, op, meta.DataFile, err, "invalid gzip payload")
		}
		d.Reader = zr
		d.closers = append(d.closers, zr)
	case EncodingZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			d.Close()
			return nil, volerr.Wrap(volerr.CodeMalformedField, op, meta.DataFile, err, "invalid zstd payload")
		}
		rc := zr.IOReadCloser()
		d.Reader = rc
		d.closers = append(d.closers, rc)
	case EncodingLZ4:
		d.Reader = lz4.NewReader(f)
	case EncodingBzip2:
		d.Reader = bzip2.NewReader(f)
	default:
		d.Close()
		return nil, volerr.New(volerr.CodeMalformedField, op, meta.DataFile, "unsupported encoding %q", meta.Encoding)
	}

	if meta.ByteSkip > 0 {
		if _, err := io.CopyN(io.Discard, d.Reader, meta.ByteSkip); err != nil {
			d.Close()
			return nil, volerr.Wrap(volerr.CodeSizeMismatch, op, meta.DataFile, err, "payload shorter than byte skip %d", meta.ByteSkip)
		}
	}

	return d, nil
}

// ReadVolume opens the data file named by meta and decodes it.
func ReadVolume(meta models.VolumeMetadata) (*rawfile.VoxelBuffer, error) {
	rc, err := OpenData(meta)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf, err := rawfile.Decode(rc, meta.Dims, meta.Type, rawfile.WithByteOrder(meta.ByteOrder))
	if err != nil {
		return nil, withPath(err, meta.DataFile)
	}
	return buf, nil
}
