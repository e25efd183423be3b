// Package volerr defines the error taxonomy shared by the volume ingestion
// and transfer-function packages.
//
// Every failure carries a Code so callers can branch with errors.Is against
// the exported sentinels, regardless of how deeply the error was wrapped:
//
//	meta, buf, err := ingest.Load(path)
//	if errors.Is(err, volerr.ErrSizeMismatch) {
//		// payload does not match the declared dims
//	}
package volerr

import (
	"errors"
	"fmt"
)

// Code categorizes ingestion and codec failures.
type Code string

const (
	// CodeFileNotFound indicates a missing header, raw or transfer-function file.
	CodeFileNotFound Code = "FILE_NOT_FOUND"

	// CodeUnknownType indicates a scalar type name that is not registered.
	CodeUnknownType Code = "UNKNOWN_TYPE"

	// CodeMalformedFilename indicates a raw filename that does not follow
	// the <X>x<Y>x<Z>_<TYPE>.raw convention.
	CodeMalformedFilename Code = "MALFORMED_FILENAME"

	// CodeMissingField indicates a required header field is absent or empty.
	CodeMissingField Code = "MISSING_FIELD"

	// CodeMalformedField indicates a header field that could not be parsed.
	CodeMalformedField Code = "MALFORMED_FIELD"

	// CodeUnsupportedDimension indicates a volume that is not 3-D.
	CodeUnsupportedDimension Code = "UNSUPPORTED_DIMENSION"

	// CodeSizeMismatch indicates a decoded element count that differs from the dims.
	CodeSizeMismatch Code = "SIZE_MISMATCH"

	// CodeInvalidSpacing indicates a non-positive voxel spacing.
	CodeInvalidSpacing Code = "INVALID_SPACING"

	// CodeUnsupportedExtension indicates a path the ingestion facade cannot dispatch.
	CodeUnsupportedExtension Code = "UNSUPPORTED_EXTENSION"

	// CodeMalformedLine indicates a transfer-function line with a non-numeric field.
	CodeMalformedLine Code = "MALFORMED_LINE"
)

// Sentinels for errors.Is. They compare equal to any *Error with the same Code.
var (
	ErrFileNotFound         = &Error{Code: CodeFileNotFound}
	ErrUnknownType          = &Error{Code: CodeUnknownType}
	ErrMalformedFilename    = &Error{Code: CodeMalformedFilename}
	ErrMissingField         = &Error{Code: CodeMissingField}
	ErrMalformedField       = &Error{Code: CodeMalformedField}
	ErrUnsupportedDimension = &Error{Code: CodeUnsupportedDimension}
	ErrSizeMismatch         = &Error{Code: CodeSizeMismatch}
	ErrInvalidSpacing       = &Error{Code: CodeInvalidSpacing}
	ErrUnsupportedExtension = &Error{Code: CodeUnsupportedExtension}
	ErrMalformedLine        = &Error{Code: CodeMalformedLine}
)

// Error is the concrete error returned by the ingestion packages.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed, e.g. "nrrd.ParseHeader".
	Op string

	// Path is the file involved, if any.
	Path string

	// Msg is a human-readable description.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

// New creates an Error with a formatted message.
func New(code Code, op, path, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code Code, op, path string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Path: path, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
