package manifest

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ParseError represents a malformed or structurally invalid manifest.
// It carries the source location when the TOML decoder provides one.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	location := e.File
	if location == "" {
		location = "manifest"
	}
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", location, e.Line, e.Column)
	}
	return fmt.Sprintf("parse error in %s: %s", location, e.Message)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// wrapDecodeError converts a go-toml decode failure into a ParseError,
// preserving row/column information when available.
func wrapDecodeError(err error) *ParseError {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return &ParseError{
			Line:    row,
			Column:  col,
			Message: decodeErr.Error(),
			Cause:   err,
		}
	}

	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		return &ParseError{
			Message: fmt.Sprintf("unknown fields in manifest:\n%s", strictErr.String()),
			Cause:   err,
		}
	}

	return &ParseError{Message: err.Error(), Cause: err}
}
