package dataset

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNoInputFiles reports a source directory without any TIFF files.
	ErrNoInputFiles = errors.New("no tiff files found")

	// ErrClosed reports use of an iterator after Close.
	ErrClosed = errors.New("iterator is closed")
)

// ReadError reports a failed read or decode of a specific source file. It
// aborts iteration; malformed files are never skipped.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}
