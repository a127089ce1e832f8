package types

import (
	"errors"
	"fmt"
)

// Domain errors for record validation and lifecycle
var (
	ErrEmptyPath         = errors.New("path cannot be empty")
	ErrRelativePath      = errors.New("path must be absolute")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrInvalidStatus     = errors.New("invalid processing status")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrGroupResolutionConflict marks two candidates that rank equally under the
	// revision ordering. It is logged, never returned to callers of the pipeline.
	ErrGroupResolutionConflict = errors.New("group resolution conflict")

	// ErrExtractionFailed is recorded when a content extractor fails.
	ErrExtractionFailed = errors.New("content extraction failed")
)

// IOError reports a file that could not be read at hashing time. It is
// transient: the path should be retried in the next batch.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// StoreWriteError reports a failed upsert. Fatal for that record only.
type StoreWriteError struct {
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed for %s: %v", e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried in a later batch.
func IsTransient(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
