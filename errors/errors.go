package errors

import (
	"errors"
	"fmt"
)

// Category classifies construction-time errors for targeted handling.
type Category string

const (
	CategoryConfig   Category = "config"
	CategorySource   Category = "source"
	CategoryRegistry Category = "registry"
)

// ProcessingError is the structured error returned by constructors.  Decode
// outcomes never use it; they are reported as *DecodeError inside results.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// Sentinel errors for construction failures.
var (
	ErrNilRegistry    = errors.New("registry must not be nil")
	ErrDuplicateCodec = errors.New("codec already registered")
	ErrUnknownCodec   = errors.New("unknown codec")
)
