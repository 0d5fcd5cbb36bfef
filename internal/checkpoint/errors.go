package checkpoint

import (
	"errors"
	"fmt"
)

// Alignment errors. Returned wrapped in *AlignmentError; test with errors.Is.
var (
	ErrParameterCount   = errors.New("parameter count mismatch")
	ErrShapeMismatch    = errors.New("parameter shape mismatch")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrUnknownSource    = errors.New("unknown checkpoint source")
	ErrTiedMismatch     = errors.New("tied parameter mismatch")
)

// File errors.
var (
	ErrHeaderTooLarge = errors.New("header exceeds maximum size")
	ErrOutOfBounds    = errors.New("tensor extends beyond data section")
)

// AlignmentError reports why a checkpoint cannot be mapped onto a model.
type AlignmentError struct {
	Kind    error  // One of the Err* sentinels above
	Name    string // Offending parameter (foreign name when known)
	Details string // Additional details
}

// Error implements the error interface.
func (e *AlignmentError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: parameter %q: %s", e.Kind, e.Name, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Details)
}

// Unwrap returns the sentinel so errors.Is works.
func (e *AlignmentError) Unwrap() error {
	return e.Kind
}
