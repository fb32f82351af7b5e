package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrMissingColumn     = errors.New("missing column")
	ErrEmptyInput        = errors.New("no rows left after cleaning")
	ErrTooManyRows       = errors.New("too many rows")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// MissingColumnError names the column that could not be found in the input.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// Unwrap lets errors.Is match ErrMissingColumn.
func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}
