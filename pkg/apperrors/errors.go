package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrSchema reports a table model that cannot support the requested
	// statement, e.g. an update on a table without id columns.
	ErrSchema = errors.New("schema error")

	ErrUnsupportedType = errors.New("unsupported type")
	ErrConversion      = errors.New("conversion error")
	ErrInvalidIndex    = errors.New("invalid row index")

	// ErrBufferTooSmall is returned by fixed-capacity rendering. Growable
	// rendering retries instead of returning it.
	ErrBufferTooSmall = errors.New("buffer too small")

	ErrSuspiciousValue = errors.New("value looks like SQL injection")

	ErrInvalidStatementKind = errors.New("invalid statement kind")
)

// UnsupportedTypeError names a value type with no parameter type mapping.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type: %s", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// ConversionError reports a raw value that could not be converted to its
// column's value type.
type ConversionError struct {
	Column string
	Type   string
	Value  any
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %T value %v to %s", e.Value, e.Value, e.Type)
	if e.Column != "" {
		msg = fmt.Sprintf("column %q: %s", e.Column, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func (e *ConversionError) Unwrap() error { return e.Err }
