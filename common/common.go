package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNilArguments is returned when a required argument is nil
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilPointer is returned when a required struct pointer is nil
	ErrNilPointer = errors.New("nil pointer")
	// ErrDateUnset is returned when a required time value is zero
	ErrDateUnset = errors.New("date unset")
	// ErrStartAfterEnd is returned when a date range is inverted
	ErrStartAfterEnd = errors.New("start date after end date")
	// ErrSymbolUnset is returned when an operation requires a symbol
	ErrSymbolUnset = errors.New("symbol unset")
)

// AppendError appends a new error to the existing error chain, creating the
// chain when err is nil
func AppendError(err, newErr error) error {
	if newErr == nil {
		return err
	}
	if err == nil {
		return newErr
	}
	return fmt.Errorf("%v, %w", err, newErr)
}
