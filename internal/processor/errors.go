package processor

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an item-fatal processing failure.
type ErrorCode string

const (
	ErrCodeReadFailed        ErrorCode = "READ_FAILED"
	ErrCodeDecodeFailed      ErrorCode = "DECODE_FAILED"
	ErrCodeEncodeFailed      ErrorCode = "ENCODE_FAILED"
	ErrCodeWriteFailed       ErrorCode = "WRITE_FAILED"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodePanic             ErrorCode = "PANIC"
)

// Error is an item-fatal failure. It never stops the scan loop or other items.
type Error struct {
	Code   ErrorCode
	Kind   Kind
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Kind, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a code for the given item.
func NewError(code ErrorCode, kind Kind, source string, err error) *Error {
	return &Error{Code: code, Kind: kind, Source: source, Err: err}
}

// ErrorCodeOf returns the code of the first *Error in err's chain.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}
