package guard

import "fmt"

// CreateError is the call-form factory for *Error; it is equivalent to New.
func CreateError(message string, opts ...Option) *Error {
	return New(message, opts...)
}

// Errorf formats a message and classifies it with code. A %w operand becomes the
// cause; with several %w operands the formatted error itself is kept as the cause.
func Errorf(code Code, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	opts := []Option{WithCode(code)}

	switch u := err.(type) {
	case interface{ Unwrap() error }:
		opts = append(opts, WithCause(u.Unwrap()))
	case interface{ Unwrap() []error }:
		opts = append(opts, WithCause(err))
	}

	return New(err.Error(), opts...)
}
