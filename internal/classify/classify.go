// Package classify maps Go errors onto guard codes.
//
// The guard core never guesses a code. Application code that receives errors
// from the standard library or third-party packages uses this package at the
// point of failure to attach one before the error reaches guarded execution.
package classify

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/guardkit/guard/pkg/guard"
)

// Sentinel errors that application code can wrap to signal a category.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates that input validation failed
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates that the request lacks valid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the request is understood but forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrDependencyFailure indicates that an external dependency failed
	ErrDependencyFailure = errors.New("dependency failure")

	// ErrInternal indicates an internal failure
	ErrInternal = errors.New("internal error")

	// ErrInvariantViolated indicates that a business rule was violated
	ErrInvariantViolated = errors.New("invariant violated")
)

// priorities is the deterministic order CodeOf checks sentinels in.
var priorities = []struct {
	code guard.Code
	err  error
}{
	{guard.CodeNotFound, ErrNotFound},
	{guard.CodeValidation, ErrValidation},
	{guard.CodeUnauthorized, ErrUnauthorized},
	{guard.CodeForbidden, ErrForbidden},
	{guard.CodeNetwork, ErrDependencyFailure},
	{guard.CodeInternal, ErrInternal},
	{guard.CodeInternal, ErrInvariantViolated},
}

// CodeOf returns the guard code for err.
//
// The classification order (highest to lowest):
//  1. a specific code already carried by a *guard.Error in the chain
//  2. CodeTimeout (context.DeadlineExceeded, ErrTimeout, net timeouts)
//  3. sentinels: not found, validation, unauthorized, forbidden, dependency, internal
//  4. CodeValidation for validator.ValidationErrors
//  5. CodeNetwork for remaining net.Error and *url.Error values
//
// context.Canceled and anything unrecognised yield CodeUnknown.
func CodeOf(err error) guard.Code {
	if err == nil {
		return guard.CodeUnknown
	}

	var ge *guard.Error
	if errors.As(err, &ge) && ge != nil && ge.Code() != guard.CodeUnknown {
		return ge.Code()
	}

	if IsCanceled(err) {
		return guard.CodeUnknown
	}
	if IsTimeout(err) {
		return guard.CodeTimeout
	}

	for _, p := range priorities {
		if errors.Is(err, p.err) {
			return p.code
		}
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return guard.CodeValidation
	}

	if isTransport(err) {
		return guard.CodeNetwork
	}

	return guard.CodeUnknown
}

// HasCode reports whether CodeOf(err) == code.
func HasCode(err error, code guard.Code) bool {
	return CodeOf(err) == code
}

// Classify converts err into a *guard.Error carrying CodeOf(err).
// A *guard.Error that already has a specific code is returned as is.
// If err is nil, Classify returns nil.
func Classify(err error, opts ...guard.Option) *guard.Error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)

	var ge *guard.Error
	if errors.As(err, &ge) && ge != nil && ge.Code() == code && len(opts) == 0 {
		return ge
	}

	all := append([]guard.Option{guard.WithCode(code), guard.WithCause(err)}, opts...)
	return guard.New(err.Error(), all...)
}

// Mark converts err into a *guard.Error with the given code, keeping err as the
// cause. Marking an error that already carries code returns it unchanged.
// If err is nil, Mark returns a fresh error whose message is the code's sentinel text.
func Mark(err error, code guard.Code) *guard.Error {
	if err == nil {
		return guard.New(sentinelText(code), guard.WithCode(code))
	}

	var ge *guard.Error
	if errors.As(err, &ge) && ge != nil && ge.Code() == code {
		return ge
	}

	return guard.New(err.Error(), guard.WithCode(code), guard.WithCause(err))
}

// Invariant returns a VALIDATION error carrying message when condition is false.
func Invariant(condition bool, message string) *guard.Error {
	if condition {
		return nil
	}
	return guard.New(message, guard.WithCode(guard.CodeValidation), guard.WithCause(ErrInvariantViolated))
}

// IsCanceled reports whether the error indicates a canceled context.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled)
}

// IsTimeout reports whether the error indicates a timeout.
// It checks for context.DeadlineExceeded, net.Error timeouts, and ErrTimeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

func isTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func sentinelText(code guard.Code) string {
	if code == guard.CodeTimeout {
		return ErrTimeout.Error()
	}
	for _, p := range priorities {
		if p.code == code {
			return p.err.Error()
		}
	}
	return guard.FallbackMessage
}
