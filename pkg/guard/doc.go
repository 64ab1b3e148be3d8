// Package guard turns failures into data.
//
// Go code signals failure two ways: a returned error, and a panic carrying an
// arbitrary value. This package converts both into an explicit Result value and a
// single canonical error type, *Error, so callers can switch on Result.Ok instead
// of threading control flow through error checks and recover calls.
//
// # Error Codes
//
// Every *Error carries exactly one Code from a closed set:
//
//	UNKNOWN, NETWORK, TIMEOUT, UNAUTHORIZED, FORBIDDEN, NOT_FOUND, VALIDATION, INTERNAL
//
// UNKNOWN is the default. The package never guesses a more specific code; callers
// classify at the point of failure:
//
//	return guard.CreateError("session expired", guard.WithCode(guard.CodeUnauthorized))
//
// # Guarded Execution
//
// Do runs a unit of work and always returns a Result:
//
//	res := guard.Do(func() (User, error) {
//	    return repo.Find(id)
//	})
//	if !res.Ok {
//	    log.Error("lookup failed", slog.Any("error", res.Err))
//	    return
//	}
//	use(res.Data)
//
// Asynchronous work uses Go, Async and Await. A Result is never observable before
// the unit of work settles.
//
// # Normalization
//
// Normalize maps any failure value to *Error:
//
//  1. values that already are (or wrap, or were projected from) an *Error are returned as is
//  2. other errors keep their message, code UNKNOWN, cause set to the error
//  3. anything else gets the message "Unknown error", cause set to the raw value
//
// # Structured Projection
//
// Projection returns the serializable view {name, message, code, meta}; the cause is
// deliberately left out since it may not be serializable. MarshalJSON and LogValue
// render the same view.
package guard
