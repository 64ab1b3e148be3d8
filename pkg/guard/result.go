package guard

import json "github.com/goccy/go-json"

// Result is either a success carrying Data or a failure carrying Err.
//
// Ok is the discriminant; exactly one arm is populated.
type Result[T any] struct {
	Ok   bool
	Data T
	Err  *Error
}

// Success returns the success arm.
func Success[T any](data T) Result[T] {
	return Result[T]{Ok: true, Data: data}
}

// Failure returns the failure arm. A nil err is replaced by Normalize(nil).
func Failure[T any](err *Error) Result[T] {
	if err == nil {
		err = Normalize(nil)
	}
	return Result[T]{Err: err}
}

// Get returns the value and a plain error. The error is a nil interface on
// success. The zero Result is a failure and reports Normalize(nil).
func (r Result[T]) Get() (T, error) {
	if !r.Ok {
		var zero T
		return zero, r.failure()
	}
	return r.Data, nil
}

// Must returns Data or panics with the *Error.
func (r Result[T]) Must() T {
	if !r.Ok {
		panic(r.failure())
	}
	return r.Data
}

func (r Result[T]) failure() *Error {
	if r.Err == nil {
		return Normalize(nil)
	}
	return r.Err
}

// OrElse returns Data on success and def otherwise.
func (r Result[T]) OrElse(def T) T {
	if !r.Ok {
		return def
	}
	return r.Data
}

// Map applies f to the success value.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if !r.Ok {
		return Failure[U](r.Err)
	}
	return Success(f(r.Data))
}

type resultJSON[T any] struct {
	Ok    bool   `json:"ok"`
	Data  *T     `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MarshalJSON encodes {"ok":true,"data":...} or {"ok":false,"error":{...}}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Ok {
		return json.Marshal(resultJSON[T]{Ok: true, Data: &r.Data})
	}
	return json.Marshal(resultJSON[T]{Ok: false, Error: r.failure()})
}
