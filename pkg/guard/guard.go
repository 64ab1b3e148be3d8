package guard

import "context"

// Do runs fn on the calling goroutine and returns its outcome as a Result.
//
// A returned error and a panic raised inside fn are both normalized into the
// failure arm. Do itself never panics and never retries.
//
// Any non-nil error counts as a failure, including a typed-nil *Error, which
// normalizes to FallbackMessage.
func Do[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if rvr := recover(); rvr != nil {
			res = Failure[T](Normalize(rvr))
		}
	}()

	data, err := fn()
	if err != nil {
		return Failure[T](Normalize(err))
	}

	return Success(data)
}

// Run is Do for bodies that take a context. The context is handed to fn as is;
// Run does not cancel fn or stop waiting for it.
func Run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) Result[T] {
	return Do(func() (T, error) {
		return fn(ctx)
	})
}

// Exec is Do for bodies that produce no value.
func Exec(fn func() error) Result[struct{}] {
	return Do(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Async runs fn in a new goroutine. The returned channel receives exactly one
// Result once fn settles and is then closed.
func Async[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)

	go func() {
		defer close(ch)
		ch <- Do(fn)
	}()

	return ch
}

// Await runs a body that hands back an awaitable and waits for it to settle.
//
// fn may panic before producing the future, return a nil future, or return a
// future that later resolves or rejects; each case yields a Result.
func Await[T any](fn func() *Future[T]) Result[T] {
	return Do(func() (T, error) {
		f := fn()
		if f == nil {
			var zero T
			return zero, Normalize(nil)
		}
		return f.Await()
	})
}
