package guard

import "sync"

// Future is the outcome of an asynchronous unit of work.
//
// It settles exactly once. Await blocks until then; Done can be selected on by
// callers that want to stop waiting, which the future itself never does.
//
// The zero Future has nothing to settle it and counts as already rejected
// with Normalize(nil).
type Future[T any] struct {
	init sync.Once
	once sync.Once
	done chan struct{}
	res  Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go starts fn in a new goroutine and returns its Future.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	go func() {
		f.settle(Do(fn))
	}()

	return f
}

// Resolved returns a future that has already succeeded with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(Success(v))
	return f
}

// Rejected returns a future that has already failed with Normalize(v).
func Rejected[T any](v any) *Future[T] {
	f := newFuture[T]()
	f.settle(Failure[T](Normalize(v)))
	return f
}

// NewPromise returns an unsettled future together with its settle functions.
// Only the first call to resolve or reject has an effect.
func NewPromise[T any]() (f *Future[T], resolve func(T), reject func(any)) {
	f = newFuture[T]()
	resolve = func(v T) { f.settle(Success(v)) }
	reject = func(v any) { f.settle(Failure[T](Normalize(v))) }
	return f, resolve, reject
}

func (f *Future[T]) settle(res Result[T]) {
	f.once.Do(func() {
		f.res = res
		close(f.done)
	})
}

// wait returns the done channel, settling a zero Future on first use.
func (f *Future[T]) wait() <-chan struct{} {
	f.init.Do(func() {
		if f.done == nil {
			f.done = make(chan struct{})
			f.settle(Failure[T](nil))
		}
	})
	return f.done
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.wait()
}

// Await blocks until the future settles. A failure is returned as *Error.
func (f *Future[T]) Await() (T, error) {
	<-f.wait()
	return f.res.Get()
}

// Result blocks until the future settles and returns its Result.
func (f *Future[T]) Result() Result[T] {
	<-f.wait()
	return f.res
}
