package boundary

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guardkit/guard/pkg/guard"
)

// UnhandledMessage is the message given to panic values that are not guard errors.
const UnhandledMessage = "Unhandled error"

// Capture converts a recovered panic value into a *guard.Error. Values that pass
// the guard identity check are kept; anything else is wrapped with
// UnhandledMessage and kept as the cause.
func Capture(v any) *guard.Error {
	if ge, ok := guard.AsGuardError(v); ok {
		return ge
	}
	return guard.New(UnhandledMessage, guard.WithCause(v))
}

// Boundary recovers panics from the handlers it wraps.
type Boundary struct {
	fallback Fallback
	onError  func(ctx context.Context, err *guard.Error)
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithRenderer sets the fallback for this boundary. It overrides the provider default.
func WithRenderer(fb Fallback) Option {
	return func(b *Boundary) { b.fallback = fb }
}

// WithOnError registers an observer called with every captured error before it is rendered.
func WithOnError(fn func(ctx context.Context, err *guard.Error)) Option {
	return func(b *Boundary) { b.onError = fn }
}

// New creates a Boundary.
func New(opts ...Option) *Boundary {
	b := &Boundary{}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Resolve returns the fallback used for a request with ctx: the boundary's own,
// then the provider default, then NullFallback.
func (b *Boundary) Resolve(ctx context.Context) Fallback {
	if b.fallback != nil {
		return b.fallback
	}
	if fb := FallbackFrom(ctx); fb != nil {
		return fb
	}
	return NullFallback
}

// Wrap returns next guarded by the boundary.
func (b *Boundary) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if isAbort(rvr) {
					panic(rvr)
				}
				b.render(w, r, Capture(rvr))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Gin returns the boundary as gin middleware. Captured errors are also attached
// to the gin context with c.Error.
func (b *Boundary) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if isAbort(rvr) {
					panic(rvr)
				}
				ge := Capture(rvr)
				_ = c.Error(ge)
				c.Abort()
				b.render(c.Writer, c.Request, ge)
			}
		}()
		c.Next()
	}
}

func (b *Boundary) render(w http.ResponseWriter, r *http.Request, ge *guard.Error) {
	if b.onError != nil {
		b.onError(r.Context(), ge)
	}
	b.Resolve(r.Context())(w, r, ge)
}

func isAbort(v any) bool {
	err, ok := v.(error)
	return ok && errors.Is(err, http.ErrAbortHandler)
}
