package boundary

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/guardkit/guard/pkg/guard"
)

// Fallback renders a failure that escaped a handler.
type Fallback func(w http.ResponseWriter, r *http.Request, err *guard.Error)

type fallbackContextKey struct{}

// WithFallback returns a copy of ctx carrying fb as the default fallback.
// A nil fb leaves ctx unchanged.
func WithFallback(ctx context.Context, fb Fallback) context.Context {
	if fb == nil {
		return ctx
	}
	return context.WithValue(ctx, fallbackContextKey{}, fb)
}

// FallbackFrom returns the fallback installed in ctx, or nil.
func FallbackFrom(ctx context.Context) Fallback {
	fb, _ := ctx.Value(fallbackContextKey{}).(Fallback)
	return fb
}

// Provider installs fb as the default fallback for every request passing through.
func Provider(fb Fallback) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithFallback(r.Context(), fb)))
		})
	}
}

// GinProvider is Provider for gin routers and groups.
func GinProvider(fb Fallback) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithFallback(c.Request.Context(), fb))
		c.Next()
	}
}

// NullFallback writes the status for the error code and no body.
func NullFallback(w http.ResponseWriter, _ *http.Request, err *guard.Error) {
	w.WriteHeader(StatusOf(err.Code()))
}

// JSONFallback writes the failure arm of a Result as JSON.
func JSONFallback(w http.ResponseWriter, _ *http.Request, err *guard.Error) {
	body, mErr := json.Marshal(guard.Failure[any](err))
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(StatusOf(err.Code()))
	_, _ = w.Write(body)
}
