// Package playground serves demo endpoints that exercise every path through
// guarded execution: success, plain errors, classified errors, panics caught
// by boundaries and failures coming from an upstream service.
package playground

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/guardkit/guard/internal/journal"
	"github.com/guardkit/guard/pkg/guard"
	"github.com/guardkit/guard/pkg/guard/boundary"
)

// Fetcher loads JSON from a URL; *httpclient.Client implements it.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// Journal is the part of *journal.Journal the playground reads.
type Journal interface {
	List(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
	CountByCode(ctx context.Context) (map[guard.Code]int, error)
}

// User is the payload of the basic success scenario.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is one catalog item.
type Product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Catalog is the payload of the products scenario.
type Catalog struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Handlers holds the playground dependencies.
type Handlers struct {
	fetch   Fetcher
	journal Journal
}

// New creates the playground handlers.
func New(fetch Fetcher, j Journal) *Handlers {
	return &Handlers{fetch: fetch, journal: j}
}

// Register mounts the playground routes on r.
//
// The crash route has its own boundary, so its fallback wins over whatever
// default the router installed; every other panic falls through to the
// router-level boundary.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/basic/ok", boundary.Handle(h.basicOK))
	r.GET("/basic/fail", boundary.Handle(h.basicFail))
	r.GET("/products", boundary.Handle(h.products))
	r.GET("/typed/:code", boundary.Handle(h.typed))
	r.GET("/boundary/crash", boundary.New(boundary.WithRenderer(CrashFallback)).Gin(), crash)
	r.GET("/boundary/raw", raw)
	r.GET("/fetch", boundary.Handle(h.fetchURL))
	r.GET("/failures", boundary.Handle(h.failures))
	r.GET("/failures/stats", boundary.Handle(h.stats))
}

func (h *Handlers) basicOK(*gin.Context) (User, error) {
	return User{ID: 1, Name: "John Doe", Email: "john@example.com"}, nil
}

func (h *Handlers) basicFail(*gin.Context) (User, error) {
	return User{}, errors.New("Failed to fetch user data")
}

func (h *Handlers) products(*gin.Context) (Catalog, error) {
	items := []Product{
		{ID: 1, Name: "Widget", Price: 29.99},
		{ID: 2, Name: "Gadget", Price: 49.99},
	}
	return Catalog{Products: items, Total: len(items)}, nil
}

func (h *Handlers) typed(c *gin.Context) (struct{}, error) {
	raw := c.Param("code")
	code, ok := guard.ParseCode(raw)
	if !ok {
		return struct{}{}, guard.New("unknown error code",
			guard.WithCode(guard.CodeValidation),
			guard.WithMetaKV("code", raw),
			guard.WithMetaKV("allowed", guard.Codes()),
		)
	}
	return struct{}{}, Scenario(code)
}

// Scenario returns the canned failure for code.
func Scenario(code guard.Code) *guard.Error {
	switch code {
	case guard.CodeNetwork:
		return guard.CreateError("Connection refused", guard.WithCode(code),
			guard.WithMeta(map[string]any{"url": "/api/users", "attempt": 1}))
	case guard.CodeUnauthorized:
		return guard.CreateError("Session expired", guard.WithCode(code),
			guard.WithMetaKV("redirectTo", "/login"))
	case guard.CodeValidation:
		return guard.CreateError("Invalid email format", guard.WithCode(code),
			guard.WithMeta(map[string]any{"field": "email", "value": "not-an-email"}))
	case guard.CodeForbidden:
		return guard.CreateError("Access denied", guard.WithCode(code),
			guard.WithMetaKV("resource", "/admin"))
	case guard.CodeNotFound:
		return guard.CreateError("HTTP 404: Not Found", guard.WithCode(code),
			guard.WithMetaKV("status", http.StatusNotFound))
	case guard.CodeTimeout:
		return guard.CreateError("Request timed out", guard.WithCode(code),
			guard.WithMetaKV("after", "5s"))
	case guard.CodeInternal:
		return guard.CreateError("Component crashed!", guard.WithCode(code))
	default:
		return guard.CreateError(guard.FallbackMessage)
	}
}

func crash(*gin.Context) {
	panic(guard.CreateError("Component crashed!", guard.WithCode(guard.CodeInternal)))
}

func raw(*gin.Context) {
	panic("renderer exploded")
}

// CrashFallback is the crash route's own fallback.
func CrashFallback(w http.ResponseWriter, _ *http.Request, err *guard.Error) {
	body, mErr := json.Marshal(map[string]any{
		"boundary": "crash",
		"error":    err,
		"retry":    "/v1/boundary/crash",
	})
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(boundary.StatusOf(err.Code()))
	_, _ = w.Write(body)
}

func (h *Handlers) fetchURL(c *gin.Context) (any, error) {
	target := c.Query("url")
	if target == "" {
		return nil, guard.New("url is required",
			guard.WithCode(guard.CodeValidation),
			guard.WithMetaKV("field", "url"),
		)
	}
	var out any
	if err := h.fetch.GetJSON(c.Request.Context(), target, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handlers) failures(c *gin.Context) ([]journal.Entry, error) {
	f := journal.Filter{
		Code:   guard.Code(c.Query("code")),
		Source: c.Query("source"),
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, guard.New("limit must be a non-negative integer",
				guard.WithCode(guard.CodeValidation),
				guard.WithCause(err),
				guard.WithMetaKV("limit", s),
			)
		}
		f.Limit = n
	}
	return h.journal.List(c.Request.Context(), f)
}

func (h *Handlers) stats(c *gin.Context) (map[guard.Code]int, error) {
	return h.journal.CountByCode(c.Request.Context())
}
