package guard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
)

// ErrorName is the stable discriminant carried by every *Error and its projection.
const ErrorName = "GuardError"

// Error is the canonical failure representation.
//
// An *Error is immutable once constructed: every getter that exposes a reference
// type returns a copy.
type Error struct {
	name    string
	message string
	code    Code
	cause   any
	meta    map[string]any
}

// Option configures an *Error during construction.
type Option func(*Error)

// WithCode sets the classification. Values outside the closed set are stored as CodeUnknown.
func WithCode(code Code) Option { return func(e *Error) { e.code = orUnknown(code) } }

// WithCause records the original failure value for diagnostic traversal.
func WithCause(cause any) Option { return func(e *Error) { e.cause = cause } }

// WithMeta sets the metadata map. The map is cloned.
func WithMeta(meta map[string]any) Option {
	return func(e *Error) { e.meta = cloneMap(meta) }
}

// WithMetaKV adds a single metadata entry.
func WithMetaKV(key string, value any) Option {
	return func(e *Error) {
		if e.meta == nil {
			e.meta = map[string]any{}
		}
		e.meta[key] = value
	}
}

// New creates an *Error. The message is required; the code defaults to CodeUnknown.
func New(message string, opts ...Option) *Error {
	e := &Error{
		name:    ErrorName,
		message: message,
		code:    CodeUnknown,
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	return e
}

// Error implements the error interface and returns the message.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.message
}

// Unwrap exposes the cause to errors.Is and errors.As when the cause is an error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	if err, ok := e.cause.(error); ok {
		return err
	}
	return nil
}

// Name returns the discriminant, always ErrorName.
func (e *Error) Name() string { return e.name }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.message }

// Code returns the error category.
func (e *Error) Code() Code { return e.code }

// Cause returns the original failure value, if any.
func (e *Error) Cause() any { return e.cause }

// Meta returns a copy of the attached metadata, or nil when there is none.
func (e *Error) Meta() map[string]any { return cloneMap(e.meta) }

// HasCode reports whether e is non-nil and carries code.
func (e *Error) HasCode(code Code) bool { return e != nil && e.code == code }

// Projection is the serializable view of an *Error. It never contains the cause.
type Projection struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Code    Code           `json:"code"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Projection returns the structured view of e.
func (e *Error) Projection() Projection {
	return Projection{
		Name:    e.name,
		Message: e.message,
		Code:    e.code,
		Meta:    cloneMap(e.meta),
	}
}

// MarshalJSON encodes the projection.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Projection())
}

// LogValue renders the projection as a log group.
func (e *Error) LogValue() slog.Value {
	if e == nil {
		return slog.StringValue("<nil>")
	}
	attrs := []slog.Attr{
		slog.String("name", e.name),
		slog.String("message", e.message),
		slog.String("code", e.code.String()),
	}
	if len(e.meta) > 0 {
		metaAttrs := make([]any, 0, len(e.meta))
		for k, v := range e.meta {
			metaAttrs = append(metaAttrs, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("meta", metaAttrs...))
	}
	return slog.GroupValue(attrs...)
}

// Format implements fmt.Formatter. %+v includes the name, code and cause.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e != nil {
			fmt.Fprintf(s, "%s[%s]: %s", e.name, e.code, e.message)
			if e.cause != nil {
				fmt.Fprintf(s, ": %v", e.cause)
			}
			return
		}
		_, _ = io.WriteString(s, e.Error())
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// IsGuardError reports whether v is recognisable as an *Error.
func IsGuardError(v any) bool {
	_, ok := AsGuardError(v)
	return ok
}

// AsGuardError recovers an *Error from v.
//
// Recognised shapes:
//   - *Error (returned as is)
//   - any error chain containing an *Error (the innermost match found by errors.As)
//   - a Projection, *Projection or decoded map[string]any whose name is ErrorName
//     and whose message is a non-empty string; these are rebuilt into a new
//     *Error without a cause
func AsGuardError(v any) (*Error, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Error:
		return t, t != nil
	case Projection:
		return fromProjection(t)
	case *Projection:
		if t == nil {
			return nil, false
		}
		return fromProjection(*t)
	case map[string]any:
		return fromMap(t)
	case error:
		var ge *Error
		if errors.As(t, &ge) && ge != nil {
			return ge, true
		}
	}
	return nil, false
}

func fromProjection(p Projection) (*Error, bool) {
	if p.Name != ErrorName || p.Message == "" {
		return nil, false
	}
	return New(p.Message, WithCode(p.Code), WithMeta(p.Meta)), true
}

func fromMap(m map[string]any) (*Error, bool) {
	if name, _ := m["name"].(string); name != ErrorName {
		return nil, false
	}
	msg, ok := m["message"].(string)
	if !ok {
		return nil, false
	}
	p := Projection{Name: ErrorName, Message: msg}
	if code, ok := m["code"].(string); ok {
		p.Code = Code(code)
	}
	p.Meta, _ = m["meta"].(map[string]any)
	return fromProjection(p)
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		if mv, ok := v.(map[string]any); ok {
			out[k] = cloneMap(mv)
			continue
		}
		out[k] = v
	}
	return out
}
