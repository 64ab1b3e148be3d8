package guard_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guard/pkg/guard"
)

type panickyError struct {
	detail *string
}

func (e panickyError) Error() string { return *e.detail }

func TestNormalize_GuardErrorIsReturnedUnchanged(t *testing.T) {
	cause := errors.New("root")
	orig := guard.New("bad",
		guard.WithCode(guard.CodeValidation),
		guard.WithCause(cause),
		guard.WithMetaKV("field", "email"),
	)

	got := guard.Normalize(orig)
	assert.Same(t, orig, got)
	assert.Equal(t, guard.CodeValidation, got.Code())
	assert.Same(t, cause, got.Cause())

	// Normalizing twice is still the same instance.
	assert.Same(t, orig, guard.Normalize(guard.Normalize(orig)))

	// Re-wrapped by another layer.
	assert.Same(t, orig, guard.Normalize(fmt.Errorf("handler: %w", orig)))
}

func TestNormalize_ErrorKeepsMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"errors.New", errors.New("boom")},
		{"wrapped", fmt.Errorf("load: %w", errors.New("eof"))},
		{"empty message", errors.New("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard.Normalize(tt.err)

			assert.Equal(t, tt.err.Error(), got.Message())
			assert.Equal(t, guard.CodeUnknown, got.Code())
			assert.Equal(t, tt.err, got.Cause())
			assert.True(t, errors.Is(got, tt.err))
		})
	}
}

func TestNormalize_OtherValuesGetFallbackMessage(t *testing.T) {
	var nilGuard *guard.Error

	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"string", "boom"},
		{"int", 42},
		{"float", 3.5},
		{"bool", false},
		{"struct", struct{ Code int }{Code: 7}},
		{"map without name", map[string]any{"message": "x"}},
		{"tagged map without message", map[string]any{"name": "GuardError"}},
		{"tagged map with non-string message", map[string]any{"name": "GuardError", "message": 42}},
		{"tagged projection without message", guard.Projection{Name: guard.ErrorName, Code: guard.CodeInternal}},
		{"tagged projection pointer without message", &guard.Projection{Name: guard.ErrorName}},
		{"typed nil guard error", nilGuard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *guard.Error
			require.NotPanics(t, func() { got = guard.Normalize(tt.value) })

			assert.Equal(t, "Unknown error", got.Message())
			assert.Equal(t, guard.FallbackMessage, got.Message())
			assert.Equal(t, guard.CodeUnknown, got.Code())
			assert.Equal(t, tt.value, got.Cause())
		})
	}
}

func TestNormalize_PanickingErrorMethod(t *testing.T) {
	bad := panickyError{}

	var got *guard.Error
	require.NotPanics(t, func() { got = guard.Normalize(bad) })

	assert.Equal(t, guard.FallbackMessage, got.Message())
	assert.Equal(t, bad, got.Cause())
}

func TestNormalize_ClonedProjectionIsRebuilt(t *testing.T) {
	clone := map[string]any{
		"name":    "GuardError",
		"message": "Component crashed!",
		"code":    "INTERNAL",
	}

	got := guard.Normalize(clone)
	assert.Equal(t, "Component crashed!", got.Message())
	assert.Equal(t, guard.CodeInternal, got.Code())
	assert.Nil(t, got.Cause())
}
