package boundary

import (
	"net/http"

	"github.com/guardkit/guard/pkg/guard"
)

// StatusOf maps a code to the HTTP status used when rendering a failure.
func StatusOf(code guard.Code) int {
	switch code {
	case guard.CodeValidation:
		return http.StatusBadRequest
	case guard.CodeUnauthorized:
		return http.StatusUnauthorized
	case guard.CodeForbidden:
		return http.StatusForbidden
	case guard.CodeNotFound:
		return http.StatusNotFound
	case guard.CodeTimeout:
		return http.StatusGatewayTimeout
	case guard.CodeNetwork:
		return http.StatusBadGateway
	case guard.CodeInternal, guard.CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
