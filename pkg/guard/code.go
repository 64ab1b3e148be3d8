package guard

// Code is a coarse failure category attached to every *Error.
//
// The set is closed: adding a value is a breaking change for consumers that
// switch on it exhaustively.
type Code string

const (
	// CodeUnknown is the unclassified default.
	CodeUnknown Code = "UNKNOWN"
	// CodeNetwork represents transport or upstream failures.
	CodeNetwork Code = "NETWORK"
	// CodeTimeout represents deadline or timeout failures.
	CodeTimeout Code = "TIMEOUT"
	// CodeUnauthorized represents missing or invalid authentication.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeForbidden represents authenticated but disallowed access.
	CodeForbidden Code = "FORBIDDEN"
	// CodeNotFound represents a missing resource.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation represents rejected input.
	CodeValidation Code = "VALIDATION"
	// CodeInternal represents a failure inside the application itself.
	CodeInternal Code = "INTERNAL"
)

var codes = []Code{
	CodeUnknown,
	CodeNetwork,
	CodeTimeout,
	CodeUnauthorized,
	CodeForbidden,
	CodeNotFound,
	CodeValidation,
	CodeInternal,
}

// Codes returns the closed set of codes in declaration order.
func Codes() []Code {
	out := make([]Code, len(codes))
	copy(out, codes)
	return out
}

// String returns the wire tag of the code.
func (c Code) String() string {
	return string(c)
}

// Valid reports whether c belongs to the closed set.
func (c Code) Valid() bool {
	for _, known := range codes {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCode returns the code named by s and whether it is a member of the set.
// Unknown input yields CodeUnknown, false.
func ParseCode(s string) (Code, bool) {
	c := Code(s)
	if c.Valid() {
		return c, true
	}
	return CodeUnknown, false
}

func orUnknown(c Code) Code {
	if c.Valid() {
		return c
	}
	return CodeUnknown
}
