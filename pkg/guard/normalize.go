package guard

// FallbackMessage is the message given to failures that carry no message of their own.
const FallbackMessage = "Unknown error"

// Normalize maps any failure value to an *Error. It never panics.
//
// Values recognised by AsGuardError are returned unchanged. Other errors keep
// their message with code UNKNOWN and become the cause. Everything else,
// including nil, gets FallbackMessage with the raw value as cause.
func Normalize(v any) *Error {
	if ge, ok := AsGuardError(v); ok {
		return ge
	}

	if err, ok := v.(error); ok {
		if msg, ok := messageOf(err); ok {
			return New(msg, WithCause(err))
		}
	}

	return New(FallbackMessage, WithCause(v))
}

// messageOf reads err.Error(), refusing typed-nil *Error values and errors whose
// Error method panics.
func messageOf(err error) (msg string, ok bool) {
	if ge, isGuard := err.(*Error); isGuard && ge == nil {
		return "", false
	}

	defer func() {
		if recover() != nil {
			msg, ok = "", false
		}
	}()

	return err.Error(), true
}
