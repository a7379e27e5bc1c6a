package gemini

import (
	"errors"
	"fmt"
)

// Error kinds returned by Generate. Match them with errors.Is.
var (
	ErrUnconfigured       = errors.New("gemini API key not configured")
	ErrContentBlocked     = errors.New("content blocked by gemini")
	ErrRateLimitExhausted = errors.New("gemini rate limit: retries exhausted")
	ErrBadRequest         = errors.New("bad request to gemini API")
	ErrAccessForbidden    = errors.New("gemini API access forbidden")
	ErrServerError        = errors.New("gemini API error")
	ErrMalformedResponse  = errors.New("invalid response from gemini API")
)

// Error is a classified Generate failure.
type Error struct {
	Kind         error
	Err          error // underlying SDK or transport error, if any
	Message      string
	FinishReason string
	StatusCode   int
	Attempts     int
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.FinishReason != "" {
		msg = fmt.Sprintf("%s: finish reason %s", msg, e.FinishReason)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the classified kind of err, or nil if err did not come from Generate.
func Kind(err error) error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return nil
}
