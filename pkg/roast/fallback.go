package roast

import (
	"errors"
	"strings"

	"github.com/codeGROOVE-dev/ghroast/pkg/gemini"
)

// Fallback texts shown in place of a generated roast.
const (
	blockedMessage     = "Your request was too spicy even for our roast bot. Try toning it down a notch, you absolute savage."
	rateLimitMessage   = "Whoa there, speed demon! You've hit the API rate limit. Please wait a bit and try again, or consider upgrading your Gemini API plan for more requests."
	credentialsMessage = "Our roast engine is having technical difficulties. The irony is not lost on us. Please check your Gemini API key configuration."
	badRequestMessage  = "Your request was so bad it confused our AI. That's... actually kind of impressive in a sad way."

	fashionMessage = "Your fashion sense is so questionable, even our AI had to look away. That's an achievement in itself."
	typingMessage  = "Your typing skills are so bad, even our roast generator gave up trying to find appropriate words."
	profileMessage = "Your online presence is so cringe, it broke our AI. Congratulations on that unique achievement."
	genericMessage = "Something went so wrong that even our AI couldn't process it. That's... actually impressive."
)

// FallbackMessage returns the text to show when generation for prompt failed with err.
func FallbackMessage(err error, prompt string) string {
	switch {
	case errors.Is(err, gemini.ErrContentBlocked):
		return blockedMessage
	case errors.Is(err, gemini.ErrRateLimitExhausted):
		return rateLimitMessage
	case errors.Is(err, gemini.ErrUnconfigured), errors.Is(err, gemini.ErrAccessForbidden):
		return credentialsMessage
	case errors.Is(err, gemini.ErrBadRequest):
		return badRequestMessage
	}
	return contextualFallback(prompt)
}

// contextualFallback picks a message by keyword. Matching is case-sensitive.
func contextualFallback(prompt string) string {
	switch {
	case strings.Contains(prompt, "fashion"), strings.Contains(prompt, "outfit"):
		return fashionMessage
	case strings.Contains(prompt, "typing"), strings.Contains(prompt, "WPM"):
		return typingMessage
	case strings.Contains(prompt, "GitHub"), strings.Contains(prompt, "LinkedIn"), strings.Contains(prompt, "Instagram"):
		return profileMessage
	default:
		return genericMessage
	}
}

// ErrorKind names the failure class of a generation error for API consumers.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gemini.ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, gemini.ErrContentBlocked):
		return "content_blocked"
	case errors.Is(err, gemini.ErrRateLimitExhausted):
		return "rate_limited"
	case errors.Is(err, gemini.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, gemini.ErrAccessForbidden):
		return "forbidden"
	case errors.Is(err, gemini.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "server_error"
	}
}
