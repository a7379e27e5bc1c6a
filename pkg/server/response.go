package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses. Client errors echo the
// error text; anything unexpected is logged and reported generically.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		msg = "an internal error occurred"
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func classify(err error) (status int, code string) {
	switch {
	case errors.Is(err, github.ErrInvalidUsername):
		return http.StatusBadRequest, "invalid_username"
	case errors.Is(err, roast.ErrUnrecognizedInput):
		return http.StatusBadRequest, "unrecognized_input"
	case errors.Is(err, roast.ErrEmptyInput):
		return http.StatusBadRequest, "empty_input"
	case errors.Is(err, roast.ErrUnknownPlatform):
		return http.StatusBadRequest, "unknown_platform"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, github.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
