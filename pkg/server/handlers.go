package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/insight"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

type roastRequest struct {
	Platform string `json:"platform"`
	Input    string `json:"input"`
}

type roastAllRequest struct {
	Inputs map[string]string `json:"inputs"`
}

type roastAllResponse struct {
	Results map[roast.Platform]*roast.Result `json:"results"`
	Errors  []string                         `json:"errors,omitempty"`
}

type profileResponse struct {
	Profile  *github.Profile `json:"profile"`
	Insights []string        `json:"insights"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoast(w http.ResponseWriter, r *http.Request) {
	var req roastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	platform, err := roast.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	res, err := s.roaster.Roast(r.Context(), platform, req.Input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRoastAll(w http.ResponseWriter, r *http.Request) {
	var req roastAllRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if len(req.Inputs) == 0 {
		writeError(w, s.logger, fmt.Errorf("%w: inputs must name at least one platform", errBadRequest))
		return
	}

	inputs := make(map[roast.Platform]string, len(req.Inputs))
	for name, input := range req.Inputs {
		platform, err := roast.ParsePlatform(name)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		inputs[platform] = input
	}

	results, err := s.roaster.RoastAll(r.Context(), inputs)
	if err != nil && len(results) == 0 {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roastAllResponse{Results: results, Errors: errorMessages(err)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.FetchProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	insights := insight.Derive(p, s.now())
	if insights == nil {
		insights = []string{}
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: p, Insights: insights})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.sessions == nil {
		writeError(w, s.logger, fmt.Errorf("%w: %s", session.ErrNotFound, id))
		return
	}
	rec, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

// errorMessages flattens a joined error into one message per platform.
func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	var msgs []string
	for _, e := range joined.Unwrap() {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
