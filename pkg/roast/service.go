// Package roast turns profile inputs into roasts: it gathers what it can about
// the profile, builds a prompt, asks the generative client, and records the
// result as a session.
package roast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/ghroast/pkg/gemini"
	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/insight"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

// Platform is a roastable profile platform.
type Platform string

// Supported platforms.
const (
	GitHub    Platform = "github"
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{GitHub, LinkedIn, Instagram}

// Mode records how the prompt was built.
type Mode string

// Roast modes.
const (
	ModeEnhanced Mode = "enhanced" // authenticated profile data
	ModeBasic    Mode = "basic"    // public REST profile data
	ModeFallback Mode = "fallback" // profile fetch failed; URL-only prompt
	ModeStandard Mode = "standard" // non-GitHub platforms
)

var (
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrEmptyInput        = errors.New("empty profile input")
	ErrUnrecognizedInput = errors.New("could not extract a GitHub username from input")
)

const basePrompt = "Deliver a new, unique, and savage roast. Do not repeat previous roasts. " +
	"Be witty, brutal, and creative. 2-3 sentences max."

// ParsePlatform maps a case-insensitive name to a Platform.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case GitHub, LinkedIn, Instagram:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}

// ProfileFetcher fetches GitHub profiles.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, login string) (*github.Profile, error)
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

// Result is one finished roast.
type Result struct {
	Profile   *github.Profile `json:"profile,omitempty"`
	Platform  Platform        `json:"platform"`
	Mode      Mode            `json:"mode"`
	Text      string          `json:"roast"`
	SessionID string          `json:"session_id,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// Service produces roasts. It is safe for concurrent use.
type Service struct {
	fetcher   ProfileFetcher
	generator Generator
	store     session.Store
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for prompts and session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. store may be nil, in which case nothing is saved.
func NewService(fetcher ProfileFetcher, generator Generator, store session.Store, opts ...Option) *Service {
	s := &Service{
		fetcher:   fetcher,
		generator: generator,
		store:     store,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Roast roasts the profile identified by input on platform. Generation
// failures are not errors: the result carries a fallback text and the
// failure kind instead. Errors are returned for unusable input and for
// cancellation.
func (s *Service) Roast(ctx context.Context, platform Platform, input string) (*Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	res := &Result{Platform: platform}
	var prompt string
	switch platform {
	case GitHub:
		login, err := github.UsernameFromInput(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnrecognizedInput, err)
		}
		prompt, err = s.githubPrompt(ctx, login, input, res)
		if err != nil {
			return nil, err
		}
	case LinkedIn:
		res.Mode = ModeStandard
		prompt = fmt.Sprintf("You are roasting a LinkedIn profile. Based on this URL: %s, roast their buzzword-heavy job titles, "+
			"corporate jargon, cringe posts, or fake professional persona. Be savage about their career choices. %s", input, basePrompt)
	case Instagram:
		res.Mode = ModeStandard
		prompt = fmt.Sprintf("You are roasting an Instagram profile. Based on this URL: %s, roast their cliche poses, basic captions, "+
			"questionable filter choices, or try-hard aesthetic. Be brutal about their social media presence. %s", input, basePrompt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	text, err := s.generator.Generate(ctx, gemini.Request{
		Prompt: prompt,
		Enrich: res.Profile == nil,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("roasting %s profile: %w", platform, ctxErr)
		}
		s.logger.Warn("generation failed, using fallback roast", "platform", platform, "error", err)
		text = FallbackMessage(err, prompt)
		res.ErrorKind = ErrorKind(err)
	}
	res.Text = text

	s.save(ctx, input, res)
	return res, nil
}

// githubPrompt fetches the profile for login and builds the prompt, filling
// in res.Mode and res.Profile. Only cancellation is returned as an error.
func (s *Service) githubPrompt(ctx context.Context, login, input string, res *Result) (string, error) {
	p, err := s.fetcher.FetchProfile(ctx, login)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("fetching %s: %w", login, ctxErr)
		}
		s.logger.Warn("profile fetch failed, using basic roasting", "username", login, "error", err)
		res.Mode = ModeFallback
		profileURL := input
		if !strings.Contains(input, "github.com") {
			profileURL = ""
		}
		return insight.BasicPrompt(login, profileURL), nil
	}

	res.Profile = p
	res.Mode = ModeBasic
	if p.Enhanced() {
		res.Mode = ModeEnhanced
	}
	return insight.NarrativePrompt(p, s.now()), nil
}

// save records res; failures are logged only.
func (s *Service) save(ctx context.Context, input string, res *Result) {
	if s.store == nil {
		return
	}
	data := map[string]any{
		"platform":    string(res.Platform),
		"profile_url": input,
		"roast_mode":  string(res.Mode),
	}
	if p := res.Profile; p != nil {
		data["enhanced_data"] = map[string]any{
			"username":      p.Username,
			"followers":     p.Followers,
			"repos":         p.PublicRepos,
			"contributions": p.TotalContributions.String(),
		}
	}
	if res.ErrorKind != "" {
		data["error"] = res.ErrorKind
	}

	id, err := s.store.Save(ctx, session.Record{
		CreatedAt: s.now(),
		Input:     data,
		Platform:  string(res.Platform),
		Result:    res.Text,
	})
	if err != nil {
		s.logger.Error("failed to save roast session", "platform", res.Platform, "error", err)
		return
	}
	res.SessionID = id
}

// RoastAll roasts every platform in inputs concurrently. A failing platform
// does not stop the others; its error is joined into the returned error and
// it is absent from the result map.
func (s *Service) RoastAll(ctx context.Context, inputs map[Platform]string) (map[Platform]*Result, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[Platform]*Result, len(inputs))
		errs    []error
	)
	for platform, input := range inputs {
		g.Go(func() error {
			res, err := s.Roast(ctx, platform, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", platform, err))
				return nil
			}
			results[platform] = res
			return nil
		})
	}
	_ = g.Wait() // goroutines report through errs
	return results, errors.Join(errs...)
}
