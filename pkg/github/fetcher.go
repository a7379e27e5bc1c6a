// Package github aggregates a developer's public GitHub profile, preferring
// the authenticated GraphQL API and degrading to the public REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 100 * time.Millisecond
)

// Source produces a profile for an already-validated login.
type Source interface {
	Name() string
	Fetch(ctx context.Context, login string) (*Profile, error)
}

// Fetcher fetches GitHub profiles. It is safe for concurrent use.
type Fetcher struct {
	logger     *slog.Logger
	httpClient *http.Client
	now        func() time.Time
	token      string
	restURL    string
	graphQLURL string
	retryDelay time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		if hc != nil {
			f.httpClient = hc
		}
	}
}

// WithToken enables the enhanced GraphQL path.
func WithToken(token string) Option {
	return func(f *Fetcher) {
		f.token = strings.TrimSpace(token)
	}
}

// WithEndpoints points the fetcher at alternative REST and GraphQL endpoints.
func WithEndpoints(restURL, graphQLURL string) Option {
	return func(f *Fetcher) {
		if restURL != "" {
			f.restURL = restURL
		}
		if graphQLURL != "" {
			f.graphQLURL = graphQLURL
		}
	}
}

// WithClock sets the time source used for the trailing-year window.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithRetryDelay sets the first backoff step for transient GraphQL failures.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryDelay = d
		}
	}
}

// NewFetcher creates a new profile fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		graphQLURL: defaultGraphQLURL,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HasToken reports whether the enhanced path is available.
func (f *Fetcher) HasToken() bool {
	return f.token != ""
}

// FetchProfile validates login and returns its profile. Errors wrap
// ErrInvalidUsername or ErrNotFound, or the context error on cancellation.
func (f *Fetcher) FetchProfile(ctx context.Context, login string) (*Profile, error) {
	if err := ValidateUsername(login); err != nil {
		return nil, err
	}

	sources, err := f.strategy()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, src := range sources {
		p, err := src.Fetch(ctx, login)
		if err == nil {
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetching profile %s: %w", login, ctxErr)
		}
		lastErr = err
		if i < len(sources)-1 {
			f.logger.Warn("profile source failed, falling back",
				"username", login, "source", src.Name(), "reason", fallbackReason(err), "error", err)
		}
	}
	return nil, lastErr
}

// strategy orders the sources to try; the enhanced source needs a token.
func (f *Fetcher) strategy() ([]Source, error) {
	public, err := f.restClient(f.httpClient)
	if err != nil {
		return nil, err
	}
	basic := &restSource{client: public, logger: f.logger, now: f.now}
	if f.token == "" {
		return []Source{basic}, nil
	}

	authed := f.authClient()
	authedREST, err := f.restClient(authed)
	if err != nil {
		return nil, err
	}
	enhanced := &graphQLSource{
		httpClient: authed,
		logger:     f.logger,
		links:      &socialAccounts{client: authedREST, logger: f.logger},
		now:        f.now,
		endpoint:   f.graphQLURL,
		retryDelay: f.retryDelay,
	}
	return []Source{enhanced, basic}, nil
}

// authClient wraps the base client with a static token source so the token
// only ever travels in the Authorization header.
func (f *Fetcher) authClient() *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, f.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: f.token}))
	hc.Timeout = f.httpClient.Timeout
	return hc
}

func (f *Fetcher) restClient(hc *http.Client) (*gh.Client, error) {
	c := gh.NewClient(hc)
	if f.restURL == "" {
		return c, nil
	}
	base := f.restURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
	}
	c.BaseURL = u
	return c, nil
}

func fallbackReason(err error) string {
	for _, reason := range []error{errNoUser, errQuery, errTransport} {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return "unknown"
}
