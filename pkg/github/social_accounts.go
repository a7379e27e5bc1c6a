package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v57/github"

	"github.com/codeGROOVE-dev/ghroast/pkg/social"
)

// socialAccounts looks up a user's linked accounts with the authenticated
// REST client, falling back to scanning their profile README.
type socialAccounts struct {
	client *gh.Client
	logger *slog.Logger
}

// Fetch never fails; any error yields an empty list.
func (s *socialAccounts) Fetch(ctx context.Context, login string) []SocialLink {
	links, err := s.fromAPI(ctx, login)
	if err == nil {
		return social.Dedupe(links)
	}
	s.logger.Debug("social accounts API failed, scanning README", "username", login, "error", err)

	links, err = s.fromReadme(ctx, login)
	if err != nil {
		s.logger.Debug("README social scan failed", "username", login, "error", err)
		return []SocialLink{}
	}
	if deduped := social.Dedupe(links); deduped != nil {
		return deduped
	}
	return []SocialLink{}
}

func (s *socialAccounts) fromAPI(ctx context.Context, login string) ([]SocialLink, error) {
	// go-github has no wrapper for this endpoint.
	req, err := s.client.NewRequest(http.MethodGet, fmt.Sprintf("users/%s/social_accounts", login), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	var accounts []struct {
		Provider string `json:"provider"`
		URL      string `json:"url"`
	}
	if _, err := s.client.Do(ctx, req, &accounts); err != nil {
		return nil, fmt.Errorf("listing social accounts: %w", err)
	}

	links := make([]SocialLink, 0, len(accounts))
	for _, a := range accounts {
		links = append(links, SocialLink{Provider: a.Provider, URL: a.URL})
	}
	return links, nil
}

func (s *socialAccounts) fromReadme(ctx context.Context, login string) ([]SocialLink, error) {
	readme, _, err := s.client.Repositories.GetReadme(ctx, login, login, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching profile README: %w", err)
	}
	content, err := readme.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding profile README: %w", err)
	}
	return social.FromReadme(content), nil
}
