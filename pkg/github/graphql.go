package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/ghroast/pkg/social"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// Reasons the enhanced path gives up, used for fall-through logging.
var (
	errTransport = errors.New("transport")
	errQuery     = errors.New("query_error")
	errNoUser    = errors.New("no_user")
	errTransient = errors.New("transient GitHub error")
)

// profileQuery fetches everything an enhanced profile needs in one round trip.
const profileQuery = `
query($login: String!, $from: DateTime!) {
	user(login: $login) {
		name
		bio
		location
		avatarUrl
		url
		followers {
			totalCount
		}
		following {
			totalCount
		}
		repository(name: $login) {
			object(expression: "HEAD:README.md") {
				... on Blob {
					text
				}
			}
		}
		repositories(first: 100, orderBy: {field: UPDATED_AT, direction: DESC}) {
			totalCount
			nodes {
				name
				description
				stargazerCount
				primaryLanguage {
					name
				}
				url
				updatedAt
			}
		}
		contributionsCollection(from: $from) {
			contributionCalendar {
				totalContributions
			}
		}
		pullRequests(first: 100, states: MERGED, orderBy: {field: UPDATED_AT, direction: DESC}) {
			totalCount
			nodes {
				createdAt
			}
		}
		issues(last: 100, states: CLOSED) {
			totalCount
			nodes {
				createdAt
			}
		}
		repositoriesContributedTo(first: 100, contributionTypes: [COMMIT, ISSUE, PULL_REQUEST, REPOSITORY]) {
			totalCount
		}
	}
}`

// graphQLResponse is the GraphQL envelope.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type createdNodes struct {
	Nodes []struct {
		CreatedAt time.Time `json:"createdAt"`
	} `json:"nodes"`
	TotalCount int `json:"totalCount"`
}

type profileQueryResponse struct {
	User *struct {
		Repository *struct {
			Object *struct {
				Text string `json:"text"`
			} `json:"object"`
		} `json:"repository"`
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		Location  string `json:"location"`
		AvatarURL string `json:"avatarUrl"`
		URL       string `json:"url"`
		Followers struct {
			TotalCount int `json:"totalCount"`
		} `json:"followers"`
		Following struct {
			TotalCount int `json:"totalCount"`
		} `json:"following"`
		Repositories struct {
			Nodes []struct {
				UpdatedAt       time.Time `json:"updatedAt"`
				PrimaryLanguage *struct {
					Name string `json:"name"`
				} `json:"primaryLanguage"`
				Name           string `json:"name"`
				Description    string `json:"description"`
				URL            string `json:"url"`
				StargazerCount int    `json:"stargazerCount"`
			} `json:"nodes"`
			TotalCount int `json:"totalCount"`
		} `json:"repositories"`
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions int `json:"totalContributions"`
			} `json:"contributionCalendar"`
		} `json:"contributionsCollection"`
		PullRequests              createdNodes `json:"pullRequests"`
		Issues                    createdNodes `json:"issues"`
		RepositoriesContributedTo struct {
			TotalCount int `json:"totalCount"`
		} `json:"repositoriesContributedTo"`
	} `json:"user"`
}

// graphQLSource builds ENHANCED profiles from the authenticated GraphQL API.
type graphQLSource struct {
	httpClient *http.Client // carries the token
	logger     *slog.Logger
	links      *socialAccounts
	now        func() time.Time
	endpoint   string
	retryDelay time.Duration
}

func (*graphQLSource) Name() string { return string(TierEnhanced) }

func (s *graphQLSource) Fetch(ctx context.Context, login string) (*Profile, error) {
	now := s.now()
	yearAgo := now.AddDate(-1, 0, 0)

	resp, err := s.executeQuery(ctx, profileQuery, map[string]any{
		"login": login,
		"from":  yearAgo.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	var result profileQueryResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling user profile: %w", errQuery, err)
	}
	u := result.User
	if u == nil {
		return nil, fmt.Errorf("%w: user %q resolved to no data", errNoUser, login)
	}

	p := &Profile{
		Username:           login,
		Name:               displayName(login, u.Name),
		Bio:                u.Bio,
		Location:           u.Location,
		AvatarURL:          u.AvatarURL,
		ProfileURL:         profileURL(login, u.URL),
		Followers:          u.Followers.TotalCount,
		Following:          u.Following.TotalCount,
		PublicRepos:        u.Repositories.TotalCount,
		TotalContributions: KnownCount(u.ContributionsCollection.ContributionCalendar.TotalContributions),
		ReposContributedTo: KnownCount(u.RepositoriesContributedTo.TotalCount),
		MergedPullRequests: CappedCount(countSince(u.PullRequests, yearAgo), activityCap),
		ClosedIssues:       CappedCount(countSince(u.Issues, yearAgo), activityCap),
		Repositories:       make([]Repository, 0, len(u.Repositories.Nodes)),
		Tier:               TierEnhanced,
		FetchedAt:          now,
	}
	for _, n := range u.Repositories.Nodes {
		r := Repository{
			Name:        n.Name,
			Description: n.Description,
			URL:         n.URL,
			Stars:       n.StargazerCount,
			UpdatedAt:   n.UpdatedAt,
		}
		if n.PrimaryLanguage != nil {
			r.Language = n.PrimaryLanguage.Name
		}
		p.Repositories = append(p.Repositories, r)
	}
	if u.Repository != nil && u.Repository.Object != nil {
		p.Readme = social.NormalizeReadme(u.Repository.Object.Text)
	}
	p.SocialLinks = s.links.Fetch(ctx, login)

	s.logger.Debug("fetched enhanced profile", "username", login,
		"repos", len(p.Repositories), "social_links", len(p.SocialLinks))
	return p, nil
}

func countSince(c createdNodes, since time.Time) int {
	n := 0
	for _, node := range c.Nodes {
		if node.CreatedAt.After(since) {
			n++
		}
	}
	return n
}

// executeQuery executes a GraphQL query, retrying transient GitHub failures.
func (s *graphQLSource) executeQuery(ctx context.Context, query string, variables map[string]any) (*graphQLResponse, error) {
	var resp *graphQLResponse

	err := retry.Do(
		func() error {
			var err error
			resp, err = s.executeQueryOnce(ctx, query, variables)
			if err != nil && !errors.Is(err, errTransient) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("retrying GraphQL query", "attempt", n+1, "error", err.Error())
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errTransport, ctxErr)
		}
		return nil, err
	}
	return resp, nil
}

// executeQueryOnce executes a single GraphQL query attempt.
func (s *graphQLSource) executeQueryOnce(ctx context.Context, query string, variables map[string]any) (*graphQLResponse, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling query: %w", errQuery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", errTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", errTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debug("failed to close response body", "error", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		s.logger.Warn("GitHub server error on GraphQL endpoint", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %w: HTTP %d", errTransport, errTransient, resp.StatusCode)
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d", errTransport, resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", errTransport, err)
	}

	if len(gqlResp.Errors) > 0 {
		msg := gqlResp.Errors[0].Message
		if strings.Contains(msg, "Something went wrong") {
			return nil, fmt.Errorf("%w: %w: %s", errQuery, errTransient, msg)
		}
		return nil, fmt.Errorf("%w: %s", errQuery, msg)
	}

	return &gqlResp, nil
}
