package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gh "github.com/google/go-github/v57/github"
)

const basicRepoLimit = 10

// restSource builds BASIC profiles from the public REST API without a token.
type restSource struct {
	client *gh.Client
	logger *slog.Logger
	now    func() time.Time
}

func (*restSource) Name() string { return string(TierBasic) }

func (s *restSource) Fetch(ctx context.Context, login string) (*Profile, error) {
	user, _, err := s.client.Users.Get(ctx, login)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetching user %s: %w", login, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, login, err)
	}

	p := &Profile{
		Username:     login,
		Name:         displayName(login, user.GetName()),
		Bio:          user.GetBio(),
		Location:     user.GetLocation(),
		AvatarURL:    user.GetAvatarURL(),
		ProfileURL:   profileURL(login, user.GetHTMLURL()),
		Followers:    user.GetFollowers(),
		Following:    user.GetFollowing(),
		PublicRepos:  user.GetPublicRepos(),
		Repositories: []Repository{},
		SocialLinks:  []SocialLink{},
		Tier:         TierBasic,
		FetchedAt:    s.now(),
	}

	repos, _, err := s.client.Repositories.ListByUser(ctx, login, &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: basicRepoLimit},
	})
	if err != nil {
		s.logger.Warn("failed to fetch repositories", "username", login, "error", err)
		return p, nil
	}
	for _, r := range repos {
		p.Repositories = append(p.Repositories, Repository{
			Name:        r.GetName(),
			Description: r.GetDescription(),
			Language:    r.GetLanguage(),
			URL:         r.GetHTMLURL(),
			Stars:       r.GetStargazersCount(),
			UpdatedAt:   r.GetUpdatedAt().Time,
		})
	}

	s.logger.Debug("fetched basic profile", "username", login, "repos", len(p.Repositories))
	return p, nil
}
