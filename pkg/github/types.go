package github

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/ghroast/pkg/social"
)

var (
	// ErrInvalidUsername is returned when a login does not match GitHub's rules.
	ErrInvalidUsername = errors.New("invalid GitHub username")
	// ErrNotFound is returned when even the public profile cannot be fetched.
	ErrNotFound = errors.New("GitHub user not found")
)

// Tier records how much of a profile could be fetched.
type Tier string

const (
	TierEnhanced Tier = "enhanced" // authenticated GraphQL data
	TierBasic    Tier = "basic"    // public REST data only
)

// activityCap is the node limit of the PR and issue connections.
const activityCap = 100

// Count is an activity metric that may be unknown or capped.
type Count struct {
	Value  int
	Known  bool
	Capped bool
}

// KnownCount returns an exact count.
func KnownCount(n int) Count {
	return Count{Value: n, Known: true}
}

// CappedCount returns n, marked as capped when it reached limit.
func CappedCount(n, limit int) Count {
	if n >= limit {
		return Count{Value: limit, Known: true, Capped: true}
	}
	return Count{Value: n, Known: true}
}

func (c Count) String() string {
	switch {
	case !c.Known:
		return "Unknown"
	case c.Capped:
		return strconv.Itoa(c.Value) + "+"
	default:
		return strconv.Itoa(c.Value)
	}
}

// MarshalJSON renders exact counts as numbers and everything else as text.
func (c Count) MarshalJSON() ([]byte, error) {
	if c.Known && !c.Capped {
		return json.Marshal(c.Value)
	}
	return json.Marshal(c.String())
}

// Repository is a repository summary.
type Repository struct {
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
}

// SocialLink is a linked social account.
type SocialLink = social.Link

// Profile is the aggregated view of a GitHub user.
type Profile struct {
	FetchedAt          time.Time    `json:"fetched_at"`
	Username           string       `json:"username"`
	Name               string       `json:"name"`
	Bio                string       `json:"bio,omitempty"`
	Location           string       `json:"location,omitempty"`
	AvatarURL          string       `json:"avatar_url,omitempty"`
	ProfileURL         string       `json:"profile_url"`
	Readme             string       `json:"readme,omitempty"`
	Tier               Tier         `json:"tier"`
	Repositories       []Repository `json:"repositories"`
	SocialLinks        []SocialLink `json:"social_links"`
	TotalContributions Count        `json:"total_contributions"`
	ReposContributedTo Count        `json:"repos_contributed_to"`
	MergedPullRequests Count        `json:"merged_pull_requests"`
	ClosedIssues       Count        `json:"closed_issues"`
	Followers          int          `json:"followers"`
	Following          int          `json:"following"`
	PublicRepos        int          `json:"public_repos"`
}

// Enhanced reports whether the profile came from the authenticated query.
func (p *Profile) Enhanced() bool {
	return p != nil && p.Tier == TierEnhanced
}

func profileURL(login, fromAPI string) string {
	if fromAPI != "" {
		return fromAPI
	}
	return "https://github.com/" + login
}

func displayName(login, name string) string {
	if name != "" {
		return name
	}
	return login
}
