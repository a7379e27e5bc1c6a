// Package insight derives roastable observations from a GitHub profile and
// renders them into a prompt.
package insight

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
)

const (
	staleAfter       = 180 * 24 * time.Hour
	minReadmeLength  = 100
	fewRepos         = 5
	fullStackMinimum = 10
)

// rule returns the phrases it matched; they become a single insight.
type rule func(p *github.Profile, now time.Time) []string

// rules run in this order, which is the order insights read in the prompt.
var rules = []rule{
	completeness,
	socialRatio,
	repositoryQuality,
	activityVolume,
	bioContent,
	selfPromotion,
}

// Derive evaluates every rule against p. Each rule contributes at most one
// insight. The result is deterministic for a given profile and time.
func Derive(p *github.Profile, now time.Time) []string {
	if p == nil {
		return nil
	}
	var insights []string
	for _, r := range rules {
		if phrases := r(p, now); len(phrases) > 0 {
			insights = append(insights, strings.Join(phrases, "; "))
		}
	}
	return insights
}

func completeness(p *github.Profile, _ time.Time) []string {
	var out []string
	if strings.TrimSpace(p.Bio) == "" {
		out = append(out, "has no bio (can't even describe themselves)")
	}
	if strings.TrimSpace(p.Location) == "" {
		out = append(out, "too ashamed to share their location")
	}
	if p.Name == "" || p.Name == p.Username {
		out = append(out, "couldn't even set a proper name")
	}
	return out
}

func socialRatio(p *github.Profile, _ time.Time) []string {
	var out []string
	if p.Following > 10*p.Followers {
		out = append(out, "follows way more people than follow them back (desperate for attention)")
	}
	if p.Followers < 10 {
		out = append(out, "has almost no followers (nobody cares about their code)")
	}
	if p.Following > 1000 {
		out = append(out, "follows everyone hoping for follow-backs (social media desperation)")
	}
	return out
}

func repositoryQuality(p *github.Profile, now time.Time) []string {
	var out []string
	repos := p.Repositories

	stars := 0
	languages := map[string]bool{}
	var language string
	recent := 0
	for _, r := range repos {
		stars += r.Stars
		if r.Language != "" {
			languages[r.Language] = true
			language = r.Language
		}
		if now.Sub(r.UpdatedAt) < staleAfter {
			recent++
		}
	}

	if float64(stars)/float64(max(len(repos), 1)) < 1 {
		out = append(out, "repositories have almost no stars (code nobody wants)")
	}
	if len(repos) < fewRepos {
		out = append(out, "barely has any repositories (not actually coding)")
	}
	if len(languages) == 1 {
		out = append(out, "only codes in "+language+" (one-trick pony)")
	}
	if recent == 0 {
		out = append(out, "hasn't updated any repositories in months (gave up coding)")
	}
	return out
}

// activityVolume needs enhanced data; unknown metrics never produce insights.
func activityVolume(p *github.Profile, _ time.Time) []string {
	if !p.Enhanced() {
		return nil
	}
	var out []string
	if c := p.TotalContributions; c.Known && c.Value < 100 {
		out = append(out, "barely contributes to anything (lazy developer)")
	}
	if c := p.ReposContributedTo; c.Known && c.Value < 5 {
		out = append(out, "doesn't contribute to other projects (antisocial coder)")
	}
	return out
}

func bioContent(p *github.Profile, _ time.Time) []string {
	bio := strings.ToLower(p.Bio)
	if bio == "" {
		return nil
	}
	var out []string
	if containsAny(bio, "full stack", "fullstack", "full-stack") && p.PublicRepos < fullStackMinimum {
		out = append(out, "claims to be 'full stack' but has no projects to prove it")
	}
	if containsAny(bio, "passionate", "love coding", "ninja", "rockstar") {
		out = append(out, "uses cliché buzzwords in bio (unoriginal personality)")
	}
	if containsAny(bio, "learning", "student") {
		out = append(out, "still learning basics (amateur hour)")
	}
	return out
}

func selfPromotion(p *github.Profile, _ time.Time) []string {
	var out []string
	switch readme := strings.TrimSpace(p.Readme); {
	case readme == "":
		out = append(out, "doesn't even have a profile README (can't market themselves)")
	case len(readme) < minReadmeLength:
		out = append(out, "profile README is pathetically short (no effort)")
	}
	if len(p.SocialLinks) == 0 {
		out = append(out, "has no social media links (antisocial or ashamed)")
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
