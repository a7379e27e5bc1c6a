package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
)

const topRepositories = 5

// NarrativePrompt renders the roast prompt for a fetched profile.
func NarrativePrompt(p *github.Profile, now time.Time) string {
	var sb strings.Builder

	bio := p.Bio
	if bio == "" {
		bio = "No bio (can't even describe themselves)"
	}
	location := p.Location
	if location == "" {
		location = "Unknown (hiding in shame)"
	}

	sb.WriteString("You are roasting a GitHub profile. Here's the devastating data about this developer:\n\n")
	fmt.Fprintf(&sb, "Username: %s\n", p.Username)
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Bio: \"%s\"\n", bio)
	fmt.Fprintf(&sb, "Location: %s\n", location)
	fmt.Fprintf(&sb, "Followers: %d | Following: %d\n", p.Followers, p.Following)
	fmt.Fprintf(&sb, "Public Repos: %d\n", p.PublicRepos)
	fmt.Fprintf(&sb, "Total Contributions (last year): %s\n", p.TotalContributions)
	fmt.Fprintf(&sb, "Pull Requests Merged: %s\n", p.MergedPullRequests)
	fmt.Fprintf(&sb, "Issues Closed: %s\n\n", p.ClosedIssues)

	if insights := Derive(p, now); len(insights) > 0 {
		fmt.Fprintf(&sb, "DEVASTATING INSIGHTS: %s\n\n", strings.Join(insights, ", "))
	}

	if len(p.Repositories) > 0 {
		sb.WriteString("TOP REPOSITORIES ANALYSIS:\n")
		for _, r := range p.Repositories[:min(len(p.Repositories), topRepositories)] {
			language := r.Language
			if language == "" {
				language = "No language"
			}
			description := "(no description)"
			if r.Description != "" {
				description = fmt.Sprintf("- \"%s\"", r.Description)
			}
			fmt.Fprintf(&sb, "- \"%s\": %d stars, %s %s\n", r.Name, r.Stars, language, description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Based on this pathetic GitHub profile data, deliver a new, unique, and absolutely savage roast. " +
		"Use the specific metrics, repository names, bio content, and social patterns to create a personalized destruction. " +
		"Be brutal about their coding skills, project quality, social presence, and developer credibility. " +
		"Make it cutting, specific, and devastatingly accurate. 2-3 sentences maximum.")
	return sb.String()
}

// BasicPrompt is used when no profile could be fetched at all.
func BasicPrompt(username, profileURL string) string {
	if profileURL == "" {
		profileURL = "https://github.com/" + username
	}
	return fmt.Sprintf("You are roasting a GitHub profile. Based on this URL: %s for user %s, "+
		"roast their coding skills, commit messages, repository names, or lack thereof. "+
		"Focus on typical GitHub fails like empty repos, terrible commit messages, copying tutorials, "+
		"or having no meaningful projects. Be savage about their developer credibility and coding abilities. "+
		"Deliver a new, unique, and brutal roast. Do not repeat previous roasts. Be witty, cutting, and creative. "+
		"2-3 sentences maximum.", profileURL, username)
}
