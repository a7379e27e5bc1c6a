// Package social finds social profile links in profile READMEs.
package social

import (
	"regexp"
	"strings"
)

// Link is a social account URL attributed to a provider.
type Link struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

var (
	linkedinPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/in/[a-zA-Z0-9_-]+/?`)
	mediumPattern   = regexp.MustCompile(`(?i)https?://(?:www\.)?medium\.com/@?[a-zA-Z0-9_-]+/?`)
	mediumSubdomain = regexp.MustCompile(`(?i)https?://[a-zA-Z0-9_-]+\.medium\.com/?`)
	twitterPattern  = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter\.com|x\.com)/[a-zA-Z0-9_]+/?`)
)

// FromReadme returns at most one link per provider, in the order
// linkedin, medium, twitter.
func FromReadme(content string) []Link {
	var links []Link

	if m := linkedinPattern.FindString(content); m != "" {
		links = append(links, Link{Provider: "linkedin", URL: m})
	}

	m := mediumPattern.FindString(content)
	if m == "" {
		m = mediumSubdomain.FindString(content)
	}
	if m != "" {
		links = append(links, Link{Provider: "medium", URL: m})
	}

	if m := twitterPattern.FindString(content); m != "" {
		links = append(links, Link{Provider: "twitter", URL: m})
	}

	return links
}

// Dedupe drops repeated provider+URL pairs, keeping the first occurrence.
func Dedupe(links []Link) []Link {
	seen := make(map[string]bool, len(links))
	var unique []Link
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		key := strings.ToLower(l.Provider) + "|" + l.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, l)
	}
	return unique
}
