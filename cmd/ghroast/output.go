package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
)

var (
	headerColor  = color.New(color.Bold)
	labelColor   = color.New(color.FgHiBlack)
	insightColor = color.New(color.FgRed)
	roastColor   = color.New(color.FgYellow, color.Bold)
)

const maxListedRepos = 5

func printProfile(w io.Writer, p *github.Profile, insights []string) {
	headerColor.Fprintf(w, "\n👤 GitHub User: %s", p.Username)
	if p.Name != "" && p.Name != p.Username {
		fmt.Fprintf(w, " (%s)", p.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", 50))

	field := func(label, value string) {
		if value == "" {
			return
		}
		labelColor.Fprintf(w, "%-16s", label)
		fmt.Fprintln(w, value)
	}
	field("📝 Bio:", p.Bio)
	field("📍 Location:", p.Location)
	field("🔗 Profile:", p.ProfileURL)
	field("👥 Followers:", fmt.Sprintf("%d (following %d)", p.Followers, p.Following))
	field("📦 Public repos:", fmt.Sprintf("%d", p.PublicRepos))
	if p.Enhanced() {
		field("🔥 Contributions:", p.TotalContributions.String())
		field("🔀 PRs merged:", p.MergedPullRequests.String())
		field("🐛 Issues closed:", p.ClosedIssues.String())
		field("🤝 Contributed to:", p.ReposContributedTo.String()+" repos")
	}
	field("🏷️  Data:", string(p.Tier))

	for _, l := range p.SocialLinks {
		field("🌐 "+l.Provider+":", l.URL)
	}

	if len(p.Repositories) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Recent repositories")
		for _, r := range p.Repositories[:min(len(p.Repositories), maxListedRepos)] {
			language := r.Language
			if language == "" {
				language = "no language"
			}
			fmt.Fprintf(w, "  • %s ★%d (%s)\n", r.Name, r.Stars, language)
		}
	}

	if len(insights) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "Insights")
		for _, s := range insights {
			insightColor.Fprintf(w, "  • %s\n", s)
		}
	}
}

func printRoast(w io.Writer, res *roast.Result, verbose bool) {
	fmt.Fprintln(w)
	roastColor.Fprintln(w, "🔥 "+res.Text)
	if !verbose {
		return
	}
	fmt.Fprintln(w)
	labelColor.Fprintf(w, "platform=%s mode=%s", res.Platform, res.Mode)
	if res.ErrorKind != "" {
		labelColor.Fprintf(w, " error=%s", res.ErrorKind)
	}
	if res.SessionID != "" {
		labelColor.Fprintf(w, " session=%s", res.SessionID)
	}
	fmt.Fprintln(w)
}
