package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
	"github.com/codeGROOVE-dev/ghroast/pkg/social"
)

func init() {
	color.NoColor = true
}

func TestPrintProfile(t *testing.T) {
	p := &github.Profile{
		Username:           "octocat",
		Name:               "The Octocat",
		Bio:                "I love coding",
		ProfileURL:         "https://github.com/octocat",
		Tier:               github.TierEnhanced,
		Followers:          10,
		Following:          3,
		PublicRepos:        8,
		TotalContributions: github.KnownCount(42),
		MergedPullRequests: github.CappedCount(120, 100),
		SocialLinks:        []social.Link{{Provider: "linkedin", URL: "https://linkedin.com/in/octocat"}},
		Repositories: []github.Repository{
			{Name: "hello-world", Stars: 5, Language: "Go"},
			{Name: "spoon-knife"},
		},
	}

	var buf bytes.Buffer
	printProfile(&buf, p, []string{"Overly enthusiastic bio"})
	out := buf.String()

	for _, want := range []string{
		"GitHub User: octocat (The Octocat)",
		"I love coding",
		"10 (following 3)",
		"42",
		"100+",
		"https://linkedin.com/in/octocat",
		"hello-world ★5 (Go)",
		"spoon-knife ★0 (no language)",
		"Overly enthusiastic bio",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Location") {
		t.Errorf("empty location should be omitted:\n%s", out)
	}
}

func TestPrintProfileBasicHidesActivity(t *testing.T) {
	p := &github.Profile{Username: "octocat", Name: "octocat", Tier: github.TierBasic}

	var buf bytes.Buffer
	printProfile(&buf, p, nil)
	out := buf.String()

	if strings.Contains(out, "Contributions") {
		t.Errorf("basic profile should not show activity counts:\n%s", out)
	}
	if strings.Contains(out, "(octocat)") {
		t.Errorf("name equal to login should not be repeated:\n%s", out)
	}
	if strings.Contains(out, "Insights") {
		t.Errorf("no insights header expected:\n%s", out)
	}
}

func TestPrintRoast(t *testing.T) {
	res := &roast.Result{
		Platform:  roast.GitHub,
		Mode:      roast.ModeFallback,
		Text:      "Your commit history is a crime scene.",
		SessionID: "abc",
		ErrorKind: "rate_limited",
	}

	var quiet bytes.Buffer
	printRoast(&quiet, res, false)
	if !strings.Contains(quiet.String(), "Your commit history is a crime scene.") {
		t.Errorf("roast text missing: %q", quiet.String())
	}
	if strings.Contains(quiet.String(), "session=") {
		t.Errorf("details should only print when verbose: %q", quiet.String())
	}

	var verbose bytes.Buffer
	printRoast(&verbose, res, true)
	if got, want := verbose.String(), "platform=github mode=fallback error=rate_limited session=abc"; !strings.Contains(got, want) {
		t.Errorf("verbose output = %q, want it to contain %q", got, want)
	}
}
