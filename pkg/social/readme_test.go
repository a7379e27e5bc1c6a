package social

import (
	"reflect"
	"strings"
	"testing"
)

func TestFromReadme(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Link
	}{
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
		{
			name: "all providers",
			content: `Hi! Find me on https://twitter.com/octo_cat and
https://www.linkedin.com/in/octo-cat/ or read https://medium.com/@octocat`,
			want: []Link{
				{Provider: "linkedin", URL: "https://www.linkedin.com/in/octo-cat/"},
				{Provider: "medium", URL: "https://medium.com/@octocat"},
				{Provider: "twitter", URL: "https://twitter.com/octo_cat"},
			},
		},
		{
			name:    "first match wins",
			content: "https://x.com/first https://x.com/second",
			want:    []Link{{Provider: "twitter", URL: "https://x.com/first"}},
		},
		{
			name:    "medium subdomain",
			content: "blog: https://octocat.medium.com/",
			want:    []Link{{Provider: "medium", URL: "https://octocat.medium.com/"}},
		},
		{
			name:    "unrelated links",
			content: "https://github.com/octocat https://example.com",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromReadme(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FromReadme() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	in := []Link{
		{Provider: "twitter", URL: "https://x.com/a"},
		{Provider: "TWITTER", URL: "https://x.com/a"},
		{Provider: "linkedin", URL: "https://x.com/a"},
		{Provider: "medium", URL: ""},
	}
	want := []Link{
		{Provider: "twitter", URL: "https://x.com/a"},
		{Provider: "linkedin", URL: "https://x.com/a"},
	}
	if got := Dedupe(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe() = %v, want %v", got, want)
	}
}

func TestNormalizeReadme(t *testing.T) {
	raw := "# Hello\n\nI build *things*.\n\n<p align=\"center\"><b>Top languages</b></p>\n\n<!-- hidden -->"

	got := NormalizeReadme(raw)

	if !strings.HasPrefix(got, "# Hello\n\nI build *things*.") {
		t.Errorf("markdown blocks changed: %q", got)
	}
	if strings.Contains(got, "<p") || strings.Contains(got, "<b>") {
		t.Errorf("html not converted: %q", got)
	}
	if !strings.Contains(got, "**Top languages**") {
		t.Errorf("converted block missing: %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("comment not stripped: %q", got)
	}
}
