package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeGitHub struct {
	mu      sync.Mutex
	calls   map[string]int
	auth    map[string]string
	handler map[string]http.HandlerFunc
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		calls:   map[string]int{},
		auth:    map[string]string{},
		handler: map[string]http.HandlerFunc{},
	}
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.auth[r.URL.Path] = r.Header.Get("Authorization")
	h, ok := f.handler[r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeGitHub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeGitHub) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGitHub) withBasicUser(login string) {
	f.handler["/users/"+login] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"login":        login,
			"name":         "",
			"bio":          "kernel hacker",
			"html_url":     "https://github.com/" + login,
			"followers":    200000,
			"following":    0,
			"public_repos": 7,
		})
	}
	f.handler["/users/"+login+"/repos"] = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") != "updated" || r.URL.Query().Get("per_page") != "10" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		writeJSON(w, []map[string]any{
			{"name": "linux", "stargazers_count": 180000, "language": "C",
				"html_url": "https://github.com/" + login + "/linux", "updated_at": "2025-05-30T00:00:00Z"},
			{"name": "subsurface", "stargazers_count": 2500, "description": "dive log",
				"html_url": "https://github.com/" + login + "/subsurface", "updated_at": "2025-04-01T00:00:00Z"},
		})
	}
}

func enhancedUser() map[string]any {
	recent := testNow.AddDate(0, -2, 0).Format(time.RFC3339)
	old := testNow.AddDate(-2, 0, 0).Format(time.RFC3339)
	prs := make([]map[string]any, 0, 120)
	for range 120 {
		prs = append(prs, map[string]any{"createdAt": recent})
	}
	return map[string]any{
		"name":      "Mona",
		"bio":       "",
		"location":  "",
		"avatarUrl": "https://avatars.example/mona",
		"url":       "",
		"followers": map[string]any{"totalCount": 3},
		"following": map[string]any{"totalCount": 50},
		"repository": map[string]any{"object": map[string]any{
			"text": "# Hi\n\n<p><b>Welcome</b></p>",
		}},
		"repositories": map[string]any{
			"totalCount": 2,
			"nodes": []map[string]any{
				{"name": "dotfiles", "description": nil, "stargazerCount": 0,
					"primaryLanguage": map[string]any{"name": "Shell"}, "url": "https://github.com/mona/dotfiles",
					"updatedAt": recent},
				{"name": "empty", "description": "nothing", "stargazerCount": 1,
					"primaryLanguage": nil, "url": "https://github.com/mona/empty", "updatedAt": old},
			},
		},
		"contributionsCollection": map[string]any{
			"contributionCalendar": map[string]any{"totalContributions": 42},
		},
		"pullRequests": map[string]any{"totalCount": 120, "nodes": prs},
		"issues": map[string]any{"totalCount": 3, "nodes": []map[string]any{
			{"createdAt": recent}, {"createdAt": recent}, {"createdAt": old},
		}},
		"repositoriesContributedTo": map[string]any{"totalCount": 4},
	}
}

func newTestFetcher(t *testing.T, fake *fakeGitHub, token string) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewFetcher(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithToken(token),
		WithEndpoints(srv.URL, srv.URL+"/graphql"),
		WithClock(func() time.Time { return testNow }),
		WithRetryDelay(time.Millisecond),
	)
}

func TestFetchProfileInvalidUsername(t *testing.T) {
	fake := newFakeGitHub()
	f := newTestFetcher(t, fake, "token")

	for _, login := range []string{"", "-abc", "abc-", "a--b", "a_b", "has space", strings.Repeat("a", 40)} {
		t.Run(login, func(t *testing.T) {
			_, err := f.FetchProfile(context.Background(), login)
			if !errors.Is(err, ErrInvalidUsername) {
				t.Fatalf("FetchProfile(%q) error = %v, want ErrInvalidUsername", login, err)
			}
		})
	}
	if fake.total() != 0 {
		t.Errorf("made %d network calls, want 0", fake.total())
	}
}

func TestFetchProfileWithoutTokenUsesBasic(t *testing.T) {
	fake := newFakeGitHub()
	fake.withBasicUser("torvalds")
	f := newTestFetcher(t, fake, "")

	p, err := f.FetchProfile(context.Background(), "torvalds")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if fake.count("/graphql") != 0 {
		t.Errorf("GraphQL called %d times without a token", fake.count("/graphql"))
	}
	if p.Tier != TierBasic {
		t.Errorf("Tier = %q, want basic", p.Tier)
	}
	if p.Name != "torvalds" {
		t.Errorf("Name = %q, want login fallback", p.Name)
	}
	if len(p.Repositories) != 2 || p.Repositories[0].Name != "linux" || p.Repositories[0].Language != "C" {
		t.Errorf("Repositories = %+v", p.Repositories)
	}
	for name, c := range map[string]Count{
		"contributions": p.TotalContributions, "contributed_to": p.ReposContributedTo,
		"prs": p.MergedPullRequests, "issues": p.ClosedIssues,
	} {
		if c.Known || c.String() != "Unknown" {
			t.Errorf("%s = %+v, want unknown", name, c)
		}
	}
	if fake.auth["/users/torvalds"] != "" {
		t.Errorf("basic path sent Authorization header")
	}
}

func TestFetchProfileBasicNotFound(t *testing.T) {
	fake := newFakeGitHub()
	f := newTestFetcher(t, fake, "")

	_, err := f.FetchProfile(context.Background(), "ghost-user")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestFetchProfileBasicToleratesRepoFailure(t *testing.T) {
	fake := newFakeGitHub()
	fake.withBasicUser("torvalds")
	fake.handler["/users/torvalds/repos"] = func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	f := newTestFetcher(t, fake, "")

	p, err := f.FetchProfile(context.Background(), "torvalds")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if len(p.Repositories) != 0 {
		t.Errorf("Repositories = %v, want empty", p.Repositories)
	}
}

func TestFetchProfileEnhanced(t *testing.T) {
	fake := newFakeGitHub()
	var gotVars map[string]any
	fake.handler["/graphql"] = func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotVars = body.Variables
		writeJSON(w, map[string]any{"data": map[string]any{"user": enhancedUser()}})
	}
	fake.handler["/users/mona/social_accounts"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"provider": "twitter", "url": "https://twitter.com/mona"},
			{"provider": "twitter", "url": "https://twitter.com/mona"},
			{"provider": "linkedin", "url": "https://www.linkedin.com/in/mona"},
		})
	}
	f := newTestFetcher(t, fake, "s3cret")

	p, err := f.FetchProfile(context.Background(), "mona")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Tier != TierEnhanced {
		t.Fatalf("Tier = %q, want enhanced", p.Tier)
	}
	if gotVars["login"] != "mona" {
		t.Errorf("login variable = %v", gotVars["login"])
	}
	if from, _ := gotVars["from"].(string); !strings.HasPrefix(from, "2024-06-01") {
		t.Errorf("from variable = %v", gotVars["from"])
	}
	if fake.auth["/graphql"] != "Bearer s3cret" {
		t.Errorf("GraphQL Authorization = %q", fake.auth["/graphql"])
	}
	if p.Name != "Mona" || p.ProfileURL != "https://github.com/mona" {
		t.Errorf("identity = %q %q", p.Name, p.ProfileURL)
	}
	if p.PublicRepos != 2 || p.Followers != 3 || p.Following != 50 {
		t.Errorf("metrics = %d %d %d", p.PublicRepos, p.Followers, p.Following)
	}
	if p.TotalContributions.String() != "42" || p.ReposContributedTo.String() != "4" {
		t.Errorf("activity = %s %s", p.TotalContributions, p.ReposContributedTo)
	}
	if p.MergedPullRequests.String() != "100+" {
		t.Errorf("MergedPullRequests = %s, want 100+", p.MergedPullRequests)
	}
	if p.ClosedIssues.String() != "2" {
		t.Errorf("ClosedIssues = %s, want 2", p.ClosedIssues)
	}
	if len(p.Repositories) != 2 || p.Repositories[0].Language != "Shell" || p.Repositories[1].Language != "" {
		t.Errorf("Repositories = %+v", p.Repositories)
	}
	if !strings.Contains(p.Readme, "**Welcome**") {
		t.Errorf("Readme not normalized: %q", p.Readme)
	}
	if len(p.SocialLinks) != 2 {
		t.Errorf("SocialLinks = %v, want 2 deduped", p.SocialLinks)
	}
	if fake.count("/users/mona") != 0 {
		t.Errorf("basic path called on enhanced success")
	}
}

func TestFetchProfileSocialFallsBackToReadme(t *testing.T) {
	fake := newFakeGitHub()
	fake.handler["/graphql"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"user": enhancedUser()}})
	}
	fake.handler["/repos/mona/mona/readme"] = func(w http.ResponseWriter, _ *http.Request) {
		content := base64.StdEncoding.EncodeToString([]byte("ping me https://x.com/mona_dev"))
		writeJSON(w, map[string]any{"type": "file", "encoding": "base64", "content": content})
	}
	f := newTestFetcher(t, fake, "s3cret")

	p, err := f.FetchProfile(context.Background(), "mona")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if len(p.SocialLinks) != 1 || p.SocialLinks[0].URL != "https://x.com/mona_dev" {
		t.Errorf("SocialLinks = %v", p.SocialLinks)
	}
	if fake.auth["/repos/mona/mona/readme"] != "Bearer s3cret" {
		t.Errorf("README fetch Authorization = %q", fake.auth["/repos/mona/mona/readme"])
	}
}

func TestFetchProfileEnhancedFallsBack(t *testing.T) {
	tests := []struct {
		name         string
		graphql      http.HandlerFunc
		wantAttempts int
	}{
		{
			name: "http error",
			graphql: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			},
			wantAttempts: 1,
		},
		{
			name: "query error",
			graphql: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"errors": []map[string]any{{"message": "Field 'x' doesn't exist"}}})
			},
			wantAttempts: 1,
		},
		{
			name: "null user",
			graphql: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"data": map[string]any{"user": nil}})
			},
			wantAttempts: 1,
		},
		{
			name: "persistent bad gateway",
			graphql: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			wantAttempts: 3,
		},
		{
			name: "something went wrong",
			graphql: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"errors": []map[string]any{{"message": "Something went wrong while executing your query."}}})
			},
			wantAttempts: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGitHub()
			fake.withBasicUser("torvalds")
			fake.handler["/graphql"] = tt.graphql
			f := newTestFetcher(t, fake, "token")

			p, err := f.FetchProfile(context.Background(), "torvalds")
			if err != nil {
				t.Fatalf("FetchProfile() error = %v", err)
			}
			if p.Tier != TierBasic {
				t.Errorf("Tier = %q, want basic", p.Tier)
			}
			if got := fake.count("/graphql"); got != tt.wantAttempts {
				t.Errorf("GraphQL attempts = %d, want %d", got, tt.wantAttempts)
			}
			if p.MergedPullRequests.Known {
				t.Errorf("basic profile carries enhanced metric %+v", p.MergedPullRequests)
			}
		})
	}
}

func TestFetchProfileTransientRecovers(t *testing.T) {
	fake := newFakeGitHub()
	attempts := 0
	fake.handler["/graphql"] = func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"user": enhancedUser()}})
	}
	f := newTestFetcher(t, fake, "token")

	p, err := f.FetchProfile(context.Background(), "mona")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if p.Tier != TierEnhanced {
		t.Errorf("Tier = %q, want enhanced", p.Tier)
	}
	if fake.count("/graphql") != 2 {
		t.Errorf("GraphQL attempts = %d, want 2", fake.count("/graphql"))
	}
}

func TestFetchProfileCanceled(t *testing.T) {
	fake := newFakeGitHub()
	fake.withBasicUser("torvalds")
	f := newTestFetcher(t, fake, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchProfile(ctx, "torvalds")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestUsernameFromInput(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"torvalds", "torvalds", false},
		{"  octo-cat  ", "octo-cat", false},
		{"@octocat", "octocat", false},
		{"https://github.com/torvalds", "torvalds", false},
		{"github.com/torvalds/", "torvalds", false},
		{"https://github.com/torvalds/linux", "torvalds", false},
		{"https://github.com/torvalds?tab=repositories", "torvalds", false},
		{"https://gitlab.com/someone/x/y", "", true},
		{"not a user!", "", true},
		{"bad--name", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := UsernameFromInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UsernameFromInput(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("UsernameFromInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		c        Count
		str      string
		jsonForm string
	}{
		{Count{}, "Unknown", `"Unknown"`},
		{KnownCount(0), "0", `0`},
		{CappedCount(99, 100), "99", `99`},
		{CappedCount(150, 100), "100+", `"100+"`},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.c.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			b, err := json.Marshal(tt.c)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(b) != tt.jsonForm {
				t.Errorf("Marshal() = %s, want %s", b, tt.jsonForm)
			}
		})
	}
}

func ExampleCount_String() {
	fmt.Println(CappedCount(250, 100), KnownCount(7), Count{})
	// Output: 100+ 7 Unknown
}
