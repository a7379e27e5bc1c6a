package github

import (
	"fmt"
	"regexp"
	"strings"
)

const maxLoginLength = 39

// GitHub logins are alphanumeric with single inner hyphens.
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

var inputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com/([A-Za-z0-9_-]+)/?$`),
	regexp.MustCompile(`github\.com/([A-Za-z0-9_-]+)/[^/]*/?$`),
	regexp.MustCompile(`^@?([A-Za-z0-9_-]+)$`),
}

// ValidateUsername checks login against GitHub's login rules.
func ValidateUsername(login string) error {
	if login == "" || len(login) > maxLoginLength || !loginPattern.MatchString(login) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, login)
	}
	return nil
}

// UsernameFromInput extracts a login from a bare username or a github.com
// profile or repository URL.
func UsernameFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if i := strings.IndexAny(input, "?#"); i >= 0 {
		input = input[:i]
	}
	for _, re := range inputPatterns {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if ValidateUsername(m[1]) == nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: cannot find a username in %q", ErrInvalidUsername, input)
}
