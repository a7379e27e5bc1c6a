package main

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// ghCLIToken asks the gh CLI for a token, returning "" if it is missing or logged out.
func ghCLIToken(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
