package social

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
	htmlTag        = regexp.MustCompile(`(?i)^\s*<(/?[a-z][a-z0-9]*)[\s>/]`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// NormalizeReadme converts the raw HTML blocks that profile READMEs often
// embed (centered banners, badge rows, tables) into markdown. Plain markdown
// blocks pass through unchanged. Blocks that fail to convert are kept as-is.
func NormalizeReadme(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = htmlComment.ReplaceAllString(raw, "")

	blocks := blockSeparator.Split(raw, -1)
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		if !htmlTag.MatchString(trimmed) {
			out = append(out, strings.TrimRight(block, " \t\n"))
			continue
		}
		converted, err := md.ConvertString(trimmed)
		if err != nil {
			out = append(out, trimmed)
			continue
		}
		if converted = strings.TrimSpace(converted); converted != "" {
			out = append(out, converted)
		}
	}
	return strings.Join(out, "\n\n")
}
