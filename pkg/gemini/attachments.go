package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"google.golang.org/genai"
)

const (
	maxAttachmentBytes = 20 << 20
	defaultMediaType   = "image/jpeg"
)

// attachmentParts fetches every attachment and returns one inline-data part
// per successful fetch. Failures are logged and skipped.
func (c *Client) attachmentParts(ctx context.Context, urls []string) []*genai.Part {
	parts := make([]*genai.Part, 0, len(urls))
	for _, u := range urls {
		part, err := c.fetchAttachment(ctx, u)
		if err != nil {
			c.logger.Warn("skipping attachment", "url", u, "error", err)
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

func (c *Client) fetchAttachment(ctx context.Context, rawURL string) (*genai.Part, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing attachment url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported attachment scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching attachment: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	if len(data) > maxAttachmentBytes {
		return nil, errors.New("attachment exceeds size limit")
	}
	if len(data) == 0 {
		return nil, errors.New("attachment is empty")
	}

	mediaType := attachmentMediaType(resp.Header.Get("Content-Type"), data)
	c.logger.Debug("fetched attachment", "url", rawURL, "media_type", mediaType, "bytes", len(data))
	return genai.NewPartFromBytes(data, mediaType), nil
}

func attachmentMediaType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if sniffed := http.DetectContentType(data); sniffed != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
			return mt
		}
	}
	return defaultMediaType
}
