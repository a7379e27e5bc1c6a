// Package gemini provides a client for Google's Gemini generative API that
// classifies failures and retries rate-limited calls.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash-lite"
	maxAttempts  = 4
	baseDelay    = time.Second
	callTimeout  = 60 * time.Second
)

// Request is one generation request.
type Request struct {
	Prompt      string
	Attachments []string // image URLs
	Enrich      bool     // ground the answer with Google Search
}

// GenerationConfig holds the fixed sampling parameters.
type GenerationConfig struct {
	Temperature     float32  `yaml:"temperature"`
	TopK            float32  `yaml:"top_k"`
	TopP            float32  `yaml:"top_p"`
	MaxOutputTokens int32    `yaml:"max_output_tokens"`
	StopSequences   []string `yaml:"stop_sequences"`
}

// DefaultGenerationConfig returns the sampling parameters used when none are configured.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.9,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// Config configures a Client.
type Config struct {
	APIKey      string
	TextModel   string
	VisionModel string
	BaseURL     string // empty uses the SDK default
	Generation  GenerationConfig
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client calls the Gemini API. It holds no per-call state and is safe for concurrent use.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	sleep      Sleeper
	cfg        Config
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls and attachment downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithBaseDelay sets the first backoff step used when the server gives no hint.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// NewClient creates a new Gemini client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.TextModel == "" {
		cfg.TextModel = defaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.TextModel
	}
	c := &Client{
		cfg:        cfg,
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: callTimeout},
		sleep:      sleepContext,
		baseDelay:  baseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends req to Gemini and returns the generated text.
// Errors are *Error values; match their kind with errors.Is.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	apiKey := strings.TrimSpace(c.cfg.APIKey)
	if apiKey == "" {
		return "", &Error{Kind: ErrUnconfigured}
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	model := c.cfg.TextModel
	if len(req.Attachments) > 0 {
		model = c.cfg.VisionModel
		parts = append(parts, c.attachmentParts(ctx, req.Attachments)...)
	}
	model = strings.TrimPrefix(model, "models/")
	contents := []*genai.Content{{Parts: parts}}

	hints := &hintTransport{base: c.transport()}
	client, err := c.createClient(ctx, apiKey, hints)
	if err != nil {
		return "", &Error{Kind: ErrServerError, Err: err, Message: "creating client"}
	}

	c.logger.Debug("calling gemini", "model", model, "parts", len(parts), "enrich", req.Enrich)
	resp, err := c.callWithRetry(ctx, client, hints, model, contents, c.generateConfig(req.Enrich))
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

func (c *Client) transport() http.RoundTripper {
	if c.httpClient.Transport != nil {
		return c.httpClient.Transport
	}
	return http.DefaultTransport
}

// createClient builds a fresh SDK client for one Generate call.
func (c *Client) createClient(ctx context.Context, apiKey string, rt http.RoundTripper) (*genai.Client, error) {
	timeout := c.httpClient.Timeout
	if timeout == 0 {
		timeout = callTimeout
	}
	config := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Transport: rt, Timeout: timeout},
	}
	if c.cfg.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

func (c *Client) generateConfig(enrich bool) *genai.GenerateContentConfig {
	g := c.cfg.Generation
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.MaxOutputTokens,
		StopSequences:   g.StopSequences,
	}
	if g.Temperature != 0 {
		cfg.Temperature = genai.Ptr(g.Temperature)
	}
	if g.TopK != 0 {
		cfg.TopK = genai.Ptr(g.TopK)
	}
	if g.TopP != 0 {
		cfg.TopP = genai.Ptr(g.TopP)
	}
	if enrich {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// callWithRetry retries only HTTP 429, honoring the server's delay hint.
func (c *Client) callWithRetry(ctx context.Context, client *genai.Client, hints *hintTransport, model string,
	contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	for attempt := 1; ; attempt++ {
		resp, err := client.Models.GenerateContent(ctx, model, contents, config)
		headerHint := hints.take()
		status := hints.takeStatus()
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("gemini call canceled: %w", ctxErr)
		}

		var apiErr genai.APIError
		if !errors.As(err, &apiErr) {
			if status >= 200 && status < 300 {
				return nil, &Error{Kind: ErrMalformedResponse, Err: err, StatusCode: status, Message: err.Error(), Attempts: attempt}
			}
			return nil, &Error{Kind: ErrServerError, Err: err, StatusCode: status, Message: err.Error(), Attempts: attempt}
		}

		switch apiErr.Code {
		case http.StatusTooManyRequests:
			if attempt >= maxAttempts {
				c.logger.Warn("gemini rate limit persisted", "attempts", attempt)
				return nil, &Error{Kind: ErrRateLimitExhausted, Err: err, StatusCode: apiErr.Code, Message: apiErr.Message, Attempts: attempt}
			}
			delay := headerHint
			if delay == 0 {
				delay = retryInfoDelay(apiErr.Details)
			}
			if delay == 0 {
				delay = c.baseDelay << (attempt - 1)
			}
			c.logger.Info("gemini rate limited, backing off", "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("gemini backoff interrupted: %w", err)
			}
		case http.StatusBadRequest:
			return nil, &Error{Kind: ErrBadRequest, Err: err, StatusCode: apiErr.Code, Message: apiErr.Message, Attempts: attempt}
		case http.StatusForbidden:
			return nil, &Error{Kind: ErrAccessForbidden, Err: err, StatusCode: apiErr.Code, Message: apiErr.Message, Attempts: attempt}
		default:
			return nil, &Error{Kind: ErrServerError, Err: err, StatusCode: apiErr.Code, Message: apiErr.Message, Attempts: attempt}
		}
	}
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &Error{Kind: ErrMalformedResponse, Message: "empty response"}
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
			resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			return "", &Error{Kind: ErrContentBlocked, FinishReason: string(resp.PromptFeedback.BlockReason)}
		}
		return "", &Error{Kind: ErrMalformedResponse, Message: "no candidates"}
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonMaxTokens, genai.FinishReasonUnspecified:
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonImageSafety:
		return "", &Error{Kind: ErrContentBlocked, FinishReason: string(candidate.FinishReason)}
	default:
		return "", &Error{Kind: ErrMalformedResponse, FinishReason: string(candidate.FinishReason)}
	}

	if candidate.Content == nil {
		return "", &Error{Kind: ErrMalformedResponse, Message: "no content in candidate"}
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &Error{Kind: ErrMalformedResponse, Message: "empty text"}
	}
	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
