// Package config loads ghroast configuration from defaults, an optional
// YAML file, and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/ghroast/pkg/gemini"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

const (
	DefaultModel      = "gemini-2.5-flash-lite"
	DefaultAddr       = ":8080"
	DefaultSessionTTL = 24 * time.Hour
)

// Config is the full application configuration.
type Config struct {
	GitHub   GitHub  `yaml:"github"`
	Gemini   Gemini  `yaml:"gemini"`
	Session  Session `yaml:"session"`
	Server   Server  `yaml:"server"`
	LogLevel string  `yaml:"log_level,omitempty"`
}

// GitHub holds GitHub API settings.
type GitHub struct {
	Token      string `yaml:"token,omitempty"`
	APIURL     string `yaml:"api_url,omitempty"`
	GraphQLURL string `yaml:"graphql_url,omitempty"`
}

// Gemini holds generative API settings.
type Gemini struct {
	APIKey      string                  `yaml:"api_key,omitempty"`
	TextModel   string                  `yaml:"text_model,omitempty"`
	VisionModel string                  `yaml:"vision_model,omitempty"`
	BaseURL     string                  `yaml:"base_url,omitempty"`
	Generation  gemini.GenerationConfig `yaml:"generation"`
}

// Session selects the session store.
type Session struct {
	Backend string        `yaml:"backend,omitempty"`
	Path    string        `yaml:"path,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
}

// Server holds HTTP server settings.
type Server struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gemini: Gemini{
			TextModel:   DefaultModel,
			VisionModel: DefaultModel,
			Generation:  gemini.DefaultGenerationConfig(),
		},
		Session: Session{
			Backend: session.BackendMemory,
			TTL:     DefaultSessionTTL,
		},
		Server:   Server{Addr: DefaultAddr},
		LogLevel: "info",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ghroast", "config.yaml")
}

// Load builds the configuration. An empty path uses DefaultPath; a missing
// file at the default path is not an error, but an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&cfg.GitHub.Token, "GITHUB_TOKEN")
	set(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	set(&cfg.Gemini.TextModel, "GEMINI_MODEL")
	set(&cfg.Gemini.VisionModel, "GEMINI_VISION_MODEL", "GEMINI_MODEL")
	set(&cfg.Session.Backend, "GHROAST_SESSION_BACKEND")
	set(&cfg.Session.Path, "GHROAST_SESSION_PATH")
	set(&cfg.Server.Addr, "GHROAST_ADDR")
	set(&cfg.LogLevel, "GHROAST_LOG_LEVEL")
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case session.BackendMemory, session.BackendSQLite:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Session.Backend == session.BackendSQLite && c.Session.Path == "" {
		return errors.New("sqlite session backend needs session.path")
	}
	if c.Gemini.TextModel == "" {
		return errors.New("gemini.text_model must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// GeminiConfig returns the generative client configuration.
func (c *Config) GeminiConfig() gemini.Config {
	return gemini.Config{
		APIKey:      c.Gemini.APIKey,
		TextModel:   c.Gemini.TextModel,
		VisionModel: c.Gemini.VisionModel,
		BaseURL:     c.Gemini.BaseURL,
		Generation:  c.Gemini.Generation,
	}
}

// LogValue keeps credentials out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("github_token_set", c.GitHub.Token != ""),
		slog.Bool("gemini_api_key_set", c.Gemini.APIKey != ""),
		slog.String("text_model", c.Gemini.TextModel),
		slog.String("vision_model", c.Gemini.VisionModel),
		slog.String("session_backend", c.Session.Backend),
		slog.Duration("session_ttl", c.Session.TTL),
		slog.String("addr", c.Server.Addr),
		slog.String("log_level", c.LogLevel),
	)
}
