// Package main implements the ghroast command-line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/ghroast/pkg/config"
	"github.com/codeGROOVE-dev/ghroast/pkg/gemini"
	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/insight"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

const commandTimeout = 2 * time.Minute

var (
	configFlag  string
	verboseFlag bool
	jsonFlag    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ghroast",
	Short: "Roast developer profiles with Gemini",
	Long: `ghroast fetches a GitHub profile, derives some unflattering insights,
and asks Gemini to turn them into a roast. LinkedIn and Instagram URLs
are roasted from the URL alone.`,
	SilenceUsage: true,
}

var profileCmd = &cobra.Command{
	Use:   "profile <username|url>",
	Short: "Show a GitHub profile and its insights",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

var roastCmd = &cobra.Command{
	Use:   "roast <platform> <input>",
	Short: "Roast a github, linkedin or instagram profile",
	Long: `Roast a profile. For github the input may be a username or a profile
URL; other platforms take the profile URL.`,
	Args: cobra.ExactArgs(2),
	RunE: runRoast,
}

var promptCmd = &cobra.Command{
	Use:   "prompt <username|url>",
	Short: "Print the roast prompt for a GitHub profile without calling Gemini",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrompt,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	for _, cmd := range []*cobra.Command{profileCmd, roastCmd} {
		cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of text")
	}

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(roastCmd)
	rootCmd.AddCommand(promptCmd)
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp() (*app, error) {
	level := slog.LevelError
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = ghCLIToken(context.Background())
	}
	logger.Debug("configuration loaded", "config", cfg)

	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) fetcher() *github.Fetcher {
	return github.NewFetcher(
		github.WithLogger(a.logger),
		github.WithToken(a.cfg.GitHub.Token),
		github.WithEndpoints(a.cfg.GitHub.APIURL, a.cfg.GitHub.GraphQLURL),
	)
}

func (a *app) generator() *gemini.Client {
	return gemini.NewClient(a.cfg.GeminiConfig(), gemini.WithLogger(a.logger))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	login, err := github.UsernameFromInput(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := a.fetcher().FetchProfile(ctx, login)
	if err != nil {
		return err
	}
	insights := insight.Derive(p, time.Now())

	if jsonFlag {
		return printJSON(cmd, map[string]any{"profile": p, "insights": insights})
	}
	printProfile(cmd.OutOrStdout(), p, insights)
	return nil
}

func runRoast(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	platform, err := roast.ParsePlatform(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := session.Open(ctx, a.cfg.Session.Backend, a.cfg.Session.Path, a.cfg.Session.TTL, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Error("failed to close session store", "error", err)
		}
	}()

	svc := roast.NewService(a.fetcher(), a.generator(), store, roast.WithLogger(a.logger))
	res, err := svc.Roast(ctx, platform, args[1])
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, res)
	}
	printRoast(cmd.OutOrStdout(), res, verboseFlag)
	return nil
}

func runPrompt(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	login, err := github.UsernameFromInput(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := a.fetcher().FetchProfile(ctx, login)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), insight.NarrativePrompt(p, time.Now()))
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
