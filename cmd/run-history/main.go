package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/config"
	"github.com/zhongkairen/airtable-sync/internal/dashboard"
	"github.com/zhongkairen/airtable-sync/internal/github"
	"github.com/zhongkairen/airtable-sync/internal/history"
	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// Token environment variables. Each also has a _PATH variant naming a token file.
const (
	envActionToken = "GITHUB_AIRTABLE_SYNC_READONLY_ACTION_TOKEN"
	envGistToken   = "GITHUB_AIRTABLE_SYNC_GIST_TOKEN"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "run-history",
	Short: "Record and chart the runs of the sync workflow",
	Long: `run-history keeps a history of the sync workflow runs: start time, run
number, trigger, conclusion, duration and the deployed package version read
from each run's log archive.

The history lives in a gist file (--gist-id) or in a local file (--file).
Every flag can also be set as RUN_HISTORY_<FLAG>, e.g. RUN_HISTORY_GIST_ID.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	},
	RunE: runCollect,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Add new completed runs to the history (default)",
	Args:  cobra.NoArgs,
	RunE:  runCollect,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the history chart as a static HTML page",
	Args:  cobra.NoArgs,
	RunE:  runRender,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history chart over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("owner", "", "GitHub repository owner")
	flags.String("repo", "", "GitHub repository name")
	flags.String("id", "", "GitHub workflow ID")
	flags.String("gist-id", "", "gist holding the history file")
	flags.String("gist-file", history.DefaultFileName, "history file name inside the gist")
	flags.String("file", "", "local history file, used instead of a gist")
	flags.String("timezone", "UTC", "time zone of the chart labels")
	flags.String("log-level", "info", "debug, verbose, info, warning or error")

	renderCmd.Flags().StringP("output", "o", "run_history.html", "HTML output file")
	serveCmd.Flags().String("addr", ":8080", "listen address")

	v.SetEnvPrefix("RUN_HISTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(collectCmd, renderCmd, serveCmd)
}

func newLogger() *zap.Logger {
	return logging.FromEnv(logging.ParseLevel(v.GetString("log-level")))
}

func token(env string) (string, error) {
	return config.TokenSource{Env: env, PathEnv: env + "_PATH"}.Resolve()
}

// newStore returns the file store when --file is set and the gist store otherwise.
func newStore(logger *zap.Logger) (history.Store, error) {
	if path := v.GetString("file"); path != "" {
		return history.NewFileStore(path, logger), nil
	}
	gistID := v.GetString("gist-id")
	if gistID == "" {
		return nil, errors.New("either --gist-id or --file is required")
	}
	gistToken, err := token(envGistToken)
	if err != nil {
		return nil, err
	}
	client := github.NewClient(api.ClientConfig{
		BaseURL: os.Getenv(config.EnvGitHubURL),
		Token:   gistToken,
	}, github.Repo{}, api.NewHTTPClient(), logger)
	return history.NewGistStore(client, gistID, v.GetString("gist-file"), logger), nil
}

func runCollect(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	owner, repo, workflowID := v.GetString("owner"), v.GetString("repo"), v.GetString("id")
	if owner == "" || repo == "" || workflowID == "" {
		return errors.New("--owner, --repo and --id are required")
	}
	actionToken, err := token(envActionToken)
	if err != nil {
		return err
	}
	store, err := newStore(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	client := github.NewClient(api.ClientConfig{
		BaseURL: os.Getenv(config.EnvGitHubURL),
		Token:   actionToken,
	}, github.Repo{Owner: owner, Name: repo}, api.NewHTTPClient(), logger)

	added, err := history.NewCollector(client, workflowID, logger).Collect(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to collect runs: %w", err)
	}
	if _, err := store.Save(ctx, h); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	logger.Info(fmt.Sprintf("added %d run(s), %d in history", added, h.Len()))
	return nil
}

func newRenderer() (*dashboard.HTMLRenderer, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return dashboard.NewHTMLRenderer(loc), nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	store, err := newStore(logger)
	if err != nil {
		return err
	}
	renderer, err := newRenderer()
	if err != nil {
		return err
	}
	h, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	output := v.GetString("output")
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()
	if err := renderer.RenderHistory(f, h.Items(), 0); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("wrote %d run(s) to %s", h.Len(), output))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	store, err := newStore(logger)
	if err != nil {
		return err
	}
	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	handler := dashboard.NewHandler(dashboard.HandlerConfig{
		Renderer: renderer,
		Loader:   store,
		Logger:   logger,
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving run history on http://localhost" + server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
