package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhongkairen/airtable-sync/internal/airtable"
	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/config"
	"github.com/zhongkairen/airtable-sync/internal/github"
	"github.com/zhongkairen/airtable-sync/internal/logging"
	"github.com/zhongkairen/airtable-sync/internal/service"
)

var (
	debug   bool
	verbose bool
	info    bool
	warning bool
)

var rootCmd = &cobra.Command{
	Use:   "airtable-sync",
	Short: "Update Airtable rows from the epic issues of a GitHub project",
	Long: `airtable-sync reads the epic issues of a GitHub Project (v2) and writes
their mapped project fields into the matching rows of an Airtable table.

The configuration is read from config.json or config.yaml in the working
directory, next to the executable, or from $AIRTABLE_SYNC_CONFIG.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "log at debug level")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at verbose level")
	rootCmd.Flags().BoolVarP(&info, "info", "i", false, "log at info level")
	rootCmd.Flags().BoolVarP(&warning, "warning", "w", false, "log at warning level")
	rootCmd.MarkFlagsMutuallyExclusive("debug", "verbose", "info", "warning")
}

func level() zapcore.Level {
	switch {
	case debug:
		return logging.DebugLevel
	case verbose:
		return logging.VerboseLevel
	case info:
		return logging.InfoLevel
	case warning:
		return logging.WarnLevel
	default:
		return logging.ErrorLevel
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger := logging.FromEnv(level())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := config.FindFile()
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	logging.Verbose(logger, "using config file "+path)
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	svc := buildService(cfg, logger)
	// Record failures are reported in the result; only aborted passes fail the process.
	if _, err := svc.Sync(ctx); err != nil {
		logger.Error("sync failed", zap.Error(err))
		return err
	}
	return nil
}

// buildService wires the clients, the issue cache and the record store.
func buildService(cfg *config.Config, logger *zap.Logger) *service.SyncService {
	httpClient := api.NewHTTPClient()

	githubClient := github.NewClient(api.ClientConfig{
		BaseURL: cfg.GitHub.APIURL,
		Token:   cfg.GitHub.Token,
	}, github.Repo{
		Owner:     cfg.GitHub.Owner,
		Name:      cfg.GitHub.Repo,
		Project:   cfg.GitHub.Project,
		EpicField: cfg.GitHub.EpicField,
	}, httpClient, logger)

	airtableClient := airtable.NewClient(api.ClientConfig{
		BaseURL: cfg.Airtable.APIURL,
		Token:   cfg.Airtable.Token,
	}, airtable.Table{
		BaseID:   cfg.Airtable.BaseID,
		TableID:  cfg.Airtable.TableID,
		ViewName: cfg.Airtable.ViewName,
	}, httpClient, logger)

	return service.NewSyncService(
		github.NewCachingReader(githubClient, logger),
		airtable.NewStore(airtableClient, logger),
		cfg.GitHub.Repo,
		cfg.GitHub.FieldMap,
		logger,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
