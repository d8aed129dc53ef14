package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhongkairen/airtable-sync/internal/api"
	"github.com/zhongkairen/airtable-sync/internal/config"
	"github.com/zhongkairen/airtable-sync/internal/github"
	"github.com/zhongkairen/airtable-sync/internal/logging"
	"github.com/zhongkairen/airtable-sync/internal/tokencheck"
)

var (
	repoName    string
	projectID   string
	projectName string
	verbose     bool
)

// errInvalidToken exits with status 2 after the checklist was printed.
var errInvalidToken = errors.New("token is invalid")

var rootCmd = &cobra.Command{
	Use:   "verify-token <token-file>",
	Short: "Check that a GitHub token can read the sync repository and project",
	Long: `verify-token probes the repository and the project node with the token
read from <token-file> and prints a checklist with a hint for every failure.

A project id is only known once a working token exists: run with a valid token
and --project-name to print the id, then verify other tokens against it.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&repoName, "repo", "", "repository as owner/name")
	rootCmd.Flags().StringVar(&projectID, "project-id", "", "project node id, e.g. PVT_kwDOAAaA1M4ABPtL")
	rootCmd.Flags().StringVar(&projectName, "project-name", "", "print the id of the repository project with this title")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log requests at verbose level")
	_ = rootCmd.MarkFlagRequired("repo")
	_ = rootCmd.MarkFlagRequired("project-id")
}

func run(cmd *cobra.Command, args []string) error {
	level := logging.ErrorLevel
	if verbose {
		level = logging.VerboseLevel
	}
	logger := logging.FromEnv(level)
	defer func() { _ = logger.Sync() }()

	token, err := config.ReadTokenFile(args[0])
	if err != nil {
		return fmt.Errorf("token file %s not found: %w", args[0], err)
	}

	owner, name, _ := strings.Cut(repoName, "/")
	client := github.NewClient(api.ClientConfig{
		BaseURL: os.Getenv(config.EnvGitHubURL),
		Token:   token,
	}, github.Repo{Owner: owner, Name: name}, api.NewHTTPClient(), logger)

	verifier, err := tokencheck.NewVerifier(client, repoName, projectID, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if projectName != "" {
		id, err := verifier.QueryProjectID(ctx, projectName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}

	report, err := verifier.Verify(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Checklist())
	if report.Valid() {
		fmt.Fprintln(out, "Token is valid")
		return nil
	}
	fmt.Fprintln(out, "Token is invalid")
	return errInvalidToken
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, errInvalidToken) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
