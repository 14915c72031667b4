package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"orgdrift/pkg/config"
	"orgdrift/pkg/drift"
	"orgdrift/pkg/github"
	"orgdrift/pkg/manifest"
)

var checkFailOn string

var checkCmd = &cobra.Command{
	Use:   "check <org.toml>",
	Short: "Compare an org manifest against live GitHub state",
	Long: `Compare a declarative org.toml manifest against the live state of the
GitHub organization it names and report every discrepancy.

The manifest is parsed and normalized, the organization's live state is
fetched through the GitHub API and normalized the same way, and the two
canonical trees are diffed. Every discrepancy is classified:

  info      something exists that the manifest does not declare
  warning   declared state is missing, drifted or under-privileged
  critical  a team or user holds admin access beyond declared intent

EXIT CODES:

  0  the organization matches the manifest
  1  operational failure (parse, validation, authentication or fetch error)
  2  discrepancies at or above the --fail-on threshold were found

Examples:
  # Fail on any discrepancy
  orgdrift check org.toml

  # Tolerate undeclared extras and ordinary drift in a nightly job
  orgdrift check org.toml --fail-on critical`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFailOn, "fail-on", "info", "Minimum severity that counts as drift for the exit code (info, warning or critical)")
}

func runCheck(_ *cobra.Command, args []string) error {
	manifestFile := args[0]

	threshold, err := drift.ParseSeverity(checkFailOn)
	if err != nil {
		return err
	}

	target, err := manifest.LoadFile(manifestFile)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	orgName := target.Organization.Name
	fmt.Printf("📋 Loaded manifest for organization %s\n", orgName)

	// Load orgdrift configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load orgdrift config: %w", err)
	}

	// Set up GitHub authentication
	authManager := github.NewAuthManager()
	tokenInfo, err := authManager.AuthenticateFromConfig(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "%s\n", github.GetAuthInstructions())
		return err
	}

	fmt.Printf("✓ Authenticated as %s\n", tokenInfo.User)

	client, err := newAPIClient(authManager, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("🔍 Fetching live state of organization %s...\n", orgName)

	observed, err := fetchLiveState(context.Background(), client, orgName)
	if err != nil {
		return err
	}

	targetState, observedState, err := drift.NormalizePair(target, observed)
	if err != nil {
		return fmt.Errorf("failed to normalize: %w", err)
	}

	report := drift.Classify(drift.Diff(targetState, observedState))

	renderReport(os.Stdout, report, term.IsTerminal(int(os.Stdout.Fd())))

	if report.CountAtLeast(threshold) > 0 {
		return errDriftDetected
	}

	return nil
}

// newAPIClient creates the GitHub API client for the authenticated
// token, honoring an enterprise base URL when one is configured.
func newAPIClient(authManager *github.AuthManager, cfg *config.Config) (*github.Client, error) {
	token, err := authManager.GetToken(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	if cfg.GitHub.APIBaseURL != "" {
		return github.NewEnterpriseClient(token, cfg.GitHub.APIBaseURL)
	}

	return github.NewClient(token), nil
}

// fetchLiveState fetches the live organization snapshot, rewriting a
// progress line on stderr while the detail listings run when stderr is
// a terminal.
func fetchLiveState(ctx context.Context, client *github.Client, orgName string) (*manifest.Org, error) {
	fetcher := github.NewFetcher(client)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		fetcher.OnProgress = func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\x1b[2K\r   fetched %d/%d teams and repositories", completed, total)
		}
		defer fmt.Fprint(os.Stderr, "\x1b[2K\r")
	}

	return fetcher.FetchOrg(ctx, orgName)
}
