package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"orgdrift/pkg/config"
	"orgdrift/pkg/fuzzy"
	"orgdrift/pkg/github"
	"orgdrift/pkg/manifest"
)

var exportOrg string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export live organization state as an org.toml manifest",
	Long: `Fetch the live state of a GitHub organization and render it as an
org.toml manifest on stdout.

This bootstraps a manifest from an existing organization: redirect the
output to a file, review it, and check against it from then on. The
output is stable; exporting an unchanged organization twice produces
byte-identical manifests. Status messages go to stderr so the output
can be redirected safely.

The organization is taken from --org, falling back to the default
organization in ~/.orgdrift/config.yaml. When neither is set and the
session is interactive, the organizations visible to the token are
listed for selection.

Examples:
  orgdrift export --org acme-co > org.toml
  orgdrift export > org.toml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "Organization to export (defaults to github.organization in config)")
}

func runExport(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load orgdrift config: %w", err)
	}

	authManager := github.NewAuthManager()
	tokenInfo, err := authManager.AuthenticateFromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "%s\n", github.GetAuthInstructions())
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Authenticated as %s\n", tokenInfo.User)

	client, err := newAPIClient(authManager, cfg)
	if err != nil {
		return err
	}

	orgName, err := resolveOrganization(ctx, client, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "🔍 Fetching live state of organization %s...\n", orgName)

	observed, err := fetchLiveState(ctx, client, orgName)
	if err != nil {
		return err
	}

	data, err := manifest.Render(observed)
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// resolveOrganization picks the organization to export: the --org
// flag, then the configured default, then interactive selection when
// the session is a terminal.
func resolveOrganization(ctx context.Context, client *github.Client, cfg *config.Config) (string, error) {
	if exportOrg != "" {
		return exportOrg, nil
	}
	if cfg.GitHub.Organization != "" {
		return cfg.GitHub.Organization, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("organization not specified: use --org flag or set github.organization in config")
	}

	orgs, err := client.ListUserOrgs(ctx)
	if err != nil {
		return "", err
	}
	if len(orgs) == 0 {
		return "", fmt.Errorf("the authenticated user is not a member of any organization")
	}

	options := make([]fuzzy.Option, len(orgs))
	for i, org := range orgs {
		options[i] = fuzzy.Option{Value: org.Login, Description: org.Description}
	}

	finder := fuzzy.NewFzf("Select organization")
	if err := finder.SetOptions(options); err != nil {
		return "", fmt.Errorf("failed to prepare organization selection: %w", err)
	}

	selected, err := finder.Select()
	if err != nil {
		return "", fmt.Errorf("failed to select organization: %w", err)
	}

	return selected, nil
}
