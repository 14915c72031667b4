package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"orgdrift/pkg/drift"
	"orgdrift/pkg/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <org.toml>",
	Short: "Validate an org manifest without touching the network",
	Long: `Validate an org.toml manifest for syntax and structural errors.

The manifest is parsed and run through the same normalization the check
command uses, so everything that would fail there fails here: TOML
syntax errors, missing required fields, duplicate teams, members or
repositories, references to undeclared teams or members, cyclic team
hierarchies, and invalid permission or role values.

No GitHub credentials are needed; the command never touches the network.

Examples:
  orgdrift validate org.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(_ *cobra.Command, args []string) error {
	manifestFile := args[0]

	fmt.Printf("🔍 Validating manifest: %s\n", manifestFile)

	org, err := manifest.LoadFile(manifestFile)
	if err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	fmt.Printf("✓ TOML syntax and required fields passed\n")

	if _, err := drift.Normalize(org); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	fmt.Printf("✓ Structural invariants passed\n")
	fmt.Printf("\n✅ Manifest is valid: %d teams, %d members, %d repositories\n",
		len(org.Teams), len(org.Members), len(org.Repositories))

	return nil
}
