package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errDriftDetected is returned by check once the report crossed the
// --fail-on threshold. Execute maps it to exit code 2 so pipelines can
// tell drifted apart from broken.
var errDriftDetected = errors.New("drift detected")

var rootCmd = &cobra.Command{
	Use:   "orgdrift",
	Short: "A CLI tool for detecting GitHub organization drift",
	Long: `Orgdrift compares a declarative org.toml manifest describing a GitHub
organization (teams, members, repositories, access) against the
organization's live state and reports every discrepancy. It never
changes anything; reconciliation is left to a human.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, errDriftDetected) {
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(initCmd)
}
