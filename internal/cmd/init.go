package cmd

import (
	"fmt"
	"os"
	"strings"

	"orgdrift/pkg/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize orgdrift configuration",
	Long:  "Create a default configuration file for orgdrift",
	RunE:  runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !confirmOverwrite(configPath) {
		fmt.Println("Configuration initialization cancelled.")
		return nil
	}

	seed := &config.Config{
		GitHub: config.GitHubConfig{Organization: "your-org"},
	}
	if err := seed.SaveConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✅ Configuration file created at: %s\n", configPath)
	fmt.Println("📝 Edit it to set your organization, or rely on the")
	fmt.Println("   GITHUB_TOKEN environment variable for authentication.")

	return nil
}

// confirmOverwrite asks before clobbering an existing config file.
func confirmOverwrite(path string) bool {
	fmt.Printf("⚠️  Configuration file already exists at: %s\n", path)
	fmt.Print("Do you want to overwrite it? (y/N): ")

	var response string
	_, _ = fmt.Scanln(&response)
	return strings.EqualFold(response, "y")
}
