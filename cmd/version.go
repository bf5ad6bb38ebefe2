package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(*cobra.Command, []string) error {
	fmt.Printf("Lectern %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", cfg.Model)
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  Tool rounds: %d\n", cfg.MaxToolRounds)
	fmt.Printf("  Docs folder: %s\n", cfg.DocsDir)
	fmt.Printf("  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

	printKeyStatus("ANTHROPIC_API_KEY")
	printKeyStatus("GEMINI_API_KEY")

	return nil
}

func printKeyStatus(name string) {
	key := os.Getenv(name)
	if key == "" {
		fmt.Printf("  %s: Not set\n", name)
		return
	}
	if len(key) < 8 {
		fmt.Printf("  %s: configured\n", name)
		return
	}
	fmt.Printf("  %s: %s...%s (configured)\n", name, key[:4], key[len(key)-4:])
}
