// Package cmd implements the lectern command line interface.
package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/log"
)

var (
	verbose bool
	logJSON bool

	// logger is initialized by the root PersistentPreRun and shared by
	// all commands.
	logger log.Logger = log.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Course materials assistant",
	Long: `Lectern answers questions about ingested course materials.

It indexes course documents into PostgreSQL with vector embeddings and
answers questions through Claude, which can search course content and
retrieve course outlines as it works.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// A missing .env file is fine; the environment may already
		// carry the keys.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = log.New(log.Config{Level: level, JSON: logJSON})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}
