package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

var clearExisting bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest course documents into the knowledge store",
	Long: `Ingest reads course documents (a single file or a folder of .txt/.md
files), chunks and embeds them, and stores them in PostgreSQL. Courses that
are already indexed are skipped unless --clear is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&clearExisting, "clear", false, "drop all indexed courses before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	ctx := cmd.Context()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	path := cfg.DocsDir
	if len(args) == 1 {
		path = args[0]
	}

	courses, chunks, err := a.System.Ingest(ctx, path, clearExisting)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Ingested %d new courses (%d chunks) from %s\n", courses, chunks, path)
	return nil
}
