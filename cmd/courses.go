package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the indexed courses",
	RunE:  runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, _ []string) error {
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

	total, titles, err := a.System.Analytics(ctx)
	if err != nil {
		return fmt.Errorf("reading course catalog: %w", err)
	}

	fmt.Printf("Indexed courses: %d\n", total)
	for _, title := range titles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}
