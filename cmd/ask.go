package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/course"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the course materials",
	Long: `Ask answers a single question, or starts an interactive loop when no
question is given. The interactive loop keeps one conversation session so
follow-up questions carry context.`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateGenerate(); err != nil {
		return err
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

	if len(args) > 0 {
		question := strings.Join(args, " ")
		answer, sources, err := a.System.Query(ctx, question, "")
		if err != nil {
			return err
		}
		printAnswer(answer, sources)
		return nil
	}

	// Interactive loop with one shared session.
	sessionID := a.Sessions.Create()
	fmt.Println("Ask about the course materials. Ctrl-D or \"exit\" to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, sources, err := a.System.Query(ctx, question, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printAnswer(answer, sources)
	}
	return scanner.Err()
}

func printAnswer(answer string, sources []course.Source) {
	fmt.Println(answer)
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, src := range sources {
		if src.Link != "" {
			fmt.Printf("  - %s (%s)\n", src.Text, src.Link)
		} else {
			fmt.Printf("  - %s\n", src.Text)
		}
	}
}
