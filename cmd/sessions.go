package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions on a running server",
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8000", "base URL of the running server")
	sessionsCmd.AddCommand(sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// Sessions live in the server process, so clearing one goes through its API
// rather than the database.
func runSessionsClear(cmd *cobra.Command, args []string) error {
	endpoint, err := url.JoinPath(serverURL, "api", "sessions", args[0])
	if err != nil {
		return fmt.Errorf("building session URL: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	fmt.Printf("Session %s cleared\n", args[0])
	return nil
}
