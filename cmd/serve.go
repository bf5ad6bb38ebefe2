package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/api"
	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // tool rounds can take a while
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var skipIngest bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve starts the JSON API. On startup it ingests any new course
documents from the configured docs folder, then listens for queries.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "skip the startup document ingest")
	rootCmd.AddCommand(serveCmd)
}

func runServe(*cobra.Command, []string) error {
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if !skipIngest {
		if _, statErr := os.Stat(cfg.DocsDir); statErr == nil {
			courses, chunks, ingestErr := a.System.Ingest(ctx, cfg.DocsDir, false)
			if ingestErr != nil {
				logger.Warn("startup ingest failed", "error", ingestErr)
			} else {
				logger.Info("startup ingest complete", "courses", courses, "chunks", chunks)
			}
		} else {
			logger.Warn("docs folder not found, skipping startup ingest", "dir", cfg.DocsDir)
		}
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Assistant: a.System,
		Logger:    logger,
		RateBurst: cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready", "addr", cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}
