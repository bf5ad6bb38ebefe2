package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid or missing values.
// It returns the first validation failure wrapped around its sentinel error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidModelName)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 64000 {
		return fmt.Errorf("%w: max_tokens must be in [1, 64000], got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 10 {
		return fmt.Errorf("%w: max_tool_rounds must be in [1, 10], got %d", ErrInvalidToolRounds, c.MaxToolRounds)
	}
	if c.MaxHistory < 0 || c.MaxHistory > MaxAllowedHistory {
		return fmt.Errorf("%w: max_history must be in [0, %d], got %d", ErrInvalidMaxHistory, MaxAllowedHistory, c.MaxHistory)
	}

	if c.ChunkSize < 100 || c.ChunkSize > 10000 {
		return fmt.Errorf("%w: chunk_size must be in [100, 10000], got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.MaxResults < 1 || c.MaxResults > 50 {
		return fmt.Errorf("%w: max_results must be in [1, 50], got %d", ErrInvalidMaxResults, c.MaxResults)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be in [1, 65535], got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgres)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: unknown sslmode %q", ErrInvalidPostgres, c.PostgresSSLMode)
	}

	return nil
}

// ValidateGenerate checks the settings required for answer generation.
// Called by commands that talk to the model endpoint; ingestion-only
// commands skip it so they run without an Anthropic key.
func (c *Config) ValidateGenerate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingAPIKey)
	}
	return nil
}

// ValidateIngest checks the settings required for document ingestion.
func (c *Config) ValidateIngest() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
	}
	return nil
}
