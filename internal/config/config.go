// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lectern/config.yaml, or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Generation: Anthropic model, output budget, tool-round limit
//   - Retrieval: embedder model, chunking, result limits
//   - Storage: PostgreSQL connection for the vector store
//   - Server: HTTP listen address, rate limiting
//
// Secrets (API keys, database password) are never logged; MarshalJSON and
// String mask them. Validation is fail-fast with sentinel errors usable
// via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidToolRounds indicates the tool round limit is out of range.
	ErrInvalidToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidMaxHistory indicates the history limit is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidChunking indicates chunk size/overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidPostgres indicates the PostgreSQL settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

const (
	// DefaultModel is the default Anthropic model for answer generation.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultEmbedderModel is the default Gemini embedding model.
	// gemini-embedding-001 supports truncation to 768 dimensions, matching
	// the pgvector schema in db/migrations.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxToolRounds bounds sequential tool-use rounds per query.
	DefaultMaxToolRounds = 2

	// DefaultMaxHistory is the number of prior exchanges kept per session.
	DefaultMaxHistory = 2

	// MaxAllowedHistory is the absolute ceiling to prevent unbounded growth.
	MaxAllowedHistory = 100
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Generation
	Model         string `mapstructure:"model" json:"model"`
	MaxTokens     int    `mapstructure:"max_tokens" json:"max_tokens"`
	MaxToolRounds int    `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	MaxHistory    int    `mapstructure:"max_history" json:"max_history"`

	// API keys (env only)
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON
	GeminiAPIKey    string `mapstructure:"gemini_api_key" json:"gemini_api_key"`       // SENSITIVE: masked in MarshalJSON

	// Retrieval
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	ChunkSize     int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	MaxResults    int    `mapstructure:"max_results" json:"max_results"`

	// Ingestion
	DocsDir string `mapstructure:"docs_dir" json:"docs_dir"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lectern")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, if set, overrides the individual Postgres settings.
	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("max_tool_rounds", DefaultMaxToolRounds)
	v.SetDefault("max_history", DefaultMaxHistory)

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)
	v.SetDefault("max_results", 5)

	v.SetDefault("docs_dir", "./docs")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lectern")
	v.SetDefault("postgres_password", "lectern_dev_password")
	v.SetDefault("postgres_db_name", "lectern")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", "127.0.0.1:8000")
	v.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment (or a .env file loaded by the CLI),
// never from the YAML config file checked into a home directory.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	mustBind("model", "LECTERN_MODEL")
	mustBind("embedder_model", "LECTERN_EMBEDDER_MODEL")
	mustBind("docs_dir", "LECTERN_DOCS_DIR")
	mustBind("listen_addr", "LECTERN_LISTEN_ADDR")
	mustBind("rate_burst", "LECTERN_RATE_BURST")
}

// parseDatabaseURL overrides Postgres settings from a postgres:// URL.
// Empty input leaves the configuration unchanged.
func (c *Config) parseDatabaseURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
		c.PostgresPort = p
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := filepath.Base(u.Path); db != "." && db != "/" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// ConnURL returns the PostgreSQL connection URL for pgx and golang-migrate.
func (c *Config) ConnURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDBName,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked; longer ones keep the first and last two characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
