// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.libro/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - LLM: completion provider, model, temperature
//   - Embedding: embedder model and output dimensionality
//   - Vector: vector index backend selection (qdrant, pgvector, memory)
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: top-k limit and chunk target size
//
// Security: sensitive data (passwords, API keys) are never logged; MarshalJSON
// masks them explicitly.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the completion provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder output dimensionality is invalid.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidVectorBackend indicates the vector index backend is not supported.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrInvalidRetrievalLimit indicates the retrieval limit is out of range.
	ErrInvalidRetrievalLimit = errors.New("invalid retrieval limit")

	// ErrInvalidChunkSize indicates the chunk target size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// Completion provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderGroq     = "groq"
)

// Vector index backend identifiers used in Config.VectorBackend.
const (
	VectorBackendQdrant   = "qdrant"
	VectorBackendPgvector = "pgvector"
	VectorBackendMemory   = "memory"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncating its output to a configured
	// dimensionality; the vector schema uses 1024 dimensions.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension is the fixed embedding dimensionality D.
	DefaultEmbedderDimension = 1024

	// DefaultRetrievalLimit is the default number of context items per query.
	DefaultRetrievalLimit = 5

	// MaxRetrievalLimit is the absolute maximum retrieval limit.
	MaxRetrievalLimit = 50

	// DefaultChunkSize is the default chunk target size in characters.
	DefaultChunkSize = 1000
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Completion provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "googleai" (default) or "groq"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "gemini-2.0-flash", "llama-3.3-70b-versatile")
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Embedding configuration
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`

	// Vector index configuration
	VectorBackend    string `mapstructure:"vector_backend" json:"vector_backend"` // "qdrant", "pgvector", "memory"
	QdrantURL        string `mapstructure:"qdrant_url" json:"qdrant_url"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key" json:"qdrant_api_key"` // SENSITIVE: masked in MarshalJSON
	QdrantCollection string `mapstructure:"qdrant_collection" json:"qdrant_collection"`
	QdrantTimeoutSec int    `mapstructure:"qdrant_timeout_sec" json:"qdrant_timeout_sec"`

	// Retrieval configuration
	RetrievalLimit int `mapstructure:"retrieval_limit" json:"retrieval_limit"`
	ChunkSize      int `mapstructure:"chunk_size" json:"chunk_size"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Rate limiting for outbound completion calls (requests per second; 0 disables)
	CompletionRPS   float64 `mapstructure:"completion_rps" json:"completion_rps"`
	CompletionBurst int     `mapstructure:"completion_burst" json:"completion_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	// Configuration directory: ~/.libro/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".libro")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Completion defaults
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.0-flash")
	v.SetDefault("temperature", 0.1)

	// Embedding defaults
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	// Vector index defaults: qdrant when configured, with transparent
	// in-memory fallback (see internal/vector).
	v.SetDefault("vector_backend", VectorBackendQdrant)
	v.SetDefault("qdrant_collection", "book_content")
	v.SetDefault("qdrant_timeout_sec", 15)

	// Retrieval defaults
	v.SetDefault("retrieval_limit", DefaultRetrievalLimit)
	v.SetDefault("chunk_size", DefaultChunkSize)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "libro")
	v.SetDefault("postgres_password", "libro_dev_password")
	v.SetDefault("postgres_db_name", "libro")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:8000")

	// Outbound rate limiting defaults (disabled)
	v.SetDefault("completion_rps", 0.0)
	v.SetDefault("completion_burst", 0)
}

// bindEnvVariables binds environment variables explicitly.
//
// API keys are read directly from the environment, never from config files:
//   - GEMINI_API_KEY: Gemini completion + embedding
//   - GROQ_API_KEY:   Groq completion (only when provider is "groq")
//   - QDRANT_API_KEY: Qdrant Cloud authentication
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LIBRO_PROVIDER")
	mustBind("model_name", "LIBRO_MODEL_NAME")
	mustBind("embedder_model", "LIBRO_EMBEDDER_MODEL")
	mustBind("vector_backend", "LIBRO_VECTOR_BACKEND")
	mustBind("server_addr", "LIBRO_SERVER_ADDR")

	mustBind("qdrant_url", "QDRANT_URL")
	mustBind("qdrant_api_key", "QDRANT_API_KEY")
	mustBind("qdrant_collection", "QDRANT_COLLECTION")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show the
// first and last 2 characters for debug utility.
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
//
// Sensitive fields masked:
//   - PostgresPassword
//   - QdrantAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.QdrantAPIKey = maskSecret(a.QdrantAPIKey)
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
