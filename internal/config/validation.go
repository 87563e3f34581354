package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks whether the configuration is valid, using sentinel errors
// that support errors.Is() checking.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI, ProviderGroq:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderGroq)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be between 0 and 2)",
			ErrInvalidTemperature, c.Temperature)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.EmbedderDimension <= 0 {
		return fmt.Errorf("%w: %d (must be positive)",
			ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	switch c.VectorBackend {
	case VectorBackendQdrant, VectorBackendPgvector, VectorBackendMemory:
	default:
		return fmt.Errorf("%w: %q (expected %q, %q or %q)",
			ErrInvalidVectorBackend, c.VectorBackend,
			VectorBackendQdrant, VectorBackendPgvector, VectorBackendMemory)
	}

	if c.RetrievalLimit < 1 || c.RetrievalLimit > MaxRetrievalLimit {
		return fmt.Errorf("%w: %d (must be between 1 and %d)",
			ErrInvalidRetrievalLimit, c.RetrievalLimit, MaxRetrievalLimit)
	}

	if c.ChunkSize < 100 {
		return fmt.Errorf("%w: %d (must be at least 100)",
			ErrInvalidChunkSize, c.ChunkSize)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be between 1 and 65535)",
			ErrInvalidPostgresPort, c.PostgresPort)
	}

	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// API keys are read from the environment at client construction time;
	// check presence here for fail-fast startup.
	switch c.Provider {
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", ErrMissingAPIKey)
		}
	case ProviderGroq:
		if os.Getenv("GROQ_API_KEY") == "" {
			return fmt.Errorf("%w: GROQ_API_KEY environment variable not set", ErrMissingAPIKey)
		}
		// Embeddings still go through Gemini regardless of completion provider.
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", ErrMissingAPIKey)
		}
	}

	return nil
}
