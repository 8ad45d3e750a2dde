package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Embedding configuration (OpenAI-compatible protocol)
	// All providers (siliconflow, openai, ollama) use the same config
	EmbeddingProvider string // Provider identifier: siliconflow, openai, ollama
	EmbeddingModel    string // Model name, must produce vectors of the default dimension
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string // Optional, has default per provider

	// Qdrant configuration
	QdrantHost string
	QdrantPort int

	Mode    string
	Addr    string
	Version string
	Port    int
}

// Provider default configurations for embeddings.
// Used when the base URL or model is not explicitly set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "BAAI/bge-small-en-v1.5",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "text-embedding-3-small",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "all-minilm",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Qdrant connection. Bare QDRANT_* names are accepted as a fallback so
	// the service can share an environment with other Qdrant consumers.
	p.QdrantHost = getEnvOrDefault("VECTORSMITH_QDRANT_HOST", getEnvOrDefault("QDRANT_HOST", "localhost"))
	p.QdrantPort = getEnvOrDefaultInt("VECTORSMITH_QDRANT_PORT", getEnvOrDefaultInt("QDRANT_PORT", 6334))

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("VECTORSMITH_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("VECTORSMITH_EMBEDDING_MODEL", "")
	p.EmbeddingAPIKey = getEnvOrDefault("VECTORSMITH_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("VECTORSMITH_EMBEDDING_BASE_URL", "")

	if _, ok := embeddingProviderDefaults[p.EmbeddingProvider]; !ok {
		slog.Warn("Unknown embedding provider, using default: siliconflow", "provider", p.EmbeddingProvider)
		p.EmbeddingProvider = "siliconflow"
	}
	if defaults, ok := embeddingProviderDefaults[p.EmbeddingProvider]; ok {
		if p.EmbeddingBaseURL == "" {
			p.EmbeddingBaseURL = defaults.BaseURL
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = defaults.Model
		}
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.QdrantHost == "" {
		return errors.New("qdrant host must not be empty")
	}
	if p.QdrantPort <= 0 || p.QdrantPort > 65535 {
		return errors.Errorf("invalid qdrant port %d", p.QdrantPort)
	}
	return nil
}
