package ai

import (
	"github.com/pkg/errors"

	"github.com/vectorsmith/vectorsmith/internal/profile"
)

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// NewEmbeddingConfigFromProfile creates embedding config from profile.
// Dimensions is pinned to the store's vector size; the configured model
// must produce vectors of that length.
func NewEmbeddingConfigFromProfile(p *profile.Profile, dimensions int) *EmbeddingConfig {
	return &EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: dimensions,
	}
}

// Validate checks embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Dimensions <= 0 {
		return errors.Errorf("invalid embedding dimensions %d", c.Dimensions)
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return errors.Errorf("embedding API key is required for provider %s", c.Provider)
	}
	return nil
}
