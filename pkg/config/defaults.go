package config

import (
	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/embeddings/hashing"
)

const (
	defaultStorageProvider = "sqlite"

	defaultEmbeddingProvider = "hashing"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "embeddinggemma"
	defaultEmbeddingCache    = 1024

	defaultMaxSteps = 64
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: hashing.DefaultDimensions,
			CacheSize:  defaultEmbeddingCache,
		},
		Memory: MemoryConfig{
			RecallK: agent.DefaultRecallK,
		},
		Routing: RoutingConfig{
			FinanceKeywords: append([]string(nil), agent.DefaultFinanceKeywords...),
			WeatherKeywords: append([]string(nil), agent.DefaultWeatherKeywords...),
		},
		Graph: GraphConfig{
			MaxSteps: defaultMaxSteps,
		},
	}
}
