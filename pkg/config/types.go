package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent switchyard configuration stored as
// config.toml in the .switchyard/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Memory    MemoryConfig    `toml:"memory"`
	Routing   RoutingConfig   `toml:"routing"`
	Graph     GraphConfig     `toml:"graph"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// StorageConfig selects the structured log backend.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	CacheSize  int64  `toml:"cache_size,omitempty"`
}

// MemoryConfig holds hybrid memory settings.
type MemoryConfig struct {
	RecallK int `toml:"recall_k,omitempty"`
}

// RoutingConfig holds the keyword lists of the classify node.
type RoutingConfig struct {
	FinanceKeywords []string `toml:"finance_keywords,omitempty"`
	WeatherKeywords []string `toml:"weather_keywords,omitempty"`
}

// GraphConfig holds workflow execution settings.
type GraphConfig struct {
	MaxSteps int `toml:"max_steps,omitempty"`
}

// MetricsConfig holds the prometheus endpoint settings. An empty Listen
// disables the endpoint.
type MetricsConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.cache_size": {
		get: func(c *Config) string { return formatInt(int(c.Embedding.CacheSize)) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for embedding.cache_size: %q", v)
			}
			c.Embedding.CacheSize = n
			return nil
		},
	},
	"memory.recall_k": {
		get: func(c *Config) string { return formatInt(c.Memory.RecallK) },
		set: func(c *Config, v string) error {
			n, err := parsePositive("memory.recall_k", v)
			if err != nil {
				return err
			}
			c.Memory.RecallK = n
			return nil
		},
	},
	"routing.finance_keywords": {
		get: func(c *Config) string { return strings.Join(c.Routing.FinanceKeywords, ",") },
		set: func(c *Config, v string) error { c.Routing.FinanceKeywords = splitList(v); return nil },
	},
	"routing.weather_keywords": {
		get: func(c *Config) string { return strings.Join(c.Routing.WeatherKeywords, ",") },
		set: func(c *Config, v string) error { c.Routing.WeatherKeywords = splitList(v); return nil },
	},
	"graph.max_steps": {
		get: func(c *Config) string { return formatInt(c.Graph.MaxSteps) },
		set: func(c *Config, v string) error {
			n, err := parsePositive("graph.max_steps", v)
			if err != nil {
				return err
			}
			c.Graph.MaxSteps = n
			return nil
		},
	},
	"metrics.listen": {
		get: func(c *Config) string { return c.Metrics.Listen },
		set: func(c *Config, v string) error { c.Metrics.Listen = v; return nil },
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parsePositive(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %q (must be a positive integer)", key, v)
	}
	return n, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
