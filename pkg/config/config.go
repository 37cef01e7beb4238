package config

import (
	"fmt"
	"os"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache/redis"
	"gopkg.in/yaml.v3"
)

// Config holds all scholarcache configuration.
type Config struct {
	// Backend selects where entries live: "sqlite" or "redis".
	Backend string       `yaml:"backend"`
	DBPath  string       `yaml:"db_path"`
	Redis   redis.Config `yaml:"redis"`
	Cache   cache.Config `yaml:"cache"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: "sqlite",
		DBPath:  "scholarcache.db",
		Redis: redis.Config{
			Addr:   "localhost:6379",
			Prefix: "ragcache",
		},
		Cache: cache.DefaultConfig(),
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
