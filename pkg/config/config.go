// Package config loads the library's YAML configuration with sensible
// defaults. API keys are referenced by environment variable name, never
// stored in the file.
package config

import (
	"errors"
	"os"

	"github.com/supportkit/kbase/pkg/store"
	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the embedding provider and client.
type EmbedderConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxAttempts int    `yaml:"max_attempts"`
	ChunkSize   int    `yaml:"chunk_size"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connection_string,omitempty"`
	Username         string `yaml:"username,omitempty"`
	Password         string `yaml:"password,omitempty"`
	DBName           string `yaml:"db_name,omitempty"`
	Host             string `yaml:"host,omitempty"`
	Port             int    `yaml:"port,omitempty"`
	Collection       string `yaml:"collection,omitempty"`
	VectorSize       uint64 `yaml:"vector_size,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`
}

// Load reads a config from path. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// StoreConfig converts the YAML store section into a factory config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Type:             store.Type(c.Store.Type),
		ConnectionString: c.Store.ConnectionString,
		Username:         c.Store.Username,
		Password:         c.Store.Password,
		DBName:           c.Store.DBName,
		Host:             c.Store.Host,
		Port:             c.Store.Port,
		Collection:       c.Store.Collection,
		VectorSize:       c.Store.VectorSize,
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = string(store.TypeInMemory)
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-large"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.MaxAttempts == 0 {
		cfg.Embedder.MaxAttempts = 5
	}
	if cfg.Embedder.ChunkSize == 0 {
		cfg.Embedder.ChunkSize = 100
	}
}
