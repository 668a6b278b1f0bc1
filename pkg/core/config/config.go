// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/larook/chatstream-gw/pkg/observability/logging"
)

// Config represents the main configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Storage   StorageConfig   `yaml:"storage"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   logging.Config  `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ProviderConfig selects and configures the model provider transport.
type ProviderConfig struct {
	Type    string        `yaml:"type"`     // "responses" (default), "chat_completions" or "mock"
	BaseURL string        `yaml:"base_url"` // e.g. "https://api.openai.com/v1"
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// FileSearchConfig carries the global file_search defaults injected into
// tool lists that lack them.
type FileSearchConfig struct {
	VectorStoreIDs []string `yaml:"vector_store_ids"`
	MaxNumResults  *int     `yaml:"max_num_results"`
}

// DefaultsConfig is the tenant/global tier of the precedence chain: the
// values every request bottoms out on when neither the request nor the
// agent profile nor the stored tenant settings override them.
type DefaultsConfig struct {
	Model            string           `yaml:"model"`
	FallbackModel    string           `yaml:"fallback_model"`
	Temperature      *float64         `yaml:"temperature"`
	TopP             *float64         `yaml:"top_p"`
	MaxOutputTokens  *int             `yaml:"max_output_tokens"`
	SystemPrompt     string           `yaml:"system_prompt"`
	MaxMessages      int              `yaml:"max_messages"`
	MaxMessageLength int              `yaml:"max_message_length"`
	FileSearch       FileSearchConfig `yaml:"file_search"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Type string `yaml:"type"` // "memory" (default), "sqlite" or "postgres"
	Path string `yaml:"path"` // sqlite database path
	DSN  string `yaml:"dsn"`  // postgres connection string
}

// WebSearchConfig configures the built-in web_search tool backend.
type WebSearchConfig struct {
	Provider string `yaml:"provider"` // "brave", "tavily" or "" (disabled)
	APIKey   string `yaml:"api_key"`
}

// RateLimitConfig bounds requests per conversation in the HTTP adapter.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Disabled bool          `yaml:"disabled"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides loads environment variables over the file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DSN = v
		cfg.Storage.Type = "postgres"
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WEB_SEARCH_API_KEY"); v != "" {
		cfg.WebSearch.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "responses"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 60 * time.Second
	}

	if cfg.Defaults.Model == "" {
		cfg.Defaults.Model = "gpt-4o-mini"
	}
	if cfg.Defaults.FallbackModel == "" {
		cfg.Defaults.FallbackModel = "gpt-4o-mini"
	}
	if cfg.Defaults.MaxMessages == 0 {
		cfg.Defaults.MaxMessages = 50
	}
	if cfg.Defaults.MaxMessageLength == 0 {
		cfg.Defaults.MaxMessageLength = 4000
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}

	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 20
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
}
