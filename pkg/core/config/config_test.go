// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
provider:
  type: chat_completions
  base_url: http://localhost:11434/v1
defaults:
  model: gpt-4.1
  max_messages: 10
storage:
  type: sqlite
  path: /tmp/chat.db
rate_limit:
  requests: 5
  window: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Provider.Type != "chat_completions" {
		t.Errorf("provider type = %q", cfg.Provider.Type)
	}
	if cfg.Defaults.Model != "gpt-4.1" {
		t.Errorf("model = %q", cfg.Defaults.Model)
	}
	if cfg.Defaults.MaxMessages != 10 {
		t.Errorf("max messages = %d", cfg.Defaults.MaxMessages)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.Path != "/tmp/chat.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.RateLimit.Requests != 5 || cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}

	// Unset fields still pick up defaults.
	if cfg.Defaults.FallbackModel != "gpt-4o-mini" {
		t.Errorf("fallback model = %q", cfg.Defaults.FallbackModel)
	}
	if cfg.Defaults.MaxMessageLength != 4000 {
		t.Errorf("max message length = %d", cfg.Defaults.MaxMessageLength)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Provider.Type != "responses" {
		t.Errorf("provider type = %q", cfg.Provider.Type)
	}
	if cfg.Defaults.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.Defaults.Model)
	}
	if cfg.Defaults.MaxMessages != 50 {
		t.Errorf("max messages = %d", cfg.Defaults.MaxMessages)
	}
	if cfg.Storage.Type != "memory" && cfg.Storage.Type != "postgres" {
		// DATABASE_URL in the environment flips the backend.
		t.Errorf("storage type = %q", cfg.Storage.Type)
	}
	if cfg.RateLimit.Requests != 20 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("allowed origins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Default()
	if cfg.Provider.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.AllowedOrigins) != 2 ||
		cfg.Server.AllowedOrigins[0] != want[0] || cfg.Server.AllowedOrigins[1] != want[1] {
		t.Errorf("allowed origins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
}
