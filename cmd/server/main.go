// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/larook/chatstream-gw/pkg/adapters/http"
	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/config"
	"github.com/larook/chatstream-gw/pkg/core/engine"
	"github.com/larook/chatstream-gw/pkg/core/state"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
	"github.com/larook/chatstream-gw/pkg/websearch"

	// Storage backends self-register.
	_ "github.com/larook/chatstream-gw/pkg/storage/memory"
	_ "github.com/larook/chatstream-gw/pkg/storage/postgres"
	_ "github.com/larook/chatstream-gw/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 8080, "HTTP port to listen on")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Print version
	if *version {
		fmt.Printf("Chatstream Gateway Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	// Override port if specified
	if *port != 8080 {
		cfg.Server.Port = *port
	}

	// Initialize logger
	logger := logging.New(cfg.Logging)
	logger.Info("Starting Chatstream Gateway Server",
		"version", Version,
		"build_time", BuildTime)

	initCtx := context.Background()

	// Initialize storage
	store, err := state.Backends.New(initCtx, cfg.Storage.Type, map[string]string{
		"path": cfg.Storage.Path,
		"dsn":  cfg.Storage.DSN,
	})
	if err != nil {
		logger.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized storage", "type", cfg.Storage.Type)

	// Initialize provider client
	var client api.ProviderClient
	switch cfg.Provider.Type {
	case "chat_completions":
		client = api.NewChatCompletionsClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	case "mock":
		client = api.NewMockClient()
	default:
		client = api.NewResponsesClient(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	}
	logger.Info("Initialized provider client", "type", cfg.Provider.Type)

	// Initialize web search provider (optional)
	var search websearch.Provider
	if cfg.WebSearch.Provider != "" {
		search, err = websearch.Providers.New(initCtx, cfg.WebSearch.Provider, map[string]string{
			"api_key": cfg.WebSearch.APIKey,
		})
		if err != nil {
			logger.Error("Failed to initialize web search provider", "error", err)
			os.Exit(1)
		}
		logger.Info("Initialized web search provider", "provider", cfg.WebSearch.Provider)
	}

	// Initialize tool executor with built-in functions
	executor := engine.NewToolExecutor(logger)
	executor.RegisterBuiltins(search)

	// Initialize engine
	eng := engine.New(cfg, store, client, executor, logger)
	logger.Info("Initialized engine")

	// Initialize rate limiter
	var limiter *httpAdapter.RateLimiter
	if !cfg.RateLimit.Disabled {
		limiter = httpAdapter.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info("Initialized rate limiter",
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window)
	}

	// Initialize HTTP adapter
	handler := httpAdapter.New(eng, store, limiter, cfg.Server.AllowedOrigins, logger)
	logger.Info("Initialized HTTP adapter")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
