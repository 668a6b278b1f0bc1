// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/larook/chatstream-gw/pkg/core/engine"
	"github.com/larook/chatstream-gw/pkg/core/state"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
)

// Handler implements the HTTP adapter.
type Handler struct {
	engine         *engine.Engine
	store          state.Store
	limiter        *RateLimiter
	allowedOrigins []string
	logger         *logging.Logger
	mux            *http.ServeMux
}

// New creates a new HTTP handler. A nil limiter disables rate limiting;
// an empty origin list disables CORS headers.
func New(eng *engine.Engine, store state.Store, limiter *RateLimiter, allowedOrigins []string, logger *logging.Logger) *Handler {
	h := &Handler{
		engine:         eng,
		store:          store,
		limiter:        limiter,
		allowedOrigins: allowedOrigins,
		logger:         logger,
		mux:            http.NewServeMux(),
	}

	// Register routes
	h.mux.HandleFunc("GET /health", h.handleHealth)

	// Chat API
	h.mux.HandleFunc("POST /v1/chat", h.handleChat)

	// Tenants API
	h.mux.HandleFunc("POST /v1/tenants", h.handleCreateTenant)
	h.mux.HandleFunc("GET /v1/tenants", h.handleListTenants)
	h.mux.HandleFunc("GET /v1/tenants/{id}", h.handleGetTenant)
	h.mux.HandleFunc("PUT /v1/tenants/{id}", h.handleUpdateTenant)
	h.mux.HandleFunc("DELETE /v1/tenants/{id}", h.handleDeleteTenant)

	// Agents API
	h.mux.HandleFunc("POST /v1/tenants/{id}/agents", h.handleCreateAgent)
	h.mux.HandleFunc("GET /v1/tenants/{id}/agents", h.handleListAgents)
	h.mux.HandleFunc("GET /v1/tenants/{id}/agents/{agent_id}", h.handleGetAgent)
	h.mux.HandleFunc("PUT /v1/tenants/{id}/agents/{agent_id}", h.handleUpdateAgent)
	h.mux.HandleFunc("DELETE /v1/tenants/{id}/agents/{agent_id}", h.handleDeleteAgent)

	// Conversations API
	h.mux.HandleFunc("GET /v1/tenants/{id}/conversations", h.handleListConversations)
	h.mux.HandleFunc("GET /v1/tenants/{id}/conversations/{conversation_id}", h.handleGetConversation)
	h.mux.HandleFunc("DELETE /v1/tenants/{id}/conversations/{conversation_id}", h.handleDeleteConversation)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	if h.applyCORS(w, r) {
		return
	}

	h.mux.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// writeEngineError maps engine failures to HTTP status codes: validation
// failures are the caller's fault, missing records are 404s, the rest are
// internal.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var vErr *engine.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, state.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "processing_error", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// generateID generates a unique ID with a prefix
func generateID(prefix string) string {
	b := make([]byte, 16)
	rand.Read(b)
	return prefix + hex.EncodeToString(b)
}
