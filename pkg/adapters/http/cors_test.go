// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/config"
	"github.com/larook/chatstream-gw/pkg/core/engine"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
	"github.com/larook/chatstream-gw/pkg/storage/memory"
)

func newCORSHandler(t *testing.T, origins []string) *Handler {
	t.Helper()
	store := memory.New()
	executor := engine.NewToolExecutor(logging.Nop())
	eng := engine.New(config.Default(), store, api.NewMockClient(), executor, logging.Nop())
	return New(eng, store, nil, origins, logging.Nop())
}

func TestCORS_WildcardOrigin(t *testing.T) {
	h := newCORSHandler(t, []string{"*"})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://widget.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORS_ExplicitOriginList(t *testing.T) {
	h := newCORSHandler(t, []string{"https://app.example.com"})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := newCORSHandler(t, []string{"https://app.example.com"})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want no header", got)
	}
	// The request itself still succeeds; only the browser gate is withheld.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newCORSHandler(t, []string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat", nil)
	req.Header.Set("Origin", "https://widget.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight missing Allow-Methods header")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("preflight missing Allow-Headers header")
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	h := newCORSHandler(t, []string{"*"})

	rec := doJSON(t, h, "GET", "/health", "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for a non-browser request", got)
	}
}
