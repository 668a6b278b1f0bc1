// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/config"
	"github.com/larook/chatstream-gw/pkg/core/engine"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
	"github.com/larook/chatstream-gw/pkg/storage/memory"
)

func newTestHandler(t *testing.T, limiter *RateLimiter) (*Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	executor := engine.NewToolExecutor(logging.Nop())
	eng := engine.New(config.Default(), store, api.NewMockClient(), executor, logging.Nop())
	return New(eng, store, limiter, []string{"*"}, logging.Nop()), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return out
}

func errType(body map[string]interface{}) string {
	errObj, _ := body["error"].(map[string]interface{})
	s, _ := errObj["type"].(string)
	return s
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "healthy" {
		t.Errorf("status field = %v", got)
	}
}

func TestChat_NonStreaming(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "POST", "/v1/chat", `{"tenant_id":"t1","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Conversation-ID") == "" {
		t.Error("missing X-Conversation-ID header")
	}
	body := decodeBody(t, rec)
	if resp, _ := body["response"].(string); !strings.Contains(resp, "hi") {
		t.Errorf("response = %v", body)
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "POST", "/v1/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if errType(decodeBody(t, rec)) != "invalid_request" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestChat_MissingTenantIsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "POST", "/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChat_UnknownAgentIsNotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "POST", "/v1/chat", `{"tenant_id":"t1","agent_id":"ghost","message":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChat_RateLimited(t *testing.T) {
	h, _ := newTestHandler(t, NewRateLimiter(1, time.Minute))
	body := `{"tenant_id":"t1","conversation_id":"c1","message":"hi"}`

	if rec := doJSON(t, h, "POST", "/v1/chat", body); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := doJSON(t, h, "POST", "/v1/chat", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if errType(decodeBody(t, rec)) != "rate_limited" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestChat_Streaming(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := doJSON(t, h, "POST", "/v1/chat", `{"tenant_id":"t1","message":"hi","stream":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Header().Get("X-Conversation-ID") == "" {
		t.Error("missing X-Conversation-ID header")
	}

	body := rec.Body.String()
	for _, frame := range []string{"event: start\n", "event: chunk\n", "event: done\n"} {
		if !strings.Contains(body, frame) {
			t.Errorf("stream missing %q:\n%s", frame, body)
		}
	}
}

func TestTenantCRUDOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, "POST", "/v1/tenants", `{"id":"t1","name":"Acme"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/v1/tenants", `{"id":"t1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/v1/tenants", `{"name":"no id"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without id status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["name"]; got != "Acme" {
		t.Errorf("name = %v", got)
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, "PUT", "/v1/tenants/t1", `{"name":"Acme v2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "PUT", "/v1/tenants/ghost", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/v1/tenants", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	tenants, _ := decodeBody(t, rec)["tenants"].([]interface{})
	if len(tenants) != 1 {
		t.Errorf("tenants = %v", tenants)
	}

	rec = doJSON(t, h, "DELETE", "/v1/tenants/t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/v1/tenants/t1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestAgentCRUDOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, "POST", "/v1/tenants/t1/agents", `{"model":"gpt-4.1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	agentID, _ := created["id"].(string)
	if !strings.HasPrefix(agentID, "agent_") {
		t.Fatalf("generated id = %q", agentID)
	}
	if created["tenant_id"] != "t1" {
		t.Errorf("tenant_id = %v", created["tenant_id"])
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/t1/agents/"+agentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["model"]; got != "gpt-4.1" {
		t.Errorf("model = %v", got)
	}

	rec = doJSON(t, h, "PUT", "/v1/tenants/t1/agents/"+agentID, `{"model":"gpt-4o"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/t1/agents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = doJSON(t, h, "DELETE", "/v1/tenants/t1/agents/"+agentID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/v1/tenants/t1/agents/"+agentID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, "POST", "/v1/chat", `{"tenant_id":"t1","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	convID := rec.Header().Get("X-Conversation-ID")

	rec = doJSON(t, h, "GET", "/v1/tenants/t1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	convs, _ := decodeBody(t, rec)["conversations"].([]interface{})
	if len(convs) != 1 {
		t.Fatalf("conversations = %v", convs)
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/t1/conversations/"+convID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	messages, _ := decodeBody(t, rec)["messages"].([]interface{})
	if len(messages) != 2 {
		t.Errorf("messages = %v", messages)
	}

	rec = doJSON(t, h, "DELETE", "/v1/tenants/t1/conversations/"+convID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/v1/tenants/t1/conversations/"+convID, "")
	messages, _ = decodeBody(t, rec)["messages"].([]interface{})
	if len(messages) != 0 {
		t.Errorf("messages after delete = %v", messages)
	}
}
