// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/larook/chatstream-gw/pkg/core/schema"
)

// handleChat handles POST /v1/chat, dispatching to the streaming or
// non-streaming path based on the request's stream flag.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req schema.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse chat request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	if h.limiter != nil && req.ConversationID != "" && !h.limiter.Allow(req.ConversationID) {
		h.writeError(w, http.StatusTooManyRequests, "rate_limited",
			"Too many requests for this conversation, slow down")
		return
	}

	h.logger.Info("Processing chat request",
		"tenant_id", req.TenantID,
		"agent_id", req.AgentID,
		"conversation_id", req.ConversationID,
		"stream", req.Stream)

	if req.Stream {
		h.handleChatStream(w, r, &req)
		return
	}

	resp, err := h.engine.ProcessChat(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to process chat request", "error", err)
		h.writeEngineError(w, err)
		return
	}

	// The engine assigns an id when the client starts a new conversation.
	w.Header().Set("X-Conversation-ID", req.ConversationID)
	h.writeJSON(w, http.StatusOK, resp)
}

// handleChatStream handles SSE streaming for a chat turn.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request, req *schema.ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_not_supported", "Streaming not supported")
		return
	}

	events, err := h.engine.ProcessChatStream(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to start chat stream", "error", err)
		h.writeEngineError(w, err)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Conversation-ID", req.ConversationID)
	w.WriteHeader(http.StatusOK)

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("Failed to marshal event", "error", err)
			continue
		}

		fmt.Fprintf(w, "event: %s\n", event.EventType())
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	h.logger.Info("Chat streaming completed", "conversation_id", req.ConversationID)
}
