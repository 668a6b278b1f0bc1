// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"
)

// handleListConversations handles GET /v1/tenants/{id}/conversations
func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	convs, err := h.store.ListConversations(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list conversations", "tenant_id", tenantID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}

	// Listings carry metadata only; history is fetched per conversation.
	type summary struct {
		ID           string `json:"id"`
		MessageCount int    `json:"message_count"`
		CreatedAt    int64  `json:"created_at"`
		UpdatedAt    int64  `json:"updated_at"`
	}
	summaries := make([]summary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, summary{
			ID:           conv.ID,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt.Unix(),
			UpdatedAt:    conv.UpdatedAt.Unix(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": summaries,
	})
}

// handleGetConversation handles GET /v1/tenants/{id}/conversations/{conversation_id}
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	conversationID := r.PathValue("conversation_id")

	messages, err := h.store.LoadConversation(r.Context(), tenantID, conversationID)
	if err != nil {
		h.logger.Error("Failed to load conversation",
			"tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "load_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       conversationID,
		"messages": messages,
	})
}

// handleDeleteConversation handles DELETE /v1/tenants/{id}/conversations/{conversation_id}
func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	conversationID := r.PathValue("conversation_id")

	if err := h.store.DeleteConversation(r.Context(), tenantID, conversationID); err != nil {
		h.logger.Error("Failed to delete conversation",
			"tenant_id", tenantID, "conversation_id", conversationID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "deletion_error", err.Error())
		return
	}

	h.logger.Info("Conversation deleted", "tenant_id", tenantID, "conversation_id", conversationID)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      conversationID,
		"deleted": true,
	})
}
