// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"
)

// handleCreateAgent handles POST /v1/tenants/{id}/agents
func (h *Handler) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	var agent schema.AgentProfile
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		h.logger.Error("Failed to parse agent request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	agent.TenantID = tenantID
	if agent.ID == "" {
		agent.ID = generateID("agent_")
	}

	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	if err := h.store.CreateAgent(r.Context(), &agent); err != nil {
		h.logger.Error("Failed to create agent", "tenant_id", tenantID, "agent_id", agent.ID, "error", err)
		if errors.Is(err, state.ErrAlreadyExists) {
			h.writeError(w, http.StatusConflict, "already_exists", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "creation_error", err.Error())
		return
	}

	h.logger.Info("Agent created", "tenant_id", tenantID, "agent_id", agent.ID)
	h.writeJSON(w, http.StatusCreated, agent)
}

// handleListAgents handles GET /v1/tenants/{id}/agents
func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	agents, err := h.store.ListAgents(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list agents", "tenant_id", tenantID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": agents,
	})
}

// handleGetAgent handles GET /v1/tenants/{id}/agents/{agent_id}
func (h *Handler) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	agentID := r.PathValue("agent_id")

	agent, err := h.store.GetAgent(r.Context(), tenantID, agentID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, agent)
}

// handleUpdateAgent handles PUT /v1/tenants/{id}/agents/{agent_id}
func (h *Handler) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	agentID := r.PathValue("agent_id")

	var agent schema.AgentProfile
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		h.logger.Error("Failed to parse agent request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	agent.TenantID = tenantID
	agent.ID = agentID
	agent.UpdatedAt = time.Now()

	if err := h.store.UpdateAgent(r.Context(), &agent); err != nil {
		h.logger.Error("Failed to update agent", "tenant_id", tenantID, "agent_id", agentID, "error", err)
		if errors.Is(err, state.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "update_error", err.Error())
		return
	}

	h.logger.Info("Agent updated", "tenant_id", tenantID, "agent_id", agentID)
	h.writeJSON(w, http.StatusOK, agent)
}

// handleDeleteAgent handles DELETE /v1/tenants/{id}/agents/{agent_id}
func (h *Handler) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	agentID := r.PathValue("agent_id")

	if err := h.store.DeleteAgent(r.Context(), tenantID, agentID); err != nil {
		h.logger.Error("Failed to delete agent", "tenant_id", tenantID, "agent_id", agentID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "deletion_error", err.Error())
		return
	}

	h.logger.Info("Agent deleted", "tenant_id", tenantID, "agent_id", agentID)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      agentID,
		"deleted": true,
	})
}
