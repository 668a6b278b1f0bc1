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

// handleCreateTenant handles POST /v1/tenants
func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var tenant schema.TenantSettings
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		h.logger.Error("Failed to parse tenant request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if tenant.ID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "tenant id is required")
		return
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	if err := h.store.CreateTenant(r.Context(), &tenant); err != nil {
		h.logger.Error("Failed to create tenant", "tenant_id", tenant.ID, "error", err)
		if errors.Is(err, state.ErrAlreadyExists) {
			h.writeError(w, http.StatusConflict, "already_exists", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "creation_error", err.Error())
		return
	}

	h.logger.Info("Tenant created", "tenant_id", tenant.ID)
	h.writeJSON(w, http.StatusCreated, tenant)
}

// handleListTenants handles GET /v1/tenants
func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tenants", "error", err)
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
	})
}

// handleGetTenant handles GET /v1/tenants/{id}
func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	tenant, err := h.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, tenant)
}

// handleUpdateTenant handles PUT /v1/tenants/{id}
func (h *Handler) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	var tenant schema.TenantSettings
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		h.logger.Error("Failed to parse tenant request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	tenant.ID = tenantID
	tenant.UpdatedAt = time.Now()

	if err := h.store.UpdateTenant(r.Context(), &tenant); err != nil {
		h.logger.Error("Failed to update tenant", "tenant_id", tenantID, "error", err)
		if errors.Is(err, state.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "update_error", err.Error())
		return
	}

	h.logger.Info("Tenant updated", "tenant_id", tenantID)
	h.writeJSON(w, http.StatusOK, tenant)
}

// handleDeleteTenant handles DELETE /v1/tenants/{id}
func (h *Handler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")

	if err := h.store.DeleteTenant(r.Context(), tenantID); err != nil {
		h.logger.Error("Failed to delete tenant", "tenant_id", tenantID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "deletion_error", err.Error())
		return
	}

	h.logger.Info("Tenant deleted", "tenant_id", tenantID)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      tenantID,
		"deleted": true,
	})
}
