// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"
	"strings"
)

// applyCORS sets cross-origin headers for browser clients and answers
// preflight requests. It reports whether the request was fully handled.
// Embedded chat widgets call the gateway from arbitrary pages, so the
// allowed-origin list is configuration, defaulting to "*".
func (h *Handler) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if allowed := h.resolveOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// resolveOrigin returns the Allow-Origin value for a request origin, or
// empty when the origin is not allowed.
func (h *Handler) resolveOrigin(origin string) string {
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}
