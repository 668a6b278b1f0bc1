// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"github.com/larook/chatstream-gw/pkg/core/schema"
)

// ResolveTools merges tool declarations from the three precedence tiers
// into one ordered list. It is a pure function over its inputs.
//
// Tenant and agent lists are merged by identity key with agent entries
// winning. A nil requestOverride leaves that merge untouched; a non-nil
// override is merged on top, except that an explicit empty list replaces
// the result entirely — that is the caller's "disable tools for this
// turn" signal. Malformed entries are dropped silently at every level.
//
// After the merge, file_search defaults (vector store ids, result cap)
// from the most specific configured level are injected into any
// file_search entry lacking them; if no file_search entry exists but
// defaults are configured, one is synthesized.
func ResolveTools(tenantTools, agentTools []schema.ToolDefinition, requestOverride *[]schema.ToolDefinition, agentFS, tenantFS *schema.FileSearchDefaults) []schema.ToolDefinition {
	merged := mergeByIdentity(
		schema.NormalizeToolList(tenantTools),
		schema.NormalizeToolList(agentTools),
	)

	if requestOverride != nil {
		override := schema.NormalizeToolList(*requestOverride)
		if len(*requestOverride) == 0 {
			// Explicit empty override suppresses all tools, including
			// synthesized file_search defaults.
			return []schema.ToolDefinition{}
		}
		merged = mergeByIdentity(merged, override)
	}

	return injectFileSearchDefaults(merged, agentFS, tenantFS)
}

// mergeByIdentity overlays the second list onto the first. An overlay
// entry with an existing identity key replaces in place, keeping the
// original position; new keys append in overlay order.
func mergeByIdentity(base, overlay []schema.ToolDefinition) []schema.ToolDefinition {
	result := make([]schema.ToolDefinition, len(base))
	copy(result, base)

	index := make(map[string]int, len(result))
	for i, t := range result {
		index[t.IdentityKey()] = i
	}

	for _, t := range overlay {
		key := t.IdentityKey()
		if pos, ok := index[key]; ok {
			result[pos] = t
			continue
		}
		index[key] = len(result)
		result = append(result, t)
	}
	return result
}

// injectFileSearchDefaults fills missing vector_store_ids and
// max_num_results on file_search entries. Values already on the tool win,
// then agent-level defaults, then tenant-level.
func injectFileSearchDefaults(tools []schema.ToolDefinition, agentFS, tenantFS *schema.FileSearchDefaults) []schema.ToolDefinition {
	defaultIDs, defaultMax := collapseFileSearchDefaults(agentFS, tenantFS)

	found := false
	for i := range tools {
		if tools[i].Type != schema.ToolTypeFileSearch {
			continue
		}
		found = true
		if len(tools[i].VectorStoreIDs) == 0 && len(defaultIDs) > 0 {
			tools[i].VectorStoreIDs = append([]string(nil), defaultIDs...)
		}
		if tools[i].MaxNumResults == nil && defaultMax != nil {
			v := *defaultMax
			tools[i].MaxNumResults = &v
		}
	}

	if !found && (len(defaultIDs) > 0 || defaultMax != nil) {
		synthesized := schema.ToolDefinition{
			Type:           schema.ToolTypeFileSearch,
			VectorStoreIDs: append([]string(nil), defaultIDs...),
		}
		if defaultMax != nil {
			v := *defaultMax
			synthesized.MaxNumResults = &v
		}
		if synthesized.Normalize() {
			tools = append(tools, synthesized)
		}
	}

	return tools
}

// collapseFileSearchDefaults resolves each default field independently
// from the most specific level that carries it.
func collapseFileSearchDefaults(agentFS, tenantFS *schema.FileSearchDefaults) (ids []string, max *int) {
	if tenantFS != nil {
		ids = tenantFS.VectorStoreIDs
		max = tenantFS.MaxNumResults
	}
	if agentFS != nil {
		if len(agentFS.VectorStoreIDs) > 0 {
			ids = agentFS.VectorStoreIDs
		}
		if agentFS.MaxNumResults != nil {
			max = agentFS.MaxNumResults
		}
	}
	return ids, max
}
