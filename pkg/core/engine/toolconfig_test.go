// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"reflect"
	"testing"

	"github.com/larook/chatstream-gw/pkg/core/schema"
)

func intPtr(i int) *int { return &i }

func fnTool(name string) schema.ToolDefinition {
	return schema.ToolDefinition{Type: schema.ToolTypeFunction, Name: name}
}

func TestResolveTools_AgentWinsOverTenant(t *testing.T) {
	desc := "tenant version"
	tenantTools := []schema.ToolDefinition{
		{Type: schema.ToolTypeFunction, Name: "lookup", Description: &desc},
		fnTool("tenant_only"),
	}
	agentDesc := "agent version"
	agentTools := []schema.ToolDefinition{
		{Type: schema.ToolTypeFunction, Name: "lookup", Description: &agentDesc},
	}

	got := ResolveTools(tenantTools, agentTools, nil, nil, nil)
	if len(got) != 2 {
		t.Fatalf("got %d tools, want 2", len(got))
	}
	if *got[0].Description != "agent version" {
		t.Errorf("agent entry should replace the tenant entry in place, got %q", *got[0].Description)
	}
	if got[1].Name != "tenant_only" {
		t.Errorf("tenant-only entry lost: %v", got)
	}
}

func TestResolveTools_ExplicitEmptyOverrideSuppressesAll(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("lookup")}
	empty := []schema.ToolDefinition{}
	tenantFS := &schema.FileSearchDefaults{VectorStoreIDs: []string{"vs_1"}}

	got := ResolveTools(tenantTools, nil, &empty, nil, tenantFS)
	if len(got) != 0 {
		t.Errorf("explicit empty override must suppress every tool including synthesized defaults, got %v", got)
	}
	if got == nil {
		t.Error("suppression yields an empty list, not nil, so the payload sends tools: []")
	}
}

func TestResolveTools_NilOverrideKeepsMerge(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("lookup")}
	got := ResolveTools(tenantTools, nil, nil, nil, nil)
	if len(got) != 1 || got[0].Name != "lookup" {
		t.Errorf("nil override must leave the merge untouched, got %v", got)
	}
}

func TestResolveTools_OverrideOfOnlyMalformedEntriesIsNotSuppression(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("lookup")}
	malformed := []schema.ToolDefinition{{Type: "function"}} // no name
	got := ResolveTools(tenantTools, nil, &malformed, nil, nil)
	if len(got) != 1 || got[0].Name != "lookup" {
		t.Errorf("a non-empty override of only malformed entries merges as nothing, got %v", got)
	}
}

func TestResolveTools_RequestOverrideMergesOnTop(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("a"), fnTool("b")}
	override := []schema.ToolDefinition{fnTool("b"), fnTool("c")}
	got := ResolveTools(tenantTools, nil, &override, nil, nil)

	names := make([]string, len(got))
	for i, tool := range got {
		names[i] = tool.Name
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Errorf("names = %v, want [a b c]", names)
	}
}

func TestResolveTools_FileSearchDefaultsInjected(t *testing.T) {
	// A request declares file_search with ids but no result cap; the
	// tenant carries a default cap.
	override := []schema.ToolDefinition{
		{Type: schema.ToolTypeFileSearch, VectorStoreIDs: []string{"vs_1"}},
	}
	tenantFS := &schema.FileSearchDefaults{MaxNumResults: intPtr(20)}

	got := ResolveTools(nil, nil, &override, nil, tenantFS)
	if len(got) != 1 {
		t.Fatalf("got %d tools, want 1", len(got))
	}
	fs := got[0]
	if !reflect.DeepEqual(fs.VectorStoreIDs, []string{"vs_1"}) {
		t.Errorf("vector_store_ids = %v, want [vs_1]", fs.VectorStoreIDs)
	}
	if fs.MaxNumResults == nil || *fs.MaxNumResults != 20 {
		t.Errorf("max_num_results = %v, want 20", fs.MaxNumResults)
	}
}

func TestResolveTools_FileSearchSynthesized(t *testing.T) {
	tenantFS := &schema.FileSearchDefaults{VectorStoreIDs: []string{"vs_7"}}
	got := ResolveTools(nil, nil, nil, nil, tenantFS)
	if len(got) != 1 || got[0].Type != schema.ToolTypeFileSearch {
		t.Fatalf("expected a synthesized file_search entry, got %v", got)
	}
	if !reflect.DeepEqual(got[0].VectorStoreIDs, []string{"vs_7"}) {
		t.Errorf("vector_store_ids = %v", got[0].VectorStoreIDs)
	}
}

func TestResolveTools_NoSynthesisWithoutDefaults(t *testing.T) {
	got := ResolveTools(nil, nil, nil, nil, nil)
	if len(got) != 0 {
		t.Errorf("no defaults configured, nothing should be synthesized: %v", got)
	}
}

func TestResolveTools_AgentDefaultsBeatTenantPerField(t *testing.T) {
	tenantFS := &schema.FileSearchDefaults{
		VectorStoreIDs: []string{"vs_tenant"},
		MaxNumResults:  intPtr(10),
	}
	agentFS := &schema.FileSearchDefaults{
		VectorStoreIDs: []string{"vs_agent"},
	}

	got := ResolveTools(nil, nil, nil, agentFS, tenantFS)
	if len(got) != 1 {
		t.Fatalf("expected synthesized entry, got %v", got)
	}
	fs := got[0]
	if !reflect.DeepEqual(fs.VectorStoreIDs, []string{"vs_agent"}) {
		t.Errorf("agent ids should win: %v", fs.VectorStoreIDs)
	}
	if fs.MaxNumResults == nil || *fs.MaxNumResults != 10 {
		t.Errorf("tenant cap should fill the field the agent left empty: %v", fs.MaxNumResults)
	}
}

func TestResolveTools_ExistingValuesBeatDefaults(t *testing.T) {
	override := []schema.ToolDefinition{
		{Type: schema.ToolTypeFileSearch, VectorStoreIDs: []string{"vs_own"}, MaxNumResults: intPtr(5)},
	}
	tenantFS := &schema.FileSearchDefaults{
		VectorStoreIDs: []string{"vs_default"},
		MaxNumResults:  intPtr(50),
	}

	got := ResolveTools(nil, nil, &override, nil, tenantFS)
	fs := got[0]
	if !reflect.DeepEqual(fs.VectorStoreIDs, []string{"vs_own"}) || *fs.MaxNumResults != 5 {
		t.Errorf("values on the tool must win over defaults: %+v", fs)
	}
}

func TestResolveTools_Idempotent(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("a"), {Type: schema.ToolTypeFileSearch}}
	agentTools := []schema.ToolDefinition{fnTool("b")}
	tenantFS := &schema.FileSearchDefaults{VectorStoreIDs: []string{"vs_1"}, MaxNumResults: intPtr(20)}

	once := ResolveTools(tenantTools, agentTools, nil, nil, tenantFS)
	twice := ResolveTools(once, agentTools, nil, nil, tenantFS)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("re-merging a merged list must be a no-op:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestResolveTools_PureFunction(t *testing.T) {
	tenantTools := []schema.ToolDefinition{fnTool("a")}
	agentTools := []schema.ToolDefinition{fnTool("a")}
	snapshot := make([]schema.ToolDefinition, len(tenantTools))
	copy(snapshot, tenantTools)

	ResolveTools(tenantTools, agentTools, nil, nil, nil)
	if !reflect.DeepEqual(tenantTools, snapshot) {
		t.Error("inputs must not be mutated")
	}
}

func TestMergeByIdentity_DistinctFunctionsCoexist(t *testing.T) {
	base := []schema.ToolDefinition{fnTool("a")}
	overlay := []schema.ToolDefinition{fnTool("b")}
	got := mergeByIdentity(base, overlay)
	if len(got) != 2 {
		t.Errorf("distinct function names must coexist, got %v", got)
	}
}
