// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestToolDefinition_IdentityKey(t *testing.T) {
	tests := []struct {
		name string
		tool ToolDefinition
		want string
	}{
		{"function", ToolDefinition{Type: "function", Name: "get_weather"}, "function:get_weather"},
		{"file search", ToolDefinition{Type: "file_search"}, "file_search"},
		{"code interpreter", ToolDefinition{Type: "code_interpreter"}, "code_interpreter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tool.IdentityKey(); got != tt.want {
				t.Errorf("IdentityKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolDefinition_Normalize_Function(t *testing.T) {
	tests := []struct {
		name string
		tool ToolDefinition
		keep bool
	}{
		{"valid name", ToolDefinition{Type: "function", Name: "get_weather"}, true},
		{"empty name", ToolDefinition{Type: "function"}, false},
		{"name with spaces", ToolDefinition{Type: "function", Name: "get weather"}, false},
		{"name too long", ToolDefinition{Type: "function", Name: strings.Repeat("a", 65)}, false},
		{"name at limit", ToolDefinition{Type: "function", Name: strings.Repeat("a", 64)}, true},
		{"unknown type", ToolDefinition{Type: "retrieval"}, false},
		{"empty type", ToolDefinition{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tool.Normalize(); got != tt.keep {
				t.Errorf("Normalize() = %v, want %v", got, tt.keep)
			}
		})
	}
}

func TestToolDefinition_Normalize_TruncatesDescription(t *testing.T) {
	tool := ToolDefinition{
		Type:        "function",
		Name:        "f",
		Description: strPtr(strings.Repeat("x", 600)),
	}
	if !tool.Normalize() {
		t.Fatal("expected tool to be kept")
	}
	if len(*tool.Description) != 512 {
		t.Errorf("description length = %d, want 512", len(*tool.Description))
	}
}

func TestToolDefinition_Normalize_SanitizesParameters(t *testing.T) {
	// Build an object nested beyond the depth limit.
	deep := map[string]interface{}{"leaf": "v"}
	for i := 0; i < 15; i++ {
		deep = map[string]interface{}{"nested": deep}
	}

	tool := ToolDefinition{
		Type: "function",
		Name: "f",
		Parameters: map[string]interface{}{
			"long_string": strings.Repeat("s", 3000),
			"number":      1.5,
			"flag":        true,
			"nothing":     nil,
			"list":        []interface{}{"a", 2.0, func() {}},
			"deep":        deep,
			"unsupported": make(chan int),
		},
	}
	if !tool.Normalize() {
		t.Fatal("expected tool to be kept")
	}

	if s := tool.Parameters["long_string"].(string); len(s) != 2000 {
		t.Errorf("string truncated to %d, want 2000", len(s))
	}
	if _, ok := tool.Parameters["unsupported"]; ok {
		t.Error("unsupported value kind should be dropped")
	}
	if list := tool.Parameters["list"].([]interface{}); len(list) != 2 {
		t.Errorf("list kept %d entries, want 2", len(list))
	}
	if _, ok := tool.Parameters["nothing"]; !ok {
		t.Error("null values should be kept")
	}
}

func TestToolDefinition_Normalize_FileSearch(t *testing.T) {
	tool := ToolDefinition{
		Type:           "file_search",
		VectorStoreIDs: []string{"vs_1", "bad id!", "vs_1", "vs_2"},
		MaxNumResults:  intPtr(20),
		// Function fields do not belong on file_search.
		Name: "leaked",
	}
	if !tool.Normalize() {
		t.Fatal("expected tool to be kept")
	}
	if len(tool.VectorStoreIDs) != 2 || tool.VectorStoreIDs[0] != "vs_1" || tool.VectorStoreIDs[1] != "vs_2" {
		t.Errorf("vector store ids = %v, want [vs_1 vs_2]", tool.VectorStoreIDs)
	}
	if tool.Name != "" {
		t.Error("function fields should be cleared on file_search tools")
	}
}

func TestToolDefinition_Normalize_MaxNumResultsBounds(t *testing.T) {
	tests := []struct {
		value int
		keep  bool
	}{
		{0, false},
		{1, true},
		{200, true},
		{201, false},
		{-5, false},
	}
	for _, tt := range tests {
		tool := ToolDefinition{Type: "file_search", MaxNumResults: intPtr(tt.value)}
		tool.Normalize()
		if kept := tool.MaxNumResults != nil; kept != tt.keep {
			t.Errorf("max_num_results=%d kept=%v, want %v", tt.value, kept, tt.keep)
		}
	}
}

func TestToolDefinition_Normalize_CodeInterpreterClearsFields(t *testing.T) {
	tool := ToolDefinition{
		Type:           "code_interpreter",
		Name:           "leaked",
		VectorStoreIDs: []string{"vs_1"},
	}
	if !tool.Normalize() {
		t.Fatal("expected tool to be kept")
	}
	if tool.Name != "" || tool.VectorStoreIDs != nil {
		t.Error("code_interpreter should carry no fields")
	}
}

func TestNormalizeToolList_LastWinsKeepsPosition(t *testing.T) {
	desc1 := "first"
	desc2 := "second"
	tools := []ToolDefinition{
		{Type: "function", Name: "a", Description: &desc1},
		{Type: "code_interpreter"},
		{Type: "function", Name: "a", Description: &desc2},
	}
	got := NormalizeToolList(tools)
	if len(got) != 2 {
		t.Fatalf("got %d tools, want 2", len(got))
	}
	if got[0].Name != "a" || *got[0].Description != "second" {
		t.Errorf("duplicate should replace in place with the later entry, got %+v", got[0])
	}
	if got[1].Type != "code_interpreter" {
		t.Errorf("position of non-duplicate changed: %+v", got[1])
	}
}

func TestNormalizeToolList_DropsMalformed(t *testing.T) {
	tools := []ToolDefinition{
		{Type: "function"},        // no name
		{Type: "web_browse"},      // unknown type
		{Type: "function", Name: "ok"},
	}
	got := NormalizeToolList(tools)
	if len(got) != 1 || got[0].Name != "ok" {
		t.Errorf("got %v, want only the valid entry", got)
	}
}

func TestNormalizeToolList_NilStaysNil(t *testing.T) {
	if got := NormalizeToolList(nil); got != nil {
		t.Errorf("nil input should stay nil, got %v", got)
	}
}

func TestToolDefinition_UnmarshalJSON_Flat(t *testing.T) {
	data := `{"type":"file_search","vector_store_ids":["vs_1"],"max_num_results":10}`
	var tool ToolDefinition
	if err := json.Unmarshal([]byte(data), &tool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Type != "file_search" || len(tool.VectorStoreIDs) != 1 || *tool.MaxNumResults != 10 {
		t.Errorf("parsed = %+v", tool)
	}
}

func TestToolDefinition_UnmarshalJSON_Nested(t *testing.T) {
	tests := []struct {
		name string
		data string
		want func(t *testing.T, tool ToolDefinition)
	}{
		{
			"nested file_search",
			`{"type":"file_search","file_search":{"vector_store_ids":["vs_9"],"max_num_results":3}}`,
			func(t *testing.T, tool ToolDefinition) {
				if len(tool.VectorStoreIDs) != 1 || tool.VectorStoreIDs[0] != "vs_9" {
					t.Errorf("vector_store_ids = %v", tool.VectorStoreIDs)
				}
				if tool.MaxNumResults == nil || *tool.MaxNumResults != 3 {
					t.Errorf("max_num_results = %v", tool.MaxNumResults)
				}
			},
		},
		{
			"nested function",
			`{"type":"function","function":{"name":"lookup","description":"d","parameters":{"type":"object"}}}`,
			func(t *testing.T, tool ToolDefinition) {
				if tool.Name != "lookup" || tool.Description == nil || *tool.Description != "d" {
					t.Errorf("parsed = %+v", tool)
				}
				if tool.Parameters["type"] != "object" {
					t.Errorf("parameters = %v", tool.Parameters)
				}
			},
		},
		{
			"flat wins over nested",
			`{"type":"function","name":"outer","function":{"name":"inner"}}`,
			func(t *testing.T, tool ToolDefinition) {
				if tool.Name != "outer" {
					t.Errorf("name = %q, want outer", tool.Name)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tool ToolDefinition
			if err := json.Unmarshal([]byte(tt.data), &tool); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.want(t, tool)
		})
	}
}
