// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"regexp"
)

// Tool type tags understood by the gateway. Entries with any other type
// are discarded during normalization rather than failing the request.
const (
	ToolTypeFunction        = "function"
	ToolTypeFileSearch      = "file_search"
	ToolTypeCodeInterpreter = "code_interpreter"
)

const (
	maxFunctionDescriptionLen = 512
	maxParameterStringLen     = 2000
	maxParameterDepth         = 10
	maxNumResultsCeiling      = 200
)

var (
	functionNameRe  = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)
	vectorStoreIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
)

// ToolDefinition is a tagged variant over function, file_search and
// code_interpreter tools. Which fields are meaningful depends on Type.
type ToolDefinition struct {
	Type string `json:"type"`

	// Function fields (type="function")
	Name        string                 `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Strict      *bool                  `json:"strict,omitempty"`

	// File search fields (type="file_search")
	VectorStoreIDs []string    `json:"vector_store_ids,omitempty"`
	MaxNumResults  *int        `json:"max_num_results,omitempty"`
	Filters        interface{} `json:"filters,omitempty"`
}

// UnmarshalJSON handles both the flat format used by the gateway and the
// nested format sent by OpenAI SDK clients.
//
// Flat:
//
//	{"type": "file_search", "vector_store_ids": ["vs_1"]}
//
// Nested:
//
//	{"type": "file_search", "file_search": {"vector_store_ids": ["vs_1"]}}
func (t *ToolDefinition) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion.
	type Alias ToolDefinition
	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*t = ToolDefinition(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil // already parsed via alias, best-effort
	}

	if nested, ok := raw["file_search"]; ok && t.Type == ToolTypeFileSearch {
		var fs struct {
			VectorStoreIDs []string    `json:"vector_store_ids,omitempty"`
			MaxNumResults  *int        `json:"max_num_results,omitempty"`
			Filters        interface{} `json:"filters,omitempty"`
		}
		if err := json.Unmarshal(nested, &fs); err == nil {
			if len(fs.VectorStoreIDs) > 0 && len(t.VectorStoreIDs) == 0 {
				t.VectorStoreIDs = fs.VectorStoreIDs
			}
			if fs.MaxNumResults != nil && t.MaxNumResults == nil {
				t.MaxNumResults = fs.MaxNumResults
			}
			if fs.Filters != nil && t.Filters == nil {
				t.Filters = fs.Filters
			}
		}
	}

	if nested, ok := raw["function"]; ok && t.Type == ToolTypeFunction {
		var fn struct {
			Name        string                 `json:"name,omitempty"`
			Description *string                `json:"description,omitempty"`
			Parameters  map[string]interface{} `json:"parameters,omitempty"`
			Strict      *bool                  `json:"strict,omitempty"`
		}
		if err := json.Unmarshal(nested, &fn); err == nil {
			if fn.Name != "" && t.Name == "" {
				t.Name = fn.Name
			}
			if fn.Description != nil && t.Description == nil {
				t.Description = fn.Description
			}
			if fn.Parameters != nil && t.Parameters == nil {
				t.Parameters = fn.Parameters
			}
			if fn.Strict != nil && t.Strict == nil {
				t.Strict = fn.Strict
			}
		}
	}

	return nil
}

// IdentityKey returns the deduplication key for a tool: the type alone, or
// "function:<name>" for function tools so that distinct functions coexist.
func (t *ToolDefinition) IdentityKey() string {
	if t.Type == ToolTypeFunction {
		return ToolTypeFunction + ":" + t.Name
	}
	return t.Type
}

// Normalize validates and sanitizes a tool entry in place. It returns false
// when the entry is malformed beyond repair and should be dropped from the
// list; it never returns an error so that one bad entry cannot fail the
// whole request.
func (t *ToolDefinition) Normalize() bool {
	switch t.Type {
	case ToolTypeFunction:
		if !functionNameRe.MatchString(t.Name) {
			return false
		}
		if t.Description != nil && len(*t.Description) > maxFunctionDescriptionLen {
			trimmed := (*t.Description)[:maxFunctionDescriptionLen]
			t.Description = &trimmed
		}
		if t.Parameters != nil {
			t.Parameters = sanitizeObject(t.Parameters, 0)
		}
		t.VectorStoreIDs = nil
		t.MaxNumResults = nil
		t.Filters = nil
		return true

	case ToolTypeFileSearch:
		t.VectorStoreIDs = sanitizeVectorStoreIDs(t.VectorStoreIDs)
		if t.MaxNumResults != nil {
			if *t.MaxNumResults < 1 || *t.MaxNumResults > maxNumResultsCeiling {
				t.MaxNumResults = nil
			}
		}
		if t.Filters != nil {
			t.Filters = sanitizeValue(t.Filters, 0)
		}
		t.Name = ""
		t.Description = nil
		t.Parameters = nil
		t.Strict = nil
		return true

	case ToolTypeCodeInterpreter:
		// No fields carried.
		*t = ToolDefinition{Type: ToolTypeCodeInterpreter}
		return true

	default:
		return false
	}
}

// sanitizeVectorStoreIDs drops malformed ids and deduplicates while
// preserving first-seen order.
func sanitizeVectorStoreIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if !vectorStoreIDRe.MatchString(id) {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// sanitizeObject sanitizes a JSON-schema-like parameters object: string
// values are truncated, unsupported value kinds are dropped, and recursion
// stops at maxParameterDepth.
func sanitizeObject(obj map[string]interface{}, depth int) map[string]interface{} {
	if depth >= maxParameterDepth {
		return map[string]interface{}{}
	}
	result := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		if sanitized, ok := sanitizeScalarOrNested(v, depth); ok {
			result[k] = sanitized
		}
	}
	return result
}

func sanitizeValue(v interface{}, depth int) interface{} {
	sanitized, ok := sanitizeScalarOrNested(v, depth)
	if !ok {
		return nil
	}
	return sanitized
}

func sanitizeScalarOrNested(v interface{}, depth int) (interface{}, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case string:
		if len(val) > maxParameterStringLen {
			return val[:maxParameterStringLen], true
		}
		return val, true
	case bool, float64, int, int64:
		return val, true
	case []interface{}:
		if depth >= maxParameterDepth {
			return []interface{}{}, true
		}
		result := make([]interface{}, 0, len(val))
		for _, item := range val {
			if sanitized, ok := sanitizeScalarOrNested(item, depth+1); ok {
				result = append(result, sanitized)
			}
		}
		return result, true
	case map[string]interface{}:
		return sanitizeObject(val, depth+1), true
	default:
		return nil, false
	}
}

// NormalizeToolList sanitizes each entry and drops malformed ones.
// Duplicate identity keys are resolved last-wins while keeping the position
// of the first occurrence, so a list never contains two entries with the
// same key.
func NormalizeToolList(tools []ToolDefinition) []ToolDefinition {
	if tools == nil {
		return nil
	}
	result := make([]ToolDefinition, 0, len(tools))
	index := make(map[string]int, len(tools))
	for _, tool := range tools {
		t := tool
		if !t.Normalize() {
			continue
		}
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
