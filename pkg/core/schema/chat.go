// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// DefaultMaxMessageLength bounds the inbound user message size.
const DefaultMaxMessageLength = 4000

// PromptReference identifies a stored prompt on the provider side.
// Version is only sent when an ID is also present.
type PromptReference struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// ResponseFormat mirrors the provider's response_format parameter.
type ResponseFormat struct {
	Type       string                 `json:"type"` // "text", "json_object", "json_schema"
	JSONSchema map[string]interface{} `json:"json_schema,omitempty"`
}

// ChatRequest is an inbound chat turn. Every sampling field is optional:
// absent fields fall through to the agent profile and then the tenant
// defaults. A nil Tools pointer means "no override"; a pointer to an empty
// list means "suppress all tools for this turn".
type ChatRequest struct {
	TenantID       string   `json:"tenant_id"`
	AgentID        string   `json:"agent_id,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Message        string   `json:"message"`
	FileIDs        []string `json:"file_ids,omitempty"`

	Model           string            `json:"model,omitempty"`
	Temperature     *float64          `json:"temperature,omitempty"`
	TopP            *float64          `json:"top_p,omitempty"`
	MaxOutputTokens *int              `json:"max_output_tokens,omitempty"`
	SystemPrompt    string            `json:"system_prompt,omitempty"`
	Prompt          *PromptReference  `json:"prompt,omitempty"`
	ResponseFormat  *ResponseFormat   `json:"response_format,omitempty"`
	Tools           *[]ToolDefinition `json:"tools,omitempty"`

	Stream bool `json:"stream,omitempty"`
}

// Validate checks the request before any provider work is attempted.
func (r *ChatRequest) Validate(maxMessageLength int) error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	if len(r.Message) > maxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", maxMessageLength)
	}
	return nil
}

// ChatResponse is the non-streaming reply shape.
type ChatResponse struct {
	Response   string  `json:"response"`
	ResponseID *string `json:"response_id"`
}

// FileSearchDefaults are the injectable file_search settings carried at the
// tenant and agent levels.
type FileSearchDefaults struct {
	VectorStoreIDs []string `json:"vector_store_ids,omitempty" yaml:"vector_store_ids"`
	MaxNumResults  *int     `json:"max_num_results,omitempty" yaml:"max_num_results"`
}
