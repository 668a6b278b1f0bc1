// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// AgentProfile is the middle precedence tier: per-agent overrides layered
// between the tenant defaults and the per-request override.
type AgentProfile struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`

	Model           string           `json:"model,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
	SystemPrompt    string           `json:"system_prompt,omitempty"`
	Prompt          *PromptReference `json:"prompt,omitempty"`
	ResponseFormat  *ResponseFormat  `json:"response_format,omitempty"`

	Tools      []ToolDefinition    `json:"tools,omitempty"`
	FileSearch *FileSearchDefaults `json:"file_search,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
