// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// TenantSettings is the base precedence tier: defaults for every agent and
// request under a tenant. FallbackModel is the known-good model substituted
// by the retry policy when a configured model is rejected by the provider.
type TenantSettings struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Model           string           `json:"model,omitempty"`
	FallbackModel   string           `json:"fallback_model,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
	SystemPrompt    string           `json:"system_prompt,omitempty"`
	Prompt          *PromptReference `json:"prompt,omitempty"`
	ResponseFormat  *ResponseFormat  `json:"response_format,omitempty"`

	Tools      []ToolDefinition    `json:"tools,omitempty"`
	FileSearch *FileSearchDefaults `json:"file_search,omitempty"`

	// MaxMessages caps stored conversation history; oldest entries are
	// dropped first. Zero means the configured global default applies.
	MaxMessages int `json:"max_messages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
