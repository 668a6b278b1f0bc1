// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "github.com/larook/chatstream-gw/pkg/core/schema"

// Content segment types in the provider's input format.
const (
	SegmentInputText  = "input_text"
	SegmentOutputText = "output_text"
	SegmentToolResult = "tool_result"
	SegmentInputFile  = "input_file"
)

// ContentSegment is one piece of an input item: a text span or a file
// reference.
type ContentSegment struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// InputItem is one message converted to the provider's content-segment
// shape.
type InputItem struct {
	Role    string           `json:"role"`
	Content []ContentSegment `json:"content"`
}

// Payload is the effective provider request, built fresh per attempt. The
// retry policy may rebuild it with the prompt reference removed or the
// model substituted, never with additional fields.
type Payload struct {
	Model           string                  `json:"model"`
	Input           []InputItem             `json:"input"`
	Temperature     *float64                `json:"temperature,omitempty"`
	TopP            *float64                `json:"top_p,omitempty"`
	MaxOutputTokens *int                    `json:"max_output_tokens,omitempty"`
	Tools           []schema.ToolDefinition `json:"tools,omitempty"`
	Prompt          *schema.PromptReference `json:"prompt,omitempty"`
	ResponseFormat  *schema.ResponseFormat  `json:"response_format,omitempty"`
	Stream          bool                    `json:"stream,omitempty"`
}
