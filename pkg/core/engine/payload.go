// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"
)

// ConfigurationError marks a misconfiguration rather than bad user input:
// with tenant defaults in place it should be impossible to reach the
// provider without a model.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// BuildPayload converts conversation history plus the resolved
// configuration into the provider request payload. It returns the payload
// together with the updated message slice (history with the system message
// and pending user turn appended) for later persistence.
//
// The system prompt is injected only when history is empty; an ongoing
// conversation keeps whatever system message it started with.
func BuildPayload(history []state.Message, userMessage string, fileIDs []string, cfg *ResolvedConfig, stream bool) (*api.Payload, []state.Message, error) {
	if cfg.Model == "" {
		return nil, nil, &ConfigurationError{Message: "no model resolved from request, agent or tenant defaults"}
	}

	messages := make([]state.Message, 0, len(history)+2)
	messages = append(messages, history...)

	if len(messages) == 0 && cfg.SystemPrompt != "" {
		messages = append(messages, state.Message{
			Role:      "system",
			Content:   cfg.SystemPrompt,
			CreatedAt: time.Now(),
		})
	}

	messages = append(messages, state.Message{
		Role:      "user",
		Content:   userMessage,
		FileIDs:   fileIDs,
		CreatedAt: time.Now(),
	})

	input := make([]api.InputItem, 0, len(messages))
	for _, msg := range messages {
		input = append(input, convertMessage(msg))
	}

	payload := &api.Payload{
		Model:           cfg.Model,
		Input:           input,
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Tools:           cfg.Tools,
		ResponseFormat:  cfg.ResponseFormat,
		Stream:          stream,
	}

	// A prompt object is included only when an id resolved; the version
	// rides along only with an id.
	if cfg.Prompt != nil && cfg.Prompt.ID != "" {
		payload.Prompt = &schema.PromptReference{
			ID:      cfg.Prompt.ID,
			Version: cfg.Prompt.Version,
		}
	}

	return payload, messages, nil
}

// convertMessage maps one stored message into the provider's
// content-segment shape: user turns become input segments, assistant
// turns output segments, tool results tool_result segments. Attached
// files become file-reference segments alongside the text.
func convertMessage(msg state.Message) api.InputItem {
	segmentType := api.SegmentInputText
	switch msg.Role {
	case "assistant":
		segmentType = api.SegmentOutputText
	case "tool":
		segmentType = api.SegmentToolResult
	}

	content := make([]api.ContentSegment, 0, 1+len(msg.FileIDs))
	content = append(content, api.ContentSegment{
		Type: segmentType,
		Text: msg.Content,
	})
	for _, fileID := range msg.FileIDs {
		content = append(content, api.ContentSegment{
			Type:   api.SegmentInputFile,
			FileID: fileID,
		})
	}

	return api.InputItem{
		Role:    msg.Role,
		Content: content,
	}
}
