// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/larook/chatstream-gw/pkg/core/schema"
)

// ChatCompletionsClient implements ProviderClient over the official OpenAI
// Go SDK's chat completions surface. It supports OpenAI, Ollama, vLLM and
// other compatible backends that do not expose the responses protocol.
//
// Hosted tools (file_search, code_interpreter) and mid-stream tool output
// submission are responses protocol features; this transport forwards
// function tools only and reports tool calls as deltas followed by a
// completed event with finish reason "tool_calls".
type ChatCompletionsClient struct {
	client openai.Client
}

// NewChatCompletionsClient creates a chat completions client. The baseURL
// parameter allows connecting to OpenAI-compatible backends.
func NewChatCompletionsClient(baseURL, apiKey string) *ChatCompletionsClient {
	opts := []option.RequestOption{}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// Local backends like Ollama accept any key
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &ChatCompletionsClient{
		client: openai.NewClient(opts...),
	}
}

// buildChatParams converts a provider payload to SDK chat completion
// params. Content segments are flattened to plain strings and non-function
// tools are skipped.
func buildChatParams(payload *Payload) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(payload.Input))
	for _, item := range payload.Input {
		text := flattenSegments(item.Content)
		switch item.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		case "user":
			messages = append(messages, openai.UserMessage(text))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(text))
		case "tool":
			// Tool results without a call id cannot be represented on
			// the chat completions surface; carry them as user context.
			messages = append(messages, openai.UserMessage(text))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role: %s", item.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(payload.Model),
		Messages: messages,
	}

	if payload.Temperature != nil {
		params.Temperature = openai.Float(*payload.Temperature)
	}
	if payload.TopP != nil {
		params.TopP = openai.Float(*payload.TopP)
	}
	if payload.MaxOutputTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*payload.MaxOutputTokens))
	}

	var tools []openai.ChatCompletionToolParam
	for _, t := range payload.Tools {
		if t.Type != schema.ToolTypeFunction {
			continue
		}
		funcDef := shared.FunctionDefinitionParam{
			Name: t.Name,
		}
		if t.Description != nil {
			funcDef.Description = openai.String(*t.Description)
		}
		if t.Parameters != nil {
			funcDef.Parameters = shared.FunctionParameters(t.Parameters)
		}
		if t.Strict != nil {
			funcDef.Strict = openai.Bool(*t.Strict)
		}
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: funcDef,
		})
	}
	if len(tools) > 0 {
		params.Tools = tools
	}

	if payload.ResponseFormat != nil {
		switch payload.ResponseFormat.Type {
		case "json_object":
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
		case "text":
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfText: &shared.ResponseFormatTextParam{},
			}
		}
	}

	return params, nil
}

func flattenSegments(segments []ContentSegment) string {
	var text string
	for _, seg := range segments {
		if seg.Text != "" {
			text += seg.Text
		}
	}
	return text
}

// wrapSDKError converts SDK failures into APIError so the retry policy can
// classify them.
func wrapSDKError(err error) error {
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		return &APIError{
			StatusCode: sdkErr.StatusCode,
			Message:    err.Error(),
		}
	}
	return err
}

// CreateResponse implements ProviderClient.CreateResponse.
func (c *ChatCompletionsClient) CreateResponse(ctx context.Context, payload *Payload) (*ProviderResponse, error) {
	params, err := buildChatParams(payload)
	if err != nil {
		return nil, err
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapSDKError(err)
	}

	result := &ProviderResponse{
		ID: completion.ID,
	}
	if len(completion.Choices) > 0 {
		result.OutputText = completion.Choices[0].Message.Content
		result.FinishReason = string(completion.Choices[0].FinishReason)
	}
	return result, nil
}

// CreateResponseStream implements ProviderClient.CreateResponseStream,
// adapting SDK chunks into provider events.
func (c *ChatCompletionsClient) CreateResponseStream(ctx context.Context, payload *Payload) (<-chan ProviderEvent, error) {
	params, err := buildChatParams(payload)
	if err != nil {
		return nil, err
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)

	// Prime the stream: the SDK does not issue the HTTP request until the
	// first Next(), and a synchronous failure here must reach the retry
	// policy as an APIError rather than disappearing into the stream.
	hasFirst := stream.Next()
	if !hasFirst {
		err := stream.Err()
		stream.Close()
		if err != nil {
			return nil, wrapSDKError(err)
		}
		empty := make(chan ProviderEvent)
		close(empty)
		return empty, nil
	}

	events := make(chan ProviderEvent, 10)

	go func() {
		defer close(events)
		defer stream.Close()

		var (
			responseID   string
			started      bool
			finishReason string
			// Later chunks reference tool calls by index only.
			callIDByIndex = map[int]string{}
		)

		send := func(ev ProviderEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		handleChunk := func(chunk openai.ChatCompletionChunk) bool {
			if !started {
				responseID = chunk.ID
				started = true
				if !send(&CreatedEvent{ResponseID: responseID}) {
					return false
				}
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					if !send(&TextDeltaEvent{ResponseID: responseID, Text: choice.Delta.Content}) {
						return false
					}
				}

				for _, tc := range choice.Delta.ToolCalls {
					idx := int(tc.Index)
					if tc.ID != "" {
						callIDByIndex[idx] = tc.ID
					}
					callID := callIDByIndex[idx]
					if callID == "" {
						continue
					}
					if !send(&ToolCallDeltaEvent{
						ResponseID: responseID,
						CallID:     callID,
						ToolName:   tc.Function.Name,
						Arguments:  tc.Function.Arguments,
					}) {
						return false
					}
				}

				if choice.FinishReason != "" {
					finishReason = string(choice.FinishReason)
				}
			}
			return true
		}

		if !handleChunk(stream.Current()) {
			return
		}
		for stream.Next() {
			if !handleChunk(stream.Current()) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			msg := err.Error()
			var code string
			var sdkErr *openai.Error
			if errors.As(err, &sdkErr) {
				code = fmt.Sprintf("%d", sdkErr.StatusCode)
			}
			send(&FailedEvent{ResponseID: responseID, Message: msg, Code: code})
			return
		}

		if started {
			if finishReason == "" {
				finishReason = "stop"
			}
			send(&CompletedEvent{ResponseID: responseID, FinishReason: finishReason})
		}
	}()

	return events, nil
}

// SubmitToolOutputs is not available on the chat completions surface: the
// stream has already terminated by the time tool calls are known.
func (c *ChatCompletionsClient) SubmitToolOutputs(ctx context.Context, responseID string, outputs []ToolOutput) error {
	return fmt.Errorf("tool output submission is not supported by the chat_completions transport")
}
