// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ResponsesClient implements ProviderClient over the streaming responses
// protocol using net/http. It works against OpenAI and any compatible
// backend exposing a /responses endpoint.
type ResponsesClient struct {
	baseURL    string // e.g. "https://api.openai.com/v1"
	apiKey     string
	httpClient *http.Client
}

// NewResponsesClient creates a new responses protocol client. baseURL
// should include the version prefix (e.g. "https://api.openai.com/v1").
func NewResponsesClient(baseURL, apiKey string) *ResponsesClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &ResponsesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// CreateResponse sends a non-streaming request.
func (c *ResponsesClient) CreateResponse(ctx context.Context, payload *Payload) (*ProviderResponse, error) {
	payload.Stream = false

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to provider failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	return parseProviderResponse(respBody)
}

// CreateResponseStream sends a streaming request and returns a channel of
// parsed provider events. The channel is closed when the stream ends.
func (c *ResponsesClient) CreateResponseStream(ctx context.Context, payload *Payload) (<-chan ProviderEvent, error) {
	payload.Stream = true

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to provider failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	events := make(chan ProviderEvent, 10)

	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		// Increase max token size for large SSE payloads
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var eventType string

		for scanner.Scan() {
			line := scanner.Text()

			// Empty line signals end of an event
			if line == "" {
				eventType = ""
				continue
			}

			if strings.HasPrefix(line, "event: ") {
				eventType = strings.TrimPrefix(line, "event: ")
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				data := strings.TrimPrefix(line, "data: ")

				// [DONE] signals end of stream
				if data == "[DONE]" {
					return
				}

				evt := ParseProviderEvent(eventType, json.RawMessage(data))

				select {
				case events <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// SubmitToolOutputs posts executed tool results against an in-flight
// response.
func (c *ResponsesClient) SubmitToolOutputs(ctx context.Context, responseID string, outputs []ToolOutput) error {
	body, err := json.Marshal(map[string]interface{}{
		"tool_outputs": outputs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tool outputs: %w", err)
	}

	url := fmt.Sprintf("%s/responses/%s/submit_tool_outputs", c.baseURL, responseID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("tool output submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp.StatusCode, respBody)
	}
	return nil
}

func (c *ResponsesClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// parseAPIError converts a non-200 provider reply into an APIError,
// pulling code and message from the standard error envelope when present.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		if envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
		} else if envelope.Error.Type != "" {
			apiErr.Code = envelope.Error.Type
		}
	}
	return apiErr
}

// parseProviderResponse extracts id, text and finish reason from a
// non-streaming reply, tolerating both a flat output_text field and the
// nested output item list.
func parseProviderResponse(body []byte) (*ProviderResponse, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider response: %w", err)
	}

	result := &ProviderResponse{}
	result.ID, _ = raw["id"].(string)
	result.FinishReason = extractFinishReason(raw)

	if s, ok := raw["output_text"].(string); ok {
		result.OutputText = s
		return result, nil
	}

	if items, ok := raw["output"].([]interface{}); ok {
		var text string
		for _, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			text += extractTextFragment(obj["content"])
		}
		result.OutputText = text
	}
	return result, nil
}
