// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderClient is the transport contract to the remote model provider.
// Implementations exist for the native streaming responses protocol
// (ResponsesClient), the official OpenAI SDK chat-completions surface
// (ChatCompletionsClient) and tests (MockClient).
type ProviderClient interface {
	// CreateResponse sends a non-streaming request.
	CreateResponse(ctx context.Context, payload *Payload) (*ProviderResponse, error)

	// CreateResponseStream sends a streaming request and returns a channel
	// of parsed provider events. The channel is closed when the stream
	// ends.
	CreateResponseStream(ctx context.Context, payload *Payload) (<-chan ProviderEvent, error)

	// SubmitToolOutputs submits executed tool results against an
	// in-flight response so the provider can resume generating.
	SubmitToolOutputs(ctx context.Context, responseID string, outputs []ToolOutput) error
}

// ProviderResponse is the non-streaming reply.
type ProviderResponse struct {
	ID           string `json:"id"`
	OutputText   string `json:"output_text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ToolOutput pairs an executed tool call with its serialized result.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// APIError is a provider-reported HTTP failure. The status code drives the
// retry classification: 400, 404 and 422 are client-class and eligible for
// the narrowing retry policy, everything else is fatal.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether the failure is attributable to the request
// content rather than the transport or the provider itself.
func (e *APIError) IsClientError() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// AsAPIError unwraps an APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
