// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a ProviderClient for development and testing. It echoes
// the latest user message back word by word as a predictable stream.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func latestUserText(payload *Payload) string {
	for i := len(payload.Input) - 1; i >= 0; i-- {
		if payload.Input[i].Role == "user" {
			return flattenSegments(payload.Input[i].Content)
		}
	}
	return ""
}

// CreateResponse implements ProviderClient.CreateResponse.
func (m *MockClient) CreateResponse(ctx context.Context, payload *Payload) (*ProviderResponse, error) {
	userMessage := latestUserText(payload)
	return &ProviderResponse{
		ID:           fmt.Sprintf("resp_mock_%d", time.Now().UnixNano()),
		OutputText:   fmt.Sprintf("Mock response to: %s", userMessage),
		FinishReason: "stop",
	}, nil
}

// CreateResponseStream implements ProviderClient.CreateResponseStream.
func (m *MockClient) CreateResponseStream(ctx context.Context, payload *Payload) (<-chan ProviderEvent, error) {
	events := make(chan ProviderEvent, 10)

	go func() {
		defer close(events)

		responseID := fmt.Sprintf("resp_mock_%d", time.Now().UnixNano())
		userMessage := latestUserText(payload)
		words := strings.Fields(fmt.Sprintf("Mock streaming response to: %s", userMessage))

		send := func(ev ProviderEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(&CreatedEvent{ResponseID: responseID}) {
			return
		}
		for _, word := range words {
			if !send(&TextDeltaEvent{ResponseID: responseID, Text: word + " "}) {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		send(&CompletedEvent{ResponseID: responseID, FinishReason: "stop"})
	}()

	return events, nil
}

// SubmitToolOutputs implements ProviderClient.SubmitToolOutputs.
func (m *MockClient) SubmitToolOutputs(ctx context.Context, responseID string, outputs []ToolOutput) error {
	return nil
}
