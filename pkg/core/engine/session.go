// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"strings"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
)

// SessionState is the stream processor's position in the response
// lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateStarted
	StateStreaming
	StateToolPending
	StateCompleted
	StateErrored
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateStreaming:
		return "streaming"
	case StateToolPending:
		return "tool_pending"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// EventSink delivers client-facing events in call order.
type EventSink func(event schema.StreamEvent)

// toolCallAccumulator holds the streamed fragments of one tool call,
// keyed by the provider-assigned call id. Arguments only ever grows.
type toolCallAccumulator struct {
	toolName  string
	arguments strings.Builder
}

// StreamSession is the per-orchestration state machine driving one
// provider event stream. It is owned exclusively by a single in-flight
// request; no locking is needed.
type StreamSession struct {
	state      SessionState
	responseID string
	fullText   strings.Builder
	toolCalls  map[string]*toolCallAccumulator

	emit     EventSink
	executor *ToolExecutor
	client   api.ProviderClient
	store    state.ConversationStore
	logger   *logging.Logger

	tenantID       string
	conversationID string
	maxMessages    int

	// messages is the history the payload was built from, including the
	// pending user turn; the assistant reply is appended on completion.
	messages []state.Message
}

// NewStreamSession creates a session in the idle state.
func NewStreamSession(emit EventSink, executor *ToolExecutor, client api.ProviderClient, store state.ConversationStore, logger *logging.Logger, tenantID, conversationID string, maxMessages int) *StreamSession {
	return &StreamSession{
		state:     StateIdle,
		toolCalls: make(map[string]*toolCallAccumulator),
		emit:      emit,
		executor:  executor,
		client:    client,
		store:     store,
		logger:    logger,

		tenantID:       tenantID,
		conversationID: conversationID,
		maxMessages:    maxMessages,
	}
}

// SetMessages installs the history snapshot the current attempt was built
// from. Called once per attempt, before any events arrive.
func (s *StreamSession) SetMessages(messages []state.Message) {
	s.messages = messages
}

// State returns the current lifecycle state.
func (s *StreamSession) State() SessionState {
	return s.state
}

// ResponseID returns the provider response id, once known.
func (s *StreamSession) ResponseID() string {
	return s.responseID
}

// FullText returns the accumulated response text so far.
func (s *StreamSession) FullText() string {
	return s.fullText.String()
}

// HandleEvent advances the state machine by one provider event. Events
// are processed strictly one at a time; each may emit zero or more client
// events in order.
func (s *StreamSession) HandleEvent(ctx context.Context, event api.ProviderEvent) {
	switch ev := event.(type) {
	case *api.CreatedEvent:
		s.ensureStarted(ev.ResponseID)

	case *api.TextDeltaEvent:
		s.handleTextDelta(ev)

	case *api.ToolCallDeltaEvent:
		s.handleToolCallDelta(ev)

	case *api.RequiredActionEvent:
		s.handleRequiredAction(ctx, ev)

	case *api.CompletedEvent:
		s.handleCompleted(ctx, ev)

	case *api.FailedEvent:
		s.emit(&schema.ErrorEvent{Message: ev.Message, Code: ev.Code})
		s.state = StateErrored

	case *api.UnknownEvent:
		// Forward-compatible: unknown provider events are ignored.
	}
}

// ensureStarted guarantees the start event precedes any chunk or
// tool_call for this response.
func (s *StreamSession) ensureStarted(responseID string) {
	if s.state != StateIdle {
		return
	}
	if responseID != "" {
		s.responseID = responseID
	}
	s.emit(&schema.StartEvent{ResponseID: s.responseID})
	s.state = StateStarted
}

func (s *StreamSession) handleTextDelta(ev *api.TextDeltaEvent) {
	if ev.Text == "" {
		return
	}
	s.ensureStarted(ev.ResponseID)
	s.fullText.WriteString(ev.Text)
	s.state = StateStreaming
	s.emit(&schema.ChunkEvent{Content: ev.Text, ResponseID: s.responseID})
}

func (s *StreamSession) handleToolCallDelta(ev *api.ToolCallDeltaEvent) {
	s.ensureStarted(ev.ResponseID)

	acc, ok := s.toolCalls[ev.CallID]
	if !ok {
		acc = &toolCallAccumulator{}
		s.toolCalls[ev.CallID] = acc
	}
	if acc.toolName == "" && ev.ToolName != "" {
		acc.toolName = ev.ToolName
	}
	acc.arguments.WriteString(ev.Arguments)
	s.state = StateStreaming

	// Cumulative arguments, so consumers can render a growing preview.
	s.emit(&schema.ToolCallEvent{
		ToolName:  acc.toolName,
		Arguments: acc.arguments.String(),
		CallID:    ev.CallID,
	})
}

// handleRequiredAction executes every pending tool call and submits the
// outputs against the current response. Submission failure is surfaced as
// a client error event but does not abort the response; the provider
// resolves the stalled call on its own.
func (s *StreamSession) handleRequiredAction(ctx context.Context, ev *api.RequiredActionEvent) {
	s.ensureStarted(ev.ResponseID)
	s.state = StateToolPending

	outputs := make([]api.ToolOutput, 0, len(ev.ToolCalls))
	for _, call := range ev.ToolCalls {
		// Prefer the accumulated fragments over the event's snapshot.
		if acc, ok := s.toolCalls[call.ID]; ok {
			if call.Name == "" {
				call.Name = acc.toolName
			}
			if call.Arguments == "" {
				call.Arguments = acc.arguments.String()
			}
		}

		output := s.executor.Execute(ctx, call)
		outputs = append(outputs, api.ToolOutput{
			ToolCallID: call.ID,
			Output:     output,
		})

		s.emit(&schema.ToolCallEvent{
			ToolName:  call.Name,
			Arguments: call.Arguments,
			CallID:    call.ID,
			Status:    "completed",
		})
	}

	responseID := s.responseID
	if responseID == "" {
		responseID = ev.ResponseID
	}
	if err := s.client.SubmitToolOutputs(ctx, responseID, outputs); err != nil {
		s.logger.Error("Failed to submit tool outputs", "response_id", responseID, "error", err)
		s.emit(&schema.ErrorEvent{Message: "failed to submit tool outputs: " + err.Error(), Code: "tool_submission_failed"})
	}

	s.state = StateStreaming
}

// handleCompleted persists the turn exactly when the accumulated text is
// non-empty, emits done and resets per-response state so the session can
// process a subsequent response within the same call.
func (s *StreamSession) handleCompleted(ctx context.Context, ev *api.CompletedEvent) {
	responseID := s.responseID
	if responseID == "" {
		responseID = ev.ResponseID
	}

	if text := s.fullText.String(); text != "" {
		s.messages = append(s.messages, state.Message{
			Role:      "assistant",
			Content:   text,
			CreatedAt: time.Now(),
		})
		if err := s.store.SaveConversation(ctx, s.tenantID, s.conversationID, s.messages, s.maxMessages); err != nil {
			s.logger.Error("Failed to persist conversation",
				"tenant_id", s.tenantID,
				"conversation_id", s.conversationID,
				"error", err)
		}
	}

	s.emit(&schema.DoneEvent{FinishReason: ev.FinishReason, ResponseID: responseID})
	s.state = StateCompleted
	s.reset()
}

// reset clears per-response state. Normally one response is processed per
// call, but the provider protocol does not forbid a second created/
// completed pair on the same stream.
func (s *StreamSession) reset() {
	s.responseID = ""
	s.fullText.Reset()
	s.toolCalls = make(map[string]*toolCallAccumulator)
	s.state = StateIdle
}
