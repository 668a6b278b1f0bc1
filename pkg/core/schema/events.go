// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// StreamEvent is one event in the client-facing stream vocabulary. The
// EventType string becomes the SSE event name on the wire.
type StreamEvent interface {
	EventType() string
}

// StartEvent signals the first provider activity for a turn.
type StartEvent struct {
	ResponseID string `json:"response_id,omitempty"`
}

func (*StartEvent) EventType() string { return "start" }

// ChunkEvent carries an incremental text fragment of the assistant reply.
type ChunkEvent struct {
	Content    string `json:"content"`
	ResponseID string `json:"response_id,omitempty"`
}

func (*ChunkEvent) EventType() string { return "chunk" }

// ToolCallEvent reports tool call progress. Arguments are cumulative: each
// event carries everything received so far, not just the newest fragment.
type ToolCallEvent struct {
	ToolName  string `json:"tool_name"`
	Arguments string `json:"arguments"`
	CallID    string `json:"call_id"`
	Status    string `json:"status,omitempty"` // "" while streaming, "completed" once executed
}

func (*ToolCallEvent) EventType() string { return "tool_call" }

// NoticeEvent is an advisory message, emitted before each retry attempt.
type NoticeEvent struct {
	Message string `json:"message"`
}

func (*NoticeEvent) EventType() string { return "notice" }

// DoneEvent terminates a successful stream.
type DoneEvent struct {
	FinishReason string `json:"finish_reason"`
	ResponseID   string `json:"response_id,omitempty"`
}

func (*DoneEvent) EventType() string { return "done" }

// ErrorEvent terminates a failed stream.
type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (*ErrorEvent) EventType() string { return "error" }
