// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "encoding/json"

// Provider event type tags on the wire.
const (
	eventCreated        = "response.created"
	eventTextDelta      = "response.output_text.delta"
	eventRefusalDelta   = "response.refusal.delta"
	eventToolCallDelta  = "response.output_tool_call.delta"
	eventRequiredAction = "response.required_action"
	eventCompleted      = "response.completed"
	eventError          = "response.error"
	eventFailed         = "response.failed"
)

// ProviderEvent is a parsed provider stream event. The transport parses the
// loosely-typed wire payloads into this closed set so the stream processor
// dispatches on types instead of string prefixes.
type ProviderEvent interface {
	providerEvent()
}

// CreatedEvent marks the provider accepting the request.
type CreatedEvent struct {
	ResponseID string
}

// TextDeltaEvent carries one text fragment of the response output.
type TextDeltaEvent struct {
	ResponseID string
	Text       string
}

// ToolCallDeltaEvent carries one fragment of a streamed tool call. CallID
// is always non-empty; fragments that cannot be attributed to a call id
// are dropped during parsing. ToolName may be empty until the provider has
// sent it; Arguments is the delta only, not the accumulation.
type ToolCallDeltaEvent struct {
	ResponseID string
	CallID     string
	ToolName   string
	Arguments  string
}

// PendingToolCall is one tool invocation the provider is waiting on.
type PendingToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// RequiredActionEvent signals the provider is blocked on tool outputs.
type RequiredActionEvent struct {
	ResponseID string
	ToolCalls  []PendingToolCall
}

// CompletedEvent terminates a response normally.
type CompletedEvent struct {
	ResponseID   string
	FinishReason string
}

// FailedEvent is a provider-reported terminal failure, distinct from a
// transport error: it arrives inside an otherwise healthy stream.
type FailedEvent struct {
	ResponseID string
	Message    string
	Code       string
}

// UnknownEvent is any event tag the gateway does not recognize; the stream
// processor ignores it, keeping the protocol forward-compatible.
type UnknownEvent struct {
	Type string
}

func (*CreatedEvent) providerEvent()        {}
func (*TextDeltaEvent) providerEvent()      {}
func (*ToolCallDeltaEvent) providerEvent()  {}
func (*RequiredActionEvent) providerEvent() {}
func (*CompletedEvent) providerEvent()      {}
func (*FailedEvent) providerEvent()         {}
func (*UnknownEvent) providerEvent()        {}

// ParseProviderEvent converts one wire event into the tagged variant.
// Malformed payloads degrade to UnknownEvent rather than erroring: a
// single bad event must not kill the stream.
func ParseProviderEvent(eventType string, data json.RawMessage) ProviderEvent {
	var body map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			body = nil
		}
	}

	switch eventType {
	case eventCreated:
		return &CreatedEvent{ResponseID: extractResponseID(body)}

	case eventTextDelta, eventRefusalDelta:
		return &TextDeltaEvent{
			ResponseID: extractResponseID(body),
			Text:       extractTextFragment(body["delta"]),
		}

	case eventToolCallDelta:
		ev, ok := parseToolCallDelta(body)
		if !ok {
			// No call id to attribute the fragment to.
			return &UnknownEvent{Type: eventType}
		}
		return ev

	case eventRequiredAction:
		return &RequiredActionEvent{
			ResponseID: extractResponseID(body),
			ToolCalls:  extractPendingToolCalls(body),
		}

	case eventCompleted:
		return &CompletedEvent{
			ResponseID:   extractResponseID(body),
			FinishReason: extractFinishReason(body),
		}

	case eventError, eventFailed:
		msg, code := extractErrorDetails(body)
		return &FailedEvent{
			ResponseID: extractResponseID(body),
			Message:    msg,
			Code:       code,
		}

	default:
		return &UnknownEvent{Type: eventType}
	}
}

// extractResponseID resolves the response id from the common locations:
// top-level response_id, a nested response object, or a bare id.
func extractResponseID(body map[string]interface{}) string {
	if s, ok := body["response_id"].(string); ok && s != "" {
		return s
	}
	if resp, ok := body["response"].(map[string]interface{}); ok {
		if s, ok := resp["id"].(string); ok {
			return s
		}
	}
	if s, ok := body["id"].(string); ok {
		return s
	}
	return ""
}

// extractTextFragment pulls the text out of a delta, which may be a bare
// string, an object carrying "text" or "output_text", or a list of content
// segments each possibly carrying "text". All matches are concatenated.
func extractTextFragment(delta interface{}) string {
	switch d := delta.(type) {
	case string:
		return d
	case map[string]interface{}:
		if s, ok := d["text"].(string); ok {
			return s
		}
		if s, ok := d["output_text"].(string); ok {
			return s
		}
		return ""
	case []interface{}:
		var out string
		for _, item := range d {
			if seg, ok := item.(map[string]interface{}); ok {
				if s, ok := seg["text"].(string); ok {
					out += s
				}
			}
		}
		return out
	default:
		return ""
	}
}

// parseToolCallDelta resolves the call id from delta.id, delta.call_id or
// delta.tool_call_id (first present wins); without one the fragment cannot
// be attributed and is dropped.
func parseToolCallDelta(body map[string]interface{}) (*ToolCallDeltaEvent, bool) {
	delta, ok := body["delta"].(map[string]interface{})
	if !ok {
		return nil, false
	}

	callID := firstString(delta, "id", "call_id", "tool_call_id")
	if callID == "" {
		return nil, false
	}

	name := firstString(delta, "tool_name", "name")
	args, _ := delta["arguments"].(string)
	if fn, ok := delta["function"].(map[string]interface{}); ok {
		if name == "" {
			name, _ = fn["name"].(string)
		}
		if args == "" {
			args, _ = fn["arguments"].(string)
		}
	}

	return &ToolCallDeltaEvent{
		ResponseID: extractResponseID(body),
		CallID:     callID,
		ToolName:   name,
		Arguments:  args,
	}, true
}

func extractPendingToolCalls(body map[string]interface{}) []PendingToolCall {
	raw := body["tool_calls"]
	if raw == nil {
		if ra, ok := body["required_action"].(map[string]interface{}); ok {
			if sto, ok := ra["submit_tool_outputs"].(map[string]interface{}); ok {
				raw = sto["tool_calls"]
			}
		}
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	calls := make([]PendingToolCall, 0, len(list))
	for _, item := range list {
		tc, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		call := PendingToolCall{
			ID:   firstString(tc, "id", "call_id", "tool_call_id"),
			Name: firstString(tc, "name", "tool_name"),
		}
		call.Arguments, _ = tc["arguments"].(string)
		if fn, ok := tc["function"].(map[string]interface{}); ok {
			if call.Name == "" {
				call.Name, _ = fn["name"].(string)
			}
			if call.Arguments == "" {
				call.Arguments, _ = fn["arguments"].(string)
			}
		}
		calls = append(calls, call)
	}
	return calls
}

func extractFinishReason(body map[string]interface{}) string {
	if s, ok := body["finish_reason"].(string); ok && s != "" {
		return s
	}
	if resp, ok := body["response"].(map[string]interface{}); ok {
		if s, ok := resp["finish_reason"].(string); ok && s != "" {
			return s
		}
		if s, ok := resp["status"].(string); ok && s != "" {
			return s
		}
	}
	return "stop"
}

func extractErrorDetails(body map[string]interface{}) (message, code string) {
	if errObj, ok := body["error"].(map[string]interface{}); ok {
		message, _ = errObj["message"].(string)
		code = firstString(errObj, "code", "type")
	}
	if message == "" {
		message, _ = body["message"].(string)
	}
	if code == "" {
		code = firstString(body, "code", "type")
	}
	if message == "" {
		message = "provider reported an error"
	}
	return message, code
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
