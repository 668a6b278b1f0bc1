// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
	"github.com/larook/chatstream-gw/pkg/websearch"
)

// ToolHandler executes one tool invocation. Results may be a string
// (returned verbatim) or any JSON-serializable value.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ToolExecutor dispatches pending tool calls to registered handlers and
// serializes their results for submission back to the provider. Failures
// are folded into the tool output so the model receives a usable result
// instead of the turn aborting.
type ToolExecutor struct {
	handlers map[string]ToolHandler
	logger   *logging.Logger
}

// NewToolExecutor creates an executor with no handlers registered.
func NewToolExecutor(logger *logging.Logger) *ToolExecutor {
	return &ToolExecutor{
		handlers: make(map[string]ToolHandler),
		logger:   logger,
	}
}

// Register adds or replaces the handler for a function name.
func (e *ToolExecutor) Register(name string, handler ToolHandler) {
	e.handlers[name] = handler
}

// RegisterBuiltins installs the built-in tools. The web_search tool is
// only registered when a search provider is configured.
func (e *ToolExecutor) RegisterBuiltins(search websearch.Provider) {
	e.Register("get_current_time", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		now := time.Now().UTC()
		if tz, ok := args["timezone"].(string); ok && tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				now = time.Now().In(loc)
			}
		}
		return map[string]interface{}{
			"time": now.Format(time.RFC3339),
		}, nil
	})

	if search != nil {
		e.Register("web_search", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return map[string]interface{}{"error": "query is required"}, nil
			}
			maxResults := 5
			if n, ok := args["max_results"].(float64); ok && n > 0 {
				maxResults = int(n)
			}
			results, err := search.Search(ctx, query, maxResults)
			if err != nil {
				return nil, fmt.Errorf("web search: %w", err)
			}
			return results, nil
		})
	}
}

// Execute runs one pending tool call and returns the serialized output
// string. It never returns an error: unknown functions, malformed
// arguments and handler failures all degrade to an error-shaped output.
func (e *ToolExecutor) Execute(ctx context.Context, call api.PendingToolCall) string {
	name := call.Name
	args := parseJSONArgs(call.Arguments)

	handler, ok := e.handlers[name]
	if !ok {
		e.logger.Warn("Tool call for unregistered function", "function", name, "call_id", call.ID)
		return errorOutput(fmt.Sprintf("Unknown function: %s", name))
	}

	result, err := handler(ctx, args)
	if err != nil {
		e.logger.Error("Tool handler failed", "function", name, "call_id", call.ID, "error", err)
		return errorOutput(err.Error())
	}

	if s, ok := result.(string); ok {
		return s
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		e.logger.Error("Failed to serialize tool result", "function", name, "error", err)
		return errorOutput("tool result could not be serialized")
	}
	return string(serialized)
}

// parseJSONArgs parses a tool-call argument string; malformed JSON
// degrades to an empty argument object rather than failing the turn.
func parseJSONArgs(arguments string) map[string]interface{} {
	if arguments == "" {
		return map[string]interface{}{}
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]interface{}{}
	}
	return args
}

func errorOutput(message string) string {
	out, _ := json.Marshal(map[string]string{"error": message})
	return string(out)
}
