// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/larook/chatstream-gw/pkg/core/api"
	"github.com/larook/chatstream-gw/pkg/core/config"
	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"
	"github.com/larook/chatstream-gw/pkg/observability/logging"
)

// Engine orchestrates one chat turn: precedence resolution, payload
// construction, the provider stream, tool execution, persistence and the
// retry policy. One orchestration runs per inbound request, driven
// synchronously; the engine keeps no per-request state of its own.
type Engine struct {
	config        *config.Config
	conversations state.ConversationStore
	tenants       state.TenantStore
	agents        state.AgentStore
	client        api.ProviderClient
	executor      *ToolExecutor
	logger        *logging.Logger
}

// New creates a new engine.
func New(cfg *config.Config, store state.Store, client api.ProviderClient, executor *ToolExecutor, logger *logging.Logger) *Engine {
	return &Engine{
		config:        cfg,
		conversations: store,
		tenants:       store,
		agents:        store,
		client:        client,
		executor:      executor,
		logger:        logger,
	}
}

// Executor exposes the tool executor so callers can register custom tool
// handlers at startup.
func (e *Engine) Executor() *ToolExecutor {
	return e.executor
}

// ValidationError marks bad user input. The HTTP adapter maps it to a
// 400 response instead of a 500.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// resolveTenant loads tenant settings, falling back to the configured
// global defaults for tenants that have no stored record yet.
func (e *Engine) resolveTenant(ctx context.Context, tenantID string) *schema.TenantSettings {
	tenant, err := e.tenants.GetTenant(ctx, tenantID)
	if err == nil {
		return e.withGlobalDefaults(tenant)
	}
	return e.withGlobalDefaults(&schema.TenantSettings{ID: tenantID})
}

// withGlobalDefaults fills any tenant field left empty from the gateway
// configuration, so the precedence chain always bottoms out on a value.
func (e *Engine) withGlobalDefaults(tenant *schema.TenantSettings) *schema.TenantSettings {
	defaults := e.config.Defaults

	t := *tenant
	if t.Model == "" {
		t.Model = defaults.Model
	}
	if t.FallbackModel == "" {
		t.FallbackModel = defaults.FallbackModel
	}
	if t.Temperature == nil {
		t.Temperature = defaults.Temperature
	}
	if t.TopP == nil {
		t.TopP = defaults.TopP
	}
	if t.MaxOutputTokens == nil {
		t.MaxOutputTokens = defaults.MaxOutputTokens
	}
	if t.SystemPrompt == "" {
		t.SystemPrompt = defaults.SystemPrompt
	}
	if t.MaxMessages <= 0 {
		t.MaxMessages = defaults.MaxMessages
	}
	if t.FileSearch == nil && (len(defaults.FileSearch.VectorStoreIDs) > 0 || defaults.FileSearch.MaxNumResults != nil) {
		t.FileSearch = &schema.FileSearchDefaults{
			VectorStoreIDs: defaults.FileSearch.VectorStoreIDs,
			MaxNumResults:  defaults.FileSearch.MaxNumResults,
		}
	}
	return &t
}

// prepareTurn performs the work shared by the streaming and non-streaming
// paths: validation, tier resolution and history loading.
func (e *Engine) prepareTurn(ctx context.Context, req *schema.ChatRequest) (*ResolvedConfig, []state.Message, error) {
	if err := req.Validate(e.config.Defaults.MaxMessageLength); err != nil {
		return nil, nil, &ValidationError{Err: err}
	}

	if req.ConversationID == "" {
		req.ConversationID = generateID("conv_")
	}

	tenant := e.resolveTenant(ctx, req.TenantID)

	var agent *schema.AgentProfile
	if req.AgentID != "" {
		a, err := e.agents.GetAgent(ctx, req.TenantID, req.AgentID)
		if err != nil {
			return nil, nil, fmt.Errorf("agent lookup: %w", err)
		}
		agent = a
	}

	resolved := ResolveConfig(tenant, agent, req)

	history, err := e.conversations.LoadConversation(ctx, req.TenantID, req.ConversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}

	return resolved, history, nil
}

// ProcessChatStream runs one streaming chat turn and returns the channel
// of client events. The channel is closed when the turn finishes; a
// failure after streaming has begun is delivered as a terminal error
// event.
func (e *Engine) ProcessChatStream(ctx context.Context, req *schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	resolved, history, err := e.prepareTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan schema.StreamEvent, 10)

	go func() {
		defer close(events)

		emit := func(ev schema.StreamEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		session := NewStreamSession(emit, e.executor, e.client, e.conversations, e.logger,
			req.TenantID, req.ConversationID, resolved.MaxMessages)

		policy := &RetryFallbackPolicy{
			FallbackModel: resolved.FallbackModel,
			Notify: func(message string) {
				e.logger.Warn("Retrying request", "tenant_id", req.TenantID, "reason", message)
				emit(&schema.NoticeEvent{Message: message})
			},
		}

		build := func(opts AttemptOptions) (*api.Payload, error) {
			payload, messages, err := e.buildAttempt(history, req, resolved, opts, true)
			if err != nil {
				return nil, err
			}
			session.SetMessages(messages)
			return payload, nil
		}

		send := func(payload *api.Payload) error {
			stream, err := e.client.CreateResponseStream(ctx, payload)
			if err != nil {
				return err
			}
			for ev := range stream {
				session.HandleEvent(ctx, ev)
			}
			return nil
		}

		if err := policy.Attempt(build, send); err != nil {
			e.logger.Error("Chat turn failed",
				"tenant_id", req.TenantID,
				"conversation_id", req.ConversationID,
				"error", err)
			code := ""
			if apiErr, ok := api.AsAPIError(err); ok {
				code = apiErr.Code
			}
			emit(&schema.ErrorEvent{Message: err.Error(), Code: code})
		}
	}()

	return events, nil
}

// ProcessChat runs one non-streaming chat turn. The same precedence
// resolution, retry policy and persistence rules apply; the reply is
// returned synchronously instead of streamed.
func (e *Engine) ProcessChat(ctx context.Context, req *schema.ChatRequest) (*schema.ChatResponse, error) {
	resolved, history, err := e.prepareTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	policy := &RetryFallbackPolicy{
		FallbackModel: resolved.FallbackModel,
		Notify: func(message string) {
			e.logger.Warn("Retrying request", "tenant_id", req.TenantID, "reason", message)
		},
	}

	var (
		messages []state.Message
		result   *api.ProviderResponse
	)

	build := func(opts AttemptOptions) (*api.Payload, error) {
		payload, built, err := e.buildAttempt(history, req, resolved, opts, false)
		if err != nil {
			return nil, err
		}
		messages = built
		return payload, nil
	}

	send := func(payload *api.Payload) error {
		resp, err := e.client.CreateResponse(ctx, payload)
		if err != nil {
			return err
		}
		result = resp
		return nil
	}

	if err := policy.Attempt(build, send); err != nil {
		return nil, err
	}

	if result.OutputText != "" {
		messages = append(messages, state.Message{
			Role:    "assistant",
			Content: result.OutputText,
		})
		if err := e.conversations.SaveConversation(ctx, req.TenantID, req.ConversationID, messages, resolved.MaxMessages); err != nil {
			e.logger.Error("Failed to persist conversation",
				"tenant_id", req.TenantID,
				"conversation_id", req.ConversationID,
				"error", err)
		}
	}

	resp := &schema.ChatResponse{Response: result.OutputText}
	if result.ID != "" {
		resp.ResponseID = &result.ID
	}
	return resp, nil
}

// buildAttempt constructs the payload for one attempt, applying the
// retry policy's narrowing options on top of the resolved configuration.
func (e *Engine) buildAttempt(history []state.Message, req *schema.ChatRequest, resolved *ResolvedConfig, opts AttemptOptions, stream bool) (*api.Payload, []state.Message, error) {
	cfg := *resolved
	if opts.DropPrompt {
		cfg.Prompt = nil
	}
	if opts.OverrideModel != "" {
		cfg.Model = opts.OverrideModel
	}
	return BuildPayload(history, req.Message, req.FileIDs, &cfg, stream)
}

// generateID generates a unique ID with a prefix
func generateID(prefix string) string {
	b := make([]byte, 16)
	rand.Read(b)
	return prefix + hex.EncodeToString(b)
}
