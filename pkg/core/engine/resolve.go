// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"github.com/larook/chatstream-gw/pkg/core/schema"
)

// ResolvedConfig is the effective configuration for one chat turn after
// collapsing the three precedence tiers: explicit request override, then
// agent profile, then tenant defaults. The same resolution feeds both the
// streaming and non-streaming paths.
type ResolvedConfig struct {
	Model           string
	FallbackModel   string
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens *int
	SystemPrompt    string
	Prompt          *schema.PromptReference
	ResponseFormat  *schema.ResponseFormat
	Tools           []schema.ToolDefinition
	MaxMessages     int
}

// ResolveConfig collapses tenant settings, an optional agent profile and
// the inbound request into one effective configuration. For every field
// the most specific non-empty level wins.
func ResolveConfig(tenant *schema.TenantSettings, agent *schema.AgentProfile, req *schema.ChatRequest) *ResolvedConfig {
	cfg := &ResolvedConfig{
		Model:           tenant.Model,
		FallbackModel:   tenant.FallbackModel,
		Temperature:     tenant.Temperature,
		TopP:            tenant.TopP,
		MaxOutputTokens: tenant.MaxOutputTokens,
		SystemPrompt:    tenant.SystemPrompt,
		Prompt:          tenant.Prompt,
		ResponseFormat:  tenant.ResponseFormat,
		MaxMessages:     tenant.MaxMessages,
	}

	var agentTools []schema.ToolDefinition
	var agentFS *schema.FileSearchDefaults
	if agent != nil {
		if agent.Model != "" {
			cfg.Model = agent.Model
		}
		if agent.Temperature != nil {
			cfg.Temperature = agent.Temperature
		}
		if agent.TopP != nil {
			cfg.TopP = agent.TopP
		}
		if agent.MaxOutputTokens != nil {
			cfg.MaxOutputTokens = agent.MaxOutputTokens
		}
		if agent.SystemPrompt != "" {
			cfg.SystemPrompt = agent.SystemPrompt
		}
		if agent.Prompt != nil && agent.Prompt.ID != "" {
			cfg.Prompt = agent.Prompt
		}
		if agent.ResponseFormat != nil {
			cfg.ResponseFormat = agent.ResponseFormat
		}
		agentTools = agent.Tools
		agentFS = agent.FileSearch
	}

	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.Temperature != nil {
		cfg.Temperature = req.Temperature
	}
	if req.TopP != nil {
		cfg.TopP = req.TopP
	}
	if req.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}
	if req.SystemPrompt != "" {
		cfg.SystemPrompt = req.SystemPrompt
	}
	if req.Prompt != nil && req.Prompt.ID != "" {
		cfg.Prompt = req.Prompt
	}
	if req.ResponseFormat != nil {
		cfg.ResponseFormat = req.ResponseFormat
	}

	cfg.Tools = ResolveTools(tenant.Tools, agentTools, req.Tools, agentFS, tenant.FileSearch)

	return cfg
}
