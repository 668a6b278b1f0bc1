// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"errors"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/provider"
)

// Sentinel errors every backend wraps, so callers classify failures with
// errors.Is instead of matching message text.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Message is one entry in a conversation history. Ordering is
// chronological; a system message, when present, is always first.
type Message struct {
	Role      string    `json:"role"` // "system", "user", "assistant", "tool"
	Content   string    `json:"content"`
	FileIDs   []string  `json:"file_ids,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Conversation is the stored history for one conversation id.
type Conversation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TruncateMessages applies the history cap, dropping the oldest entries
// first. A cap of zero or less leaves the slice untouched.
func TruncateMessages(messages []Message, maxMessages int) []Message {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		return messages
	}
	return messages[len(messages)-maxMessages:]
}

// ConversationStore is the persistence contract for chat history. Save
// applies the max-message truncation exactly once; callers never truncate
// themselves.
type ConversationStore interface {
	// LoadConversation returns the stored history for a conversation, or
	// an empty slice when the conversation does not exist yet.
	LoadConversation(ctx context.Context, tenantID, conversationID string) ([]Message, error)

	// SaveConversation replaces the stored history, truncated to
	// maxMessages (oldest dropped first) when maxMessages is positive.
	SaveConversation(ctx context.Context, tenantID, conversationID string, messages []Message, maxMessages int) error

	// DeleteConversation removes a conversation and its history.
	DeleteConversation(ctx context.Context, tenantID, conversationID string) error

	// ListConversations returns conversation metadata for a tenant.
	ListConversations(ctx context.Context, tenantID string) ([]*Conversation, error)
}

// TenantStore manages tenant settings, the base precedence tier.
type TenantStore interface {
	CreateTenant(ctx context.Context, tenant *schema.TenantSettings) error
	GetTenant(ctx context.Context, tenantID string) (*schema.TenantSettings, error)
	UpdateTenant(ctx context.Context, tenant *schema.TenantSettings) error
	DeleteTenant(ctx context.Context, tenantID string) error
	ListTenants(ctx context.Context) ([]*schema.TenantSettings, error)
}

// Store bundles the three persistence contracts a storage backend must
// satisfy.
type Store interface {
	ConversationStore
	TenantStore
	AgentStore
}

// Backends is the registry of storage backend factories. Implementations
// self-register via init(); blank-import a backend package to activate it.
var Backends = provider.NewRegistry[Store]("storage")

// AgentStore manages agent profiles, the middle precedence tier.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *schema.AgentProfile) error
	GetAgent(ctx context.Context, tenantID, agentID string) (*schema.AgentProfile, error)
	UpdateAgent(ctx context.Context, agent *schema.AgentProfile) error
	DeleteAgent(ctx context.Context, tenantID, agentID string) error
	ListAgents(ctx context.Context, tenantID string) ([]*schema.AgentProfile, error)
}
