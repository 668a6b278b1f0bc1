// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"
)

func init() {
	state.Backends.Register("memory", func(_ context.Context, _ map[string]string) (state.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory implementation of state.Store.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*state.Conversation
	tenants       map[string]*schema.TenantSettings
	agents        map[string]*schema.AgentProfile
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		conversations: make(map[string]*state.Conversation),
		tenants:       make(map[string]*schema.TenantSettings),
		agents:        make(map[string]*schema.AgentProfile),
	}
}

func conversationKey(tenantID, conversationID string) string {
	return tenantID + "/" + conversationID
}

func agentKey(tenantID, agentID string) string {
	return tenantID + "/" + agentID
}

// LoadConversation returns the stored history, or an empty slice for a
// conversation that does not exist yet.
func (s *Store) LoadConversation(ctx context.Context, tenantID, conversationID string) ([]state.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[conversationKey(tenantID, conversationID)]
	if !exists {
		return []state.Message{}, nil
	}

	messages := make([]state.Message, len(conv.Messages))
	copy(messages, conv.Messages)
	return messages, nil
}

// SaveConversation replaces the stored history, applying the cap.
func (s *Store) SaveConversation(ctx context.Context, tenantID, conversationID string, messages []state.Message, maxMessages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	truncated := state.TruncateMessages(messages, maxMessages)
	stored := make([]state.Message, len(truncated))
	copy(stored, truncated)

	key := conversationKey(tenantID, conversationID)
	now := time.Now()
	if conv, exists := s.conversations[key]; exists {
		conv.Messages = stored
		conv.UpdatedAt = now
		return nil
	}

	s.conversations[key] = &state.Conversation{
		ID:        conversationID,
		TenantID:  tenantID,
		Messages:  stored,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// DeleteConversation removes a conversation
func (s *Store) DeleteConversation(ctx context.Context, tenantID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationKey(tenantID, conversationID))
	return nil
}

// ListConversations lists conversations for a tenant
func (s *Store) ListConversations(ctx context.Context, tenantID string) ([]*state.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []*state.Conversation
	for _, conv := range s.conversations {
		if conv.TenantID == tenantID {
			convs = append(convs, conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].CreatedAt.Before(convs[j].CreatedAt)
	})
	return convs, nil
}

// CreateTenant creates a new tenant
func (s *Store) CreateTenant(ctx context.Context, tenant *schema.TenantSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.ID]; exists {
		return fmt.Errorf("tenant %s: %w", tenant.ID, state.ErrAlreadyExists)
	}

	s.tenants[tenant.ID] = tenant
	return nil
}

// GetTenant retrieves a tenant by ID
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*schema.TenantSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, exists := s.tenants[tenantID]
	if !exists {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, state.ErrNotFound)
	}

	return tenant, nil
}

// UpdateTenant updates an existing tenant
func (s *Store) UpdateTenant(ctx context.Context, tenant *schema.TenantSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[tenant.ID]; !exists {
		return fmt.Errorf("tenant %s: %w", tenant.ID, state.ErrNotFound)
	}

	s.tenants[tenant.ID] = tenant
	return nil
}

// DeleteTenant deletes a tenant
func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tenants, tenantID)
	return nil
}

// ListTenants lists all tenants
func (s *Store) ListTenants(ctx context.Context) ([]*schema.TenantSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]*schema.TenantSettings, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		tenants = append(tenants, tenant)
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].ID < tenants[j].ID
	})
	return tenants, nil
}

// CreateAgent creates a new agent profile
func (s *Store) CreateAgent(ctx context.Context, agent *schema.AgentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey(agent.TenantID, agent.ID)
	if _, exists := s.agents[key]; exists {
		return fmt.Errorf("agent %s: %w", agent.ID, state.ErrAlreadyExists)
	}

	s.agents[key] = agent
	return nil
}

// GetAgent retrieves an agent profile
func (s *Store) GetAgent(ctx context.Context, tenantID, agentID string) (*schema.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, exists := s.agents[agentKey(tenantID, agentID)]
	if !exists {
		return nil, fmt.Errorf("agent %s: %w", agentID, state.ErrNotFound)
	}

	return agent, nil
}

// UpdateAgent updates an existing agent profile
func (s *Store) UpdateAgent(ctx context.Context, agent *schema.AgentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey(agent.TenantID, agent.ID)
	if _, exists := s.agents[key]; !exists {
		return fmt.Errorf("agent %s: %w", agent.ID, state.ErrNotFound)
	}

	s.agents[key] = agent
	return nil
}

// DeleteAgent deletes an agent profile
func (s *Store) DeleteAgent(ctx context.Context, tenantID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.agents, agentKey(tenantID, agentID))
	return nil
}

// ListAgents lists agent profiles for a tenant
func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]*schema.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var agents []*schema.AgentProfile
	for _, agent := range s.agents {
		if agent.TenantID == tenantID {
			agents = append(agents, agent)
		}
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].ID < agents[j].ID
	})
	return agents, nil
}
