// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/larook/chatstream-gw/pkg/core/schema"
	"github.com/larook/chatstream-gw/pkg/core/state"

	_ "modernc.org/sqlite"
)

func init() {
	state.Backends.Register("sqlite", func(_ context.Context, params map[string]string) (state.Store, error) {
		path := params["path"]
		if path == "" {
			path = "chatstream.db"
		}
		return New(path)
	})
}

// Store is a SQLite-backed implementation of state.Store, suitable for
// single-node deployments with no external database.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store. The path is a file path or ":memory:".
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			tenant_id TEXT NOT NULL,
			id TEXT NOT NULL,
			messages TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			settings TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agents (
			tenant_id TEXT NOT NULL,
			id TEXT NOT NULL,
			profile TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (tenant_id, id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite create tables: %w", err)
		}
	}
	return nil
}

// --- Conversation methods ---

func (s *Store) LoadConversation(ctx context.Context, tenantID, conversationID string) ([]state.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT messages FROM conversations WHERE tenant_id = ? AND id = ?`,
		tenantID, conversationID)

	var messagesJSON string
	err := row.Scan(&messagesJSON)
	if err == sql.ErrNoRows {
		return []state.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	var messages []state.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return messages, nil
}

func (s *Store) SaveConversation(ctx context.Context, tenantID, conversationID string, messages []state.Message, maxMessages int) error {
	truncated := state.TruncateMessages(messages, maxMessages)
	messagesJSON, err := json.Marshal(truncated)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (tenant_id, id, messages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		tenantID, conversationID, string(messagesJSON), now, now)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *Store) DeleteConversation(ctx context.Context, tenantID, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE tenant_id = ? AND id = ?`,
		tenantID, conversationID)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *Store) ListConversations(ctx context.Context, tenantID string) ([]*state.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, messages, created_at, updated_at FROM conversations
		 WHERE tenant_id = ? ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*state.Conversation
	for rows.Next() {
		conv := &state.Conversation{TenantID: tenantID}
		var messagesJSON string
		if err := rows.Scan(&conv.ID, &messagesJSON, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// --- Tenant methods ---

func (s *Store) CreateTenant(ctx context.Context, tenant *schema.TenantSettings) error {
	settingsJSON, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("marshal tenant: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, settings, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		tenant.ID, string(settingsJSON), now, now)
	if err != nil {
		return fmt.Errorf("tenant %s: %w", tenant.ID, state.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*schema.TenantSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT settings FROM tenants WHERE id = ?`, tenantID)

	var settingsJSON string
	err := row.Scan(&settingsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, state.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}

	var tenant schema.TenantSettings
	if err := json.Unmarshal([]byte(settingsJSON), &tenant); err != nil {
		return nil, fmt.Errorf("unmarshal tenant: %w", err)
	}
	return &tenant, nil
}

func (s *Store) UpdateTenant(ctx context.Context, tenant *schema.TenantSettings) error {
	settingsJSON, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("marshal tenant: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET settings = ?, updated_at = ? WHERE id = ?`,
		string(settingsJSON), time.Now(), tenant.ID)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", tenant.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tenant %s: %w", tenant.ID, state.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, tenantID)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", tenantID, err)
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*schema.TenantSettings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT settings FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*schema.TenantSettings
	for rows.Next() {
		var settingsJSON string
		if err := rows.Scan(&settingsJSON); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		var tenant schema.TenantSettings
		if err := json.Unmarshal([]byte(settingsJSON), &tenant); err != nil {
			return nil, fmt.Errorf("unmarshal tenant: %w", err)
		}
		tenants = append(tenants, &tenant)
	}
	return tenants, rows.Err()
}

// --- Agent methods ---

func (s *Store) CreateAgent(ctx context.Context, agent *schema.AgentProfile) error {
	profileJSON, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (tenant_id, id, profile, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		agent.TenantID, agent.ID, string(profileJSON), now, now)
	if err != nil {
		return fmt.Errorf("agent %s: %w", agent.ID, state.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, tenantID, agentID string) (*schema.AgentProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile FROM agents WHERE tenant_id = ? AND id = ?`,
		tenantID, agentID)

	var profileJSON string
	err := row.Scan(&profileJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent %s: %w", agentID, state.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", agentID, err)
	}

	var agent schema.AgentProfile
	if err := json.Unmarshal([]byte(profileJSON), &agent); err != nil {
		return nil, fmt.Errorf("unmarshal agent: %w", err)
	}
	return &agent, nil
}

func (s *Store) UpdateAgent(ctx context.Context, agent *schema.AgentProfile) error {
	profileJSON, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE agents SET profile = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		string(profileJSON), time.Now(), agent.TenantID, agent.ID)
	if err != nil {
		return fmt.Errorf("update agent %s: %w", agent.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("agent %s: %w", agent.ID, state.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteAgent(ctx context.Context, tenantID, agentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agents WHERE tenant_id = ? AND id = ?`,
		tenantID, agentID)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", agentID, err)
	}
	return nil
}

func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]*schema.AgentProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile FROM agents WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*schema.AgentProfile
	for rows.Next() {
		var profileJSON string
		if err := rows.Scan(&profileJSON); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		var agent schema.AgentProfile
		if err := json.Unmarshal([]byte(profileJSON), &agent); err != nil {
			return nil, fmt.Errorf("unmarshal agent: %w", err)
		}
		agents = append(agents, &agent)
	}
	return agents, rows.Err()
}
