// Package session persists conversation turns per session in SQLite.
// History is replayed into prompts so follow-up questions can reference
// earlier answers.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/floatchat/floatchat/pkg/uuid"
)

// ErrSessionNotFound means the session has no stored turns.
var ErrSessionNotFound = errors.New("session: not found")

// Role is who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored conversation entry.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Pipeline  string    `json:"pipeline,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes turns. Appends within one session are serialized by
// a per-session lock so sequence numbers stay dense under concurrency;
// different sessions append in parallel. Locks are reference counted and
// evicted when the last in-flight append releases them, so the map never
// outgrows the number of concurrent appends.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sessionMutex
}

type sessionMutex struct {
	mu   sync.Mutex
	refs int
}

// NewStore wraps a migrated SQLite handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, locks: make(map[string]*sessionMutex)}
}

func (s *Store) lockSession(sessionID string) *sessionMutex {
	s.mu.Lock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sessionMutex{}
		s.locks[sessionID] = m
	}
	m.refs++
	s.mu.Unlock()

	m.mu.Lock()
	return m
}

func (s *Store) unlockSession(sessionID string, m *sessionMutex) {
	m.mu.Unlock()

	s.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

// AppendTurn stores one turn at the next sequence number and returns it.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, role Role, content, pipeline string) (*Turn, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session: empty session id")
	}

	lock := s.lockSession(sessionID)
	defer s.unlockSession(sessionID, lock)

	var seq int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM session_turn WHERE session_id = ?`,
		sessionID).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("session: next seq: %w", err)
	}

	turn := &Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Seq:       seq,
		Role:      role,
		Content:   content,
		Pipeline:  pipeline,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_turn (id, session_id, seq, role, content, pipeline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Seq, string(turn.Role), turn.Content, turn.Pipeline, turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("session: insert turn: %w", err)
	}
	return turn, nil
}

// History returns up to limit most recent turns in chronological order.
// limit <= 0 returns the full history.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	query := `
		SELECT id, session_id, seq, role, content, pipeline, created_at
		FROM session_turn
		WHERE session_id = ?
		ORDER BY seq DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session: load history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &role, &t.Content, &t.Pipeline, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("session: scan turn: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate history: %w", err)
	}
	if len(turns) == 0 {
		return nil, ErrSessionNotFound
	}

	// Newest-first query for the LIMIT; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
