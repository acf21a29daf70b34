package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const chunkSchema = `
CREATE TABLE IF NOT EXISTS knowledge_chunk (
    id          TEXT PRIMARY KEY,
    category    TEXT NOT NULL,
    title       TEXT NOT NULL,
    content     TEXT NOT NULL,
    keywords    TEXT NOT NULL DEFAULT '[]',
    importance  REAL NOT NULL DEFAULT 0.5,
    token_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_knowledge_chunk_category ON knowledge_chunk(category);
`

// Store reads and writes chunks in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wraps a SQLite handle. Call Ensure before writing.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ensure creates the chunk table if missing. Skip on read-only databases.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, chunkSchema); err != nil {
		return fmt.Errorf("knowledge: create schema: %w", err)
	}
	return nil
}

// Insert stores one chunk, recomputing its token count from the content.
func (s *Store) Insert(ctx context.Context, c Chunk) error {
	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("knowledge: marshal keywords: %w", err)
	}
	tokens := c.TokenCount
	if tokens == 0 {
		tokens = EstimateTokens(c.Content)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_chunk (id, category, title, content, keywords, importance, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			title = excluded.title,
			content = excluded.content,
			keywords = excluded.keywords,
			importance = excluded.importance,
			token_count = excluded.token_count`,
		c.ID, string(c.Category), c.Title, c.Content, string(keywords), c.Importance, tokens)
	if err != nil {
		return fmt.Errorf("knowledge: insert chunk %s: %w", c.ID, err)
	}
	return nil
}

// LoadAll returns every chunk ordered by importance descending.
func (s *Store) LoadAll(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, title, content, keywords, importance, token_count
		FROM knowledge_chunk
		ORDER BY importance DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load chunks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var chunks []Chunk
	for rows.Next() {
		var (
			c           Chunk
			category    string
			keywordJSON string
		)
		if err := rows.Scan(&c.ID, &category, &c.Title, &c.Content, &keywordJSON, &c.Importance, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("knowledge: scan chunk: %w", err)
		}
		c.Category = Category(category)
		if err := json.Unmarshal([]byte(keywordJSON), &c.Keywords); err != nil {
			return nil, fmt.Errorf("knowledge: decode keywords for %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: iterate chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunk`).Scan(&n); err != nil {
		return 0, fmt.Errorf("knowledge: count chunks: %w", err)
	}
	return n, nil
}

// SeedBuiltin inserts the built-in chunk set if the store is empty.
func (s *Store) SeedBuiltin(ctx context.Context) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, c := range BuiltinChunks() {
		if err := s.Insert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the chunk set to retrieve from: the store's contents when a
// database is available, the built-in set otherwise.
func Load(ctx context.Context, db *sql.DB) ([]Chunk, error) {
	if db == nil {
		return BuiltinChunks(), nil
	}
	store := NewStore(db)
	chunks, err := store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return BuiltinChunks(), nil
	}
	return chunks, nil
}
