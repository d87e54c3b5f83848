package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id TEXT PRIMARY KEY,
    user_query      TEXT NOT NULL,
    bot_response    TEXT NOT NULL,
    intent          TEXT NOT NULL DEFAULT '',
    strategy        TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);
`

// ConversationStore archives exchanges in a local SQLite file.
type ConversationStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted for tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewConversationStore creates the table if needed.
func NewConversationStore(db *sql.DB) (*ConversationStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("conversation schema: %w", err)
	}
	return &ConversationStore{db: db}, nil
}

func (s *ConversationStore) Log(ctx context.Context, record domain.ConversationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversations (conversation_id, user_query, bot_response, intent, strategy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ConversationID, record.Query, record.Response, string(record.Intent), record.Strategy,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *ConversationStore) ListRecent(ctx context.Context, limit int) ([]domain.ConversationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_query, bot_response, intent, strategy, created_at
		 FROM conversations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversationRecord
	for rows.Next() {
		var (
			record    domain.ConversationRecord
			intent    string
			createdAt string
		)
		if err := rows.Scan(&record.ConversationID, &record.Query, &record.Response, &intent, &record.Strategy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		record.Intent = domain.Intent(intent)
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
