package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// ErrConversationNotFound is returned by Get for an unknown conversation id.
var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrently starting processes.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024050101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS faq_conversations (
	conversation_id TEXT PRIMARY KEY,
	user_query TEXT NOT NULL,
	bot_response TEXT NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_faq_conversations_created_at ON faq_conversations(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Log archives a record. Re-logging the same conversation id replaces the earlier row.
func (r *ConversationRepository) Log(ctx context.Context, record domain.ConversationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO faq_conversations (conversation_id, user_query, bot_response, intent, strategy, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (conversation_id) DO UPDATE
SET user_query = EXCLUDED.user_query, bot_response = EXCLUDED.bot_response,
	intent = EXCLUDED.intent, strategy = EXCLUDED.strategy, created_at = EXCLUDED.created_at
`, record.ConversationID, record.Query, record.Response, string(record.Intent), record.Strategy, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, conversationID string) (*domain.ConversationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT conversation_id, user_query, bot_response, intent, strategy, created_at
FROM faq_conversations
WHERE conversation_id = $1
`, conversationID)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get conversation %s: %w", conversationID, ErrConversationNotFound)
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return record, nil
}

// ListRecent returns up to limit records, newest first.
func (r *ConversationRepository) ListRecent(ctx context.Context, limit int) ([]domain.ConversationRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT conversation_id, user_query, bot_response, intent, strategy, created_at
FROM faq_conversations
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.ConversationRecord, error) {
	var (
		record domain.ConversationRecord
		intent string
	)
	if err := row.Scan(
		&record.ConversationID,
		&record.Query,
		&record.Response,
		&intent,
		&record.Strategy,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.Intent = domain.Intent(intent)
	return &record, nil
}
