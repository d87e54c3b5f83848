package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ConversationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ConversationRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS faq_conversations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogInsertsRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO faq_conversations").
		WithArgs("conv-1", "退貨流程？", "請於七日內申請。", "policy_inquiry", "direct", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Log(context.Background(), domain.ConversationRecord{
		ConversationID: "conv-1",
		Query:          "退貨流程？",
		Response:       "請於七日內申請。",
		Intent:         domain.IntentPolicyInquiry,
		Strategy:       "direct",
		CreatedAt:      createdAt,
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogWrapsDriverError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO faq_conversations").WillReturnError(errors.New("connection reset"))

	err := repo.Log(context.Background(), domain.ConversationRecord{ConversationID: "conv-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT conversation_id, user_query").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentScansRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"conversation_id", "user_query", "bot_response", "intent", "strategy", "created_at"}).
		AddRow("b", "q2", "r2", "product_inquiry", "fallback_product", now.Add(time.Minute)).
		AddRow("a", "q1", "r1", "handoff", "handoff", now)
	mock.ExpectQuery("SELECT conversation_id, user_query").WithArgs(2).WillReturnRows(rows)

	records, err := repo.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 2 || records[0].ConversationID != "b" || records[1].Intent != domain.IntentHandoff {
		t.Fatalf("unexpected records %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
