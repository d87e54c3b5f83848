package archive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

type loggerFake struct {
	records []domain.ConversationRecord
	err     error
}

func (f *loggerFake) Log(_ context.Context, record domain.ConversationRecord) error {
	f.records = append(f.records, record)
	return f.err
}

func TestFanoutWritesToEverySinkDespiteFailures(t *testing.T) {
	broken := &loggerFake{err: errors.New("disk full")}
	healthy := &loggerFake{}
	fanout := NewFanout(Sink{Name: "file", Logger: broken}, Sink{Name: "nil", Logger: nil}, Sink{Name: "sqlite", Logger: healthy})

	if fanout.Len() != 2 {
		t.Fatalf("expected nil sink to be dropped, got %d sinks", fanout.Len())
	}

	err := fanout.Log(context.Background(), domain.ConversationRecord{ConversationID: "c1"})
	if err == nil || !strings.Contains(err.Error(), "file sink") {
		t.Fatalf("expected file sink error, got %v", err)
	}
	if len(broken.records) != 1 || len(healthy.records) != 1 {
		t.Fatalf("expected both sinks to receive the record")
	}
}

func TestFanoutWithoutSinksIsNoop(t *testing.T) {
	if err := NewFanout().Log(context.Background(), domain.ConversationRecord{}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
}
