package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

type connFake struct {
	subject string
	data    []byte
	err     error
	closed  bool
}

func (f *connFake) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func (f *connFake) Close() {
	f.closed = true
}

func TestLogPublishesJSONRecord(t *testing.T) {
	fake := &connFake{}
	pub := newPublisher(fake, "", nil)

	err := pub.Log(context.Background(), domain.ConversationRecord{
		ConversationID: "conv-1",
		Query:          "退貨流程？",
		Response:       "請於七日內申請。",
		Intent:         domain.IntentPolicyInquiry,
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if fake.subject != "faq.conversations" {
		t.Fatalf("unexpected subject %q", fake.subject)
	}

	var got domain.ConversationRecord
	if err := json.Unmarshal(fake.data, &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.ConversationID != "conv-1" || got.Intent != domain.IntentPolicyInquiry {
		t.Fatalf("unexpected event %+v", got)
	}

	pub.Close()
	if !fake.closed {
		t.Fatalf("expected connection to be closed")
	}
}

func TestLogMarksConnectionErrorsTemporary(t *testing.T) {
	pub := newPublisher(&connFake{err: nats.ErrConnectionClosed}, "events", nil)

	err := pub.Log(context.Background(), domain.ConversationRecord{ConversationID: "conv-1"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestLogKeepsPermanentErrors(t *testing.T) {
	pub := newPublisher(&connFake{err: nats.ErrBadSubject}, "events", nil)

	err := pub.Log(context.Background(), domain.ConversationRecord{ConversationID: "conv-1"})
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if !errors.Is(err, nats.ErrBadSubject) {
		t.Fatalf("expected wrapped nats error, got %v", err)
	}
}
