package localfs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

const separator = "=================================================="

// ConversationStore writes one text file per conversation under basePath.
type ConversationStore struct {
	basePath string
}

func New(basePath string) (*ConversationStore, error) {
	if basePath == "" {
		basePath = "./logs/conversations"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation dir: %w", err)
	}
	return &ConversationStore{basePath: basePath}, nil
}

// Log overwrites <basePath>/<conversation_id>.log with the exchange.
func (s *ConversationStore) Log(_ context.Context, record domain.ConversationRecord) error {
	id := strings.TrimSpace(record.ConversationID)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return domain.WrapError(domain.ErrInvalidInput, "log conversation", fmt.Errorf("bad conversation id %q", record.ConversationID))
	}

	path := filepath.Join(s.basePath, id+".log")
	if err := os.WriteFile(path, Render(record), 0o644); err != nil {
		return fmt.Errorf("write conversation file: %w", err)
	}
	return nil
}

// Open returns the archived text of a conversation.
func (s *ConversationStore) Open(_ context.Context, conversationID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.Base(conversationID)+".log"))
	if err != nil {
		return nil, fmt.Errorf("open conversation file: %w", err)
	}
	return data, nil
}

// Render formats a record in the conversation file layout.
func Render(record domain.ConversationRecord) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "--- Conversation ID: %s ---\n", record.ConversationID)
	fmt.Fprintf(&b, "Timestamp: %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05,000"))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "User Query:\n%s\n", record.Query)
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Bot Response:\n%s\n", record.Response)
	b.WriteString(separator + "\n")
	return b.Bytes()
}
