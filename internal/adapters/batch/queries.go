package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Query is one entry of a batch file.
type Query struct {
	Position int
	Text     string
}

// Skipped describes a malformed batch entry.
type Skipped struct {
	Position int
	Reason   string
	Raw      string
}

type message struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type conversation struct {
	Messages []message `json:"messages"`
}

var (
	errNoMessages    = errors.New("missing 'messages' key or empty messages list")
	errNoUserMessage = errors.New("no valid user message found")
)

// ParseQueries reads a JSON array of {"messages":[{"role","content"}]} objects and takes
// the first user message of each. Malformed entries are returned as skipped, positions are
// 1-based.
func ParseQueries(r io.Reader) ([]Query, []Skipped, error) {
	var entries []json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, nil, fmt.Errorf("decode batch file: %w", err)
	}

	queries := make([]Query, 0, len(entries))
	var skipped []Skipped
	for i, raw := range entries {
		text, err := firstUserMessage(raw)
		if err != nil {
			skipped = append(skipped, Skipped{Position: i + 1, Reason: err.Error(), Raw: string(raw)})
			continue
		}
		queries = append(queries, Query{Position: i + 1, Text: text})
	}
	return queries, skipped, nil
}

func firstUserMessage(raw json.RawMessage) (string, error) {
	var conv conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return "", errNoMessages
	}
	if len(conv.Messages) == 0 {
		return "", errNoMessages
	}
	for _, m := range conv.Messages {
		if m.Role != "user" {
			continue
		}
		if m.Content == nil {
			return "", errNoUserMessage
		}
		return *m.Content, nil
	}
	return "", errNoUserMessage
}
