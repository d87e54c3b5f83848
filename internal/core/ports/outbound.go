package ports

import (
	"context"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// DocumentLoader loads the FAQ and product corpora once at startup.
type DocumentLoader interface {
	Load(ctx context.Context) (faq domain.Corpus, products domain.Corpus, err error)
}

// IntentClassifier labels a query with one of the known intents.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) (domain.Intent, error)
}

// ChatModel is a raw chat completion backend without retry or fallback handling.
type ChatModel interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.Completion, error)
	Model() string
}

// Generator produces the final answer text. It retries internally and returns a fixed
// apology with nil usage once its retry budget is exhausted.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt, conversationID string) (string, *domain.Usage)
}

// ScriptConverter is a lossless script transform applied to the final answer only.
type ScriptConverter interface {
	Convert(text string) (string, error)
}

// ConversationLogger archives a finished exchange.
type ConversationLogger interface {
	Log(ctx context.Context, record domain.ConversationRecord) error
}

// Embedder builds vectors for documents and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RelevanceModel scores (query, text) pairs directly, one score per text in input order.
type RelevanceModel interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
