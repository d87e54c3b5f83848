package ports

import (
	"context"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// QueryProcessor is the inbound contract for answering a single user question.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string) string
}

// QueryTracer is implemented by processors that can also report the decision path.
type QueryTracer interface {
	ProcessQueryDetailed(ctx context.Context, query string) domain.QueryTrace
}
