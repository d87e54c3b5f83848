package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

// ReportRow is one processed query.
type ReportRow struct {
	Position       int
	ConversationID string
	Query          string
	Intent         string
	Path           string
	Strategy       string
	TopScore       float64
	Response       string
}

var reportHeader = []string{"position", "conversation_id", "query", "intent", "path", "strategy", "top_score", "response"}

// Runner processes batch queries one at a time and echoes each answer to out.
type Runner struct {
	processor ports.QueryTracer
	out       io.Writer
	logger    *slog.Logger
}

func NewRunner(processor ports.QueryTracer, out io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{processor: processor, out: out, logger: logger}
}

func (r *Runner) Run(ctx context.Context, queries []Query, skipped []Skipped, total int) []ReportRow {
	for _, s := range skipped {
		r.logger.Warn("skipping malformed entry", "position", s.Position, "reason", s.Reason, "data", s.Raw)
		fmt.Fprintf(r.out, "\nWARNING: Skipped malformed entry #%d. Check the application log for details.\n\n", s.Position)
	}

	rows := make([]ReportRow, 0, len(queries))
	rule := strings.Repeat("=", 80)
	for _, q := range queries {
		if ctx.Err() != nil {
			r.logger.Warn("batch interrupted", "processed", len(rows), "remaining", len(queries)-len(rows))
			break
		}
		r.logger.Info("processing query", "position", q.Position, "total", total, "query", q.Text)

		trace := r.processor.ProcessQueryDetailed(ctx, q.Text)
		row := ReportRow{
			Position:       q.Position,
			ConversationID: trace.ConversationID,
			Query:          q.Text,
			Intent:         string(trace.Intent),
			Path:           string(trace.Path),
			TopScore:       trace.Decision.TopScore,
			Response:       trace.Answer,
		}
		if trace.Path != domain.PathHandoff {
			row.Strategy = trace.Decision.Strategy.String()
		}
		rows = append(rows, row)

		fmt.Fprintln(r.out, rule)
		fmt.Fprintf(r.out, "Query (%d/%d): %s\n", q.Position, total, q.Text)
		fmt.Fprintf(r.out, "Response: %s\n", trace.Answer)
		fmt.Fprintln(r.out, rule+"\n")
	}
	return rows
}
