package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const ToolName = "faq_answer"

// Server exposes the query pipeline as a single MCP tool.
type Server struct {
	processor ports.QueryTracer
	logger    *slog.Logger
	mcp       *server.MCPServer
}

func NewServer(name, version string, processor ports.QueryTracer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		processor: processor,
		logger:    logger,
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Answer a customer question from the FAQ knowledge base. Returns the answer text followed by a JSON line describing the retrieval decision."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The customer's question, verbatim."),
		),
	)
	s.mcp.AddTool(tool, s.handleAnswer)
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type decisionSummary struct {
	ConversationID string  `json:"conversation_id"`
	Intent         string  `json:"intent"`
	Path           string  `json:"path"`
	Strategy       string  `json:"strategy,omitempty"`
	TopScore       float64 `json:"top_score"`
	Sources        []int   `json:"sources"`
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	trace := s.processor.ProcessQueryDetailed(ctx, query)
	s.logger.Info("mcp tool call", "tool", ToolName, "conversation_id", trace.ConversationID)

	summary := decisionSummary{
		ConversationID: trace.ConversationID,
		Intent:         string(trace.Intent),
		Path:           string(trace.Path),
		TopScore:       trace.Decision.TopScore,
		Sources:        make([]int, 0, len(trace.Results)),
	}
	if trace.Path != domain.PathHandoff {
		summary.Strategy = trace.Decision.Strategy.String()
	}
	for _, doc := range trace.Results {
		summary.Sources = append(summary.Sources, doc.Index)
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal decision summary: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(trace.Answer),
			mcp.NewTextContent(string(raw)),
		},
	}, nil
}
