package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
)

const (
	generationTemperature = 0.3
	generationMaxTokens   = 1024
)

var errContentFiltered = errors.New("response flagged by content filter")

type Pricing struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// Cost estimates the USD cost of usage.
func (p Pricing) Cost(usage domain.Usage) float64 {
	return float64(usage.PromptTokens)/1000*p.PromptPer1K +
		float64(usage.CompletionTokens)/1000*p.CompletionPer1K
}

// UsageRecorder receives token accounting and fallback events, typically metrics.
type UsageRecorder interface {
	RecordTokenUsage(model string, usage domain.Usage, costUSD float64)
	RecordGenerationFallback(reason string)
}

// Generator produces final answers through the executor's retry budget. It never returns
// an error: failures become one of the fixed apology messages.
type Generator struct {
	model      ports.ChatModel
	executor   *resilience.Executor
	classifier resilience.ErrorClassifier
	pricing    Pricing
	recorder   UsageRecorder
	logger     *slog.Logger
}

func NewGenerator(
	model ports.ChatModel,
	executor *resilience.Executor,
	classifier resilience.ErrorClassifier,
	pricing Pricing,
	recorder UsageRecorder,
	logger *slog.Logger,
) *Generator {
	if classifier == nil {
		classifier = resilience.ClassifyHTTP
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		model:      model,
		executor:   executor,
		classifier: classifier,
		pricing:    pricing,
		recorder:   recorder,
		logger:     logger,
	}
}

func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt, conversationID string) (string, *domain.Usage) {
	logger := g.logger.With("logger", "app", "conversation_id", conversationID)
	req := domain.ChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  generationTemperature,
		MaxTokens:    generationMaxTokens,
	}

	completion, err := resilience.Call(ctx, g.executor, "llm.generate", func(ctx context.Context) (domain.Completion, error) {
		completion, err := g.model.Complete(ctx, req)
		if err != nil {
			return domain.Completion{}, err
		}
		if completion.FinishReason == domain.FinishReasonContentFilter {
			logger.Error("content filter triggered, the prompt may contain sensitive words")
			return domain.Completion{}, errContentFiltered
		}
		return completion, nil
	}, g.classify)
	if err != nil {
		if g.classify(err).Retryable {
			logger.Error("generation failed after retries", "error", err)
			g.recordFallback("retries_exhausted")
			return domain.ApologyRetryExhausted, nil
		}
		logger.Error("generation failed", "error", err)
		g.recordFallback("unexpected")
		return domain.ApologyUnexpected, nil
	}

	if completion.Usage != nil {
		g.logUsage(conversationID, *completion.Usage)
	}
	return completion.Text, completion.Usage
}

func (g *Generator) classify(err error) resilience.ErrorClassification {
	if errors.Is(err, errContentFiltered) {
		return resilience.ErrorClassification{Retryable: true}
	}
	return g.classifier(err)
}

func (g *Generator) logUsage(conversationID string, usage domain.Usage) {
	cost := g.pricing.Cost(usage)
	g.logger.Info("llm usage",
		"logger", "cost",
		"conversation_id", conversationID,
		"model", g.model.Model(),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"estimated_cost_usd", cost,
	)
	if g.recorder != nil {
		g.recorder.RecordTokenUsage(g.model.Model(), usage, cost)
	}
}

func (g *Generator) recordFallback(reason string) {
	if g.recorder != nil {
		g.recorder.RecordGenerationFallback(reason)
	}
}
