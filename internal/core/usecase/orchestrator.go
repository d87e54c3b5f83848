package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const defaultHybridTopK = 10

const (
	stageClassify = "classify"
	stageSparse   = "sparse"
	stageDense    = "dense"
	stageRerank   = "rerank"
	stageGenerate = "generate"
)

type QueryOrchestratorDeps struct {
	FAQ           domain.Corpus
	Sparse        ports.SparseIndex
	Dense         ports.DenseIndex
	Classifier    ports.IntentClassifier
	GoldenTicket  *GoldenTicketVerifier
	Reranker      *RelevanceReranker
	Gate          *ConfidenceGate
	Composer      *PromptComposer
	Generator     ports.Generator
	Converter     ports.ScriptConverter
	Conversations ports.ConversationLogger
	Observer      ports.QueryObserver
	Logger        *slog.Logger
}

type QueryOrchestratorOptions struct {
	SystemPrompt string
	HybridTopK   int
	RRFK         int
}

// QueryOrchestrator runs one query through classification, retrieval, the confidence gate,
// generation and post-processing. It never returns an error to its caller.
type QueryOrchestrator struct {
	deps QueryOrchestratorDeps
	opts QueryOrchestratorOptions

	newID func() string
	now   func() time.Time
}

func NewQueryOrchestrator(deps QueryOrchestratorDeps, opts QueryOrchestratorOptions) *QueryOrchestrator {
	if opts.HybridTopK <= 0 {
		opts.HybridTopK = defaultHybridTopK
	}
	if opts.RRFK <= 0 {
		opts.RRFK = defaultRRFK
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.Gate == nil {
		deps.Gate = NewConfidenceGate(defaultConfidenceThreshold)
	}

	return &QueryOrchestrator{
		deps:  deps,
		opts:  opts,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (o *QueryOrchestrator) ProcessQuery(ctx context.Context, query string) string {
	return o.ProcessQueryDetailed(ctx, query).Answer
}

func (o *QueryOrchestrator) ProcessQueryDetailed(ctx context.Context, query string) domain.QueryTrace {
	start := o.now()
	trace := domain.QueryTrace{
		ConversationID: o.newID(),
		Query:          query,
	}
	logger := o.deps.Logger.With("logger", "rag", "conversation_id", trace.ConversationID)
	logger.Info("query received", "query", query)

	trace.Intent = o.classify(ctx, query, logger)
	if trace.Intent == domain.IntentHandoff {
		trace.Path = domain.PathHandoff
		trace.Answer = domain.HandoffMessage
		logger.Info("handoff requested")
		o.archive(ctx, trace, "handoff", logger)
		o.deps.Observer.ObserveQuery(trace, time.Since(start))
		return trace
	}

	o.retrieve(ctx, query, &trace, logger)

	topScore := 0.0
	if len(trace.Results) > 0 {
		topScore = trace.Results[0].Score
	}
	trace.Decision = o.deps.Gate.Decide(topScore, trace.Intent)
	logger.Info("confidence gate decided",
		"strategy", trace.Decision.Strategy.String(),
		"top_score", topScore,
		"threshold", o.deps.Gate.Threshold(),
	)

	userPrompt, err := o.deps.Composer.Compose(trace.Decision.Strategy, query, trace.Results)
	if err != nil {
		logger.Error("compose prompt failed", "error", err)
		trace.Answer = domain.ApologyUnexpected
		o.archive(ctx, trace, trace.Decision.Strategy.String(), logger)
		o.deps.Observer.ObserveQuery(trace, time.Since(start))
		return trace
	}

	genStart := o.now()
	answer, usage := o.deps.Generator.Generate(ctx, o.opts.SystemPrompt, userPrompt, trace.ConversationID)
	o.deps.Observer.ObserveStage(stageGenerate, time.Since(genStart))
	if strings.TrimSpace(answer) == "" {
		logger.Warn("generator returned empty answer")
		answer = domain.ApologyRetryExhausted
		usage = nil
	}
	trace.Usage = usage
	trace.Answer = o.convert(answer, logger)

	o.archive(ctx, trace, trace.Decision.Strategy.String(), logger)
	o.deps.Observer.ObserveQuery(trace, time.Since(start))
	logger.Info("query completed",
		"path", string(trace.Path),
		"strategy", trace.Decision.Strategy.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return trace
}

func (o *QueryOrchestrator) classify(ctx context.Context, query string, logger *slog.Logger) domain.Intent {
	stageStart := o.now()
	intent, err := o.deps.Classifier.Classify(ctx, query)
	o.deps.Observer.ObserveStage(stageClassify, time.Since(stageStart))
	if err != nil {
		logger.Warn("intent classification failed, defaulting to policy inquiry", "error", err)
		return domain.IntentPolicyInquiry
	}
	logger.Info("intent classified", "intent", string(intent))
	return intent
}

func (o *QueryOrchestrator) retrieve(ctx context.Context, query string, trace *domain.QueryTrace, logger *slog.Logger) {
	stageStart := o.now()
	scores := o.deps.Sparse.Scores(query)
	o.deps.Observer.ObserveStage(stageSparse, time.Since(stageStart))

	ticket := o.deps.GoldenTicket.Verify(query, o.deps.FAQ, scores)
	o.deps.Observer.ObserveGoldenTicket(ticket.Reason)
	if ticket.Matched {
		logger.Info("golden ticket matched",
			"doc_index", ticket.TopIndex,
			"bm25_score", ticket.TopScore,
			"keywords", ticket.Keywords,
		)
		trace.Path = domain.PathGoldenTicket
		trace.Candidates = []int{ticket.TopIndex}
		trace.Results = []domain.RankedDocument{ticket.Document}
		return
	}
	logger.Info("golden ticket rejected",
		"reason", ticket.Reason,
		"bm25_score", ticket.TopScore,
		"threshold", o.deps.GoldenTicket.Threshold(),
		"keywords", ticket.Keywords,
	)

	trace.Path = domain.PathHybrid
	lists := []domain.RankedList{TopKLexical(scores, o.opts.HybridTopK)}

	stageStart = o.now()
	denseList, err := o.deps.Dense.Search(ctx, query, o.opts.HybridTopK)
	o.deps.Observer.ObserveStage(stageDense, time.Since(stageStart))
	if err != nil {
		logger.Warn("dense search failed, using lexical ranking only", "error", err)
	} else {
		lists = append(lists, denseList)
	}

	fused := FuseRankings(lists, o.opts.RRFK).Top(o.opts.HybridTopK)
	candidates := make([]int, 0, fused.Len()+1)
	if ticket.TopIndex >= 0 {
		candidates = append(candidates, ticket.TopIndex)
	}
	candidates = dedupeIndices(append(candidates, fused.Indices()...))
	trace.Candidates = candidates

	stageStart = o.now()
	results, err := o.deps.Reranker.Rerank(ctx, query, o.deps.FAQ, candidates)
	o.deps.Observer.ObserveStage(stageRerank, time.Since(stageStart))
	if err != nil {
		logger.Warn("rerank failed, continuing without context", "error", err)
		results = []domain.RankedDocument{}
	}
	trace.Results = results
	logger.Info("hybrid retrieval completed", "candidates", len(candidates), "results", len(results))
}

func (o *QueryOrchestrator) convert(answer string, logger *slog.Logger) string {
	if o.deps.Converter == nil {
		return answer
	}
	converted, err := o.deps.Converter.Convert(answer)
	if err != nil {
		logger.Warn("script conversion failed, keeping original answer", "error", err)
		return answer
	}
	return converted
}

func (o *QueryOrchestrator) archive(ctx context.Context, trace domain.QueryTrace, strategy string, logger *slog.Logger) {
	if o.deps.Conversations == nil {
		return
	}
	record := domain.ConversationRecord{
		ConversationID: trace.ConversationID,
		Query:          trace.Query,
		Response:       trace.Answer,
		Intent:         trace.Intent,
		Strategy:       strategy,
		CreatedAt:      o.now().UTC(),
	}
	if err := o.deps.Conversations.Log(ctx, record); err != nil {
		logger.Warn("conversation log failed", "error", err)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration) {}

func (noopObserver) ObserveGoldenTicket(string) {}

func (noopObserver) ObserveQuery(domain.QueryTrace, time.Duration) {}
