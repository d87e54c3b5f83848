package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/faq-assistant/internal/config"
	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
	"github.com/kirillkom/faq-assistant/internal/core/usecase"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/archive"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/llm/ollama"
	openaichat "github.com/kirillkom/faq-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/loader"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/rerank/overlap"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/rerank/tei"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/text/opencc"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/text/segment"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/vector/cache"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/vector/memory"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/faq-assistant/internal/observability/logging"
	"github.com/kirillkom/faq-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPServerMetrics
	Pipeline    *usecase.QueryOrchestrator

	closers []func()
}

// New loads the corpora, builds both indices, wires every collaborator and returns an
// application ready to serve. Any error here is fatal.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: metrics.NewRegistry(),
	}
	appLog := logging.Channel(logger, logging.ChannelApp)

	faq, products, err := loader.New(cfg.KnowledgeBasePath, cfg.ProductsPath, appLog).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpora: %w", err)
	}

	systemPrompt, err := loadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return nil, err
	}

	segmenter, err := segment.New(cfg.SegmenterDictPath)
	if err != nil {
		return nil, fmt.Errorf("init segmenter: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), appLog)
	genExecutor := resilience.NewExecutor(
		resilience.GenerationConfig(cfg.MaxRetries, time.Duration(cfg.RetryBackoffMS)*time.Millisecond),
		appLog,
	)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder, err := cache.NewEmbedder(ollama.NewEmbedder(ollamaClient, executor), cfg.EmbedCacheSize)
	if err != nil {
		return nil, err
	}

	sparse, dense, err := BuildIndices(ctx, faq, segmenter, denseBuilder(cfg, embedder, executor), appLog)
	if err != nil {
		return nil, err
	}
	if err := ProbeDimension(ctx, embedder, dense, faq.Len()); err != nil {
		return nil, err
	}

	chat, classifier, err := chatModel(cfg, ollamaClient)
	if err != nil {
		return nil, err
	}

	pipelineMetrics := metrics.NewPipelineMetrics(app.Registry, service)
	app.HTTPMetrics = metrics.NewHTTPServerMetrics(app.Registry, service)

	generator := llm.NewGenerator(
		chat,
		genExecutor,
		classifier,
		llm.Pricing{PromptPer1K: cfg.PromptPricePer1K, CompletionPer1K: cfg.CompletionPricePer1K},
		pipelineMetrics,
		logger,
	)

	var converter ports.ScriptConverter
	if cfg.ScriptConversion != "none" {
		c, err := opencc.New(cfg.ScriptConversion)
		if err != nil {
			return nil, err
		}
		converter = c
	}

	conversations, err := app.conversationSinks(ctx, cfg, appLog)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Pipeline = usecase.NewQueryOrchestrator(usecase.QueryOrchestratorDeps{
		FAQ:           faq,
		Sparse:        sparse,
		Dense:         dense,
		Classifier:    llm.NewIntentClassifier(chat),
		GoldenTicket:  usecase.NewGoldenTicketVerifier(segmenter, cfg.BM25ConfidenceThreshold),
		Reranker:      usecase.NewRelevanceReranker(relevanceModel(cfg, segmenter, executor), cfg.RerankTopN),
		Gate:          usecase.NewConfidenceGate(cfg.FAQConfidenceThreshold),
		Composer:      usecase.NewPromptComposer(usecase.NewRandomProductSampler(products, nil), cfg.ProductSampleCount),
		Generator:     generator,
		Converter:     converter,
		Conversations: conversations,
		Observer:      pipelineMetrics,
		Logger:        logger,
	}, usecase.QueryOrchestratorOptions{
		SystemPrompt: systemPrompt,
		HybridTopK:   cfg.HybridSearchTopK,
		RRFK:         cfg.RRFK,
	})

	appLog.Info("pipeline ready",
		"faq_documents", faq.Len(),
		"product_documents", products.Len(),
		"dense_backend", cfg.DenseBackend,
		"llm_provider", cfg.LLMProvider,
		"reranker", cfg.RerankerProvider,
	)
	return app, nil
}

func (a *App) MetricsHandler() http.Handler {
	return metrics.Handler(a.Registry)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func loadSystemPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return usecase.DefaultSystemPrompt, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return usecase.DefaultSystemPrompt, nil
	}
	return prompt, nil
}

func denseBuilder(cfg config.Config, embedder ports.Embedder, executor *resilience.Executor) DenseBuilder {
	if cfg.DenseBackend == "qdrant" {
		return func(ctx context.Context, faq domain.Corpus) (ports.DenseIndex, error) {
			client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder, executor)
			if err := client.Build(ctx, faq); err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	return func(ctx context.Context, faq domain.Corpus) (ports.DenseIndex, error) {
		return memory.Build(ctx, embedder, faq.Documents)
	}
}

func chatModel(cfg config.Config, ollamaClient *ollama.Client) (ports.ChatModel, resilience.ErrorClassifier, error) {
	switch cfg.LLMProvider {
	case openaichat.ProviderOpenAI, openaichat.ProviderAzure:
		model, err := openaichat.New(openaichat.Config{
			Provider:        cfg.LLMProvider,
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			AzureEndpoint:   cfg.AzureEndpoint,
			AzureAPIVersion: cfg.AzureAPIVersion,
			Model:           cfg.ModelType,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init %s chat model: %w", cfg.LLMProvider, err)
		}
		return model, openaichat.ClassifyError, nil
	default:
		return ollama.NewChatModel(ollamaClient), resilience.ClassifyHTTP, nil
	}
}

func relevanceModel(cfg config.Config, tokenizer ports.Tokenizer, executor *resilience.Executor) ports.RelevanceModel {
	if cfg.RerankerProvider == "overlap" {
		return overlap.New(tokenizer)
	}
	return tei.New(cfg.RerankerURL, cfg.RerankerModelName, executor)
}

func (a *App) conversationSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.ConversationLogger, error) {
	var sinks []archive.Sink

	if cfg.HasSink("file") {
		store, err := localfs.New(cfg.ConversationLogsDir)
		if err != nil {
			return nil, fmt.Errorf("init conversation files: %w", err)
		}
		sinks = append(sinks, archive.Sink{Name: "file", Logger: store})
	}

	if cfg.HasSink("postgres") {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		repo := postgres.NewConversationRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, archive.Sink{Name: "postgres", Logger: repo})
	}

	if cfg.HasSink("sqlite") {
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		store, err := sqlite.NewConversationStore(db)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive.Sink{Name: "sqlite", Logger: store})
	}

	if cfg.HasSink("nats") {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init conversation events: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		sinks = append(sinks, archive.Sink{Name: "nats", Logger: publisher})
	}

	logger.Info("conversation sinks configured", "sinks", cfg.ConversationSinks)
	return archive.NewFanout(sinks...), nil
}
