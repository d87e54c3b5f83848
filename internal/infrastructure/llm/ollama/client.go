package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
)

const defaultEmbedBatchSize = 32

type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, chatModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// ChatModel talks to /api/chat without retries; callers decide how to retry.
type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

func (m *ChatModel) Model() string {
	return m.client.chatModel
}

func (m *ChatModel) Complete(ctx context.Context, req domain.ChatRequest) (domain.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	payload := chatRequest{
		Model:    m.client.chatModel,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}
	if req.JSON {
		payload.Format = "json"
	}

	var response chatResponse
	if err := m.client.postJSON(ctx, "/api/chat", payload, &response, "chat"); err != nil {
		return domain.Completion{}, err
	}

	completion := domain.Completion{
		Text:         strings.TrimSpace(response.Message.Content),
		FinishReason: response.DoneReason,
	}
	if response.PromptEvalCount > 0 || response.EvalCount > 0 {
		completion.Usage = &domain.Usage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
			TotalTokens:      response.PromptEvalCount + response.EvalCount,
		}
	}
	return completion, nil
}

// Embedder calls /api/embed in batches through the resilience executor.
type Embedder struct {
	client    *Client
	executor  *resilience.Executor
	batchSize int
}

func NewEmbedder(client *Client, executor *resilience.Executor) *Embedder {
	return &Embedder{client: client, executor: executor, batchSize: defaultEmbedBatchSize}
}

func (e *Embedder) Model() string {
	return e.client.embedModel
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(batch), end-start)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	call := func(ctx context.Context) ([][]float32, error) {
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return nil, err
		}
		return response.Embeddings, nil
	}

	if e.executor == nil {
		return call(ctx)
	}
	vectors, err := resilience.Call(ctx, e.executor, "ollama.embed", call, resilience.ClassifyHTTP)
	if err != nil {
		return nil, resilience.WrapTemporary("ollama embed", err, resilience.ClassifyHTTP)
	}
	return vectors, nil
}
