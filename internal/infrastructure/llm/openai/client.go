package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

type Config struct {
	Provider        string
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	Model           string
}

// ChatModel calls the chat completions API of OpenAI or an Azure OpenAI deployment. SDK
// retries are disabled so the generator owns the retry budget.
type ChatModel struct {
	client openai.Client
	model  string
}

func New(cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderAzure:
		if strings.TrimSpace(cfg.AzureEndpoint) == "" {
			return nil, fmt.Errorf("azure endpoint is required")
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, cfg.AzureAPIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case "", ProviderOpenAI:
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if strings.TrimSpace(cfg.BaseURL) != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	default:
		return nil, fmt.Errorf("unsupported openai provider %q", cfg.Provider)
	}

	return &ChatModel{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (m *ChatModel) Model() string {
	return m.model
}

func (m *ChatModel) Complete(ctx context.Context, req domain.ChatRequest) (domain.Completion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, fmt.Errorf("openai chat completion: empty choices")
	}

	choice := resp.Choices[0]
	completion := domain.Completion{
		Text:         strings.TrimSpace(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
	}
	if resp.Usage.TotalTokens > 0 {
		completion.Usage = &domain.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return completion, nil
}

// ClassifyError maps API status codes onto the shared retry policy.
func ClassifyError(err error) resilience.ErrorClassification {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if resilience.RetryableStatus(apiErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	}
	return resilience.ClassifyHTTP(err)
}
