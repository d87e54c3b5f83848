package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const (
	intentSystemPrompt = "You are an expert in classifying user intent."
	intentMaxTokens    = 50
)

// IntentClassifier asks a chat model for a JSON intent label.
type IntentClassifier struct {
	model ports.ChatModel
}

func NewIntentClassifier(model ports.ChatModel) *IntentClassifier {
	return &IntentClassifier{model: model}
}

func (c *IntentClassifier) Classify(ctx context.Context, query string) (domain.Intent, error) {
	completion, err := c.model.Complete(ctx, domain.ChatRequest{
		SystemPrompt: intentSystemPrompt,
		UserPrompt:   buildIntentPrompt(query),
		Temperature:  0,
		MaxTokens:    intentMaxTokens,
		JSON:         true,
	})
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(completion.Text)), &parsed); err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse intent json", err)
	}
	intent, ok := domain.ParseIntent(strings.TrimSpace(parsed.Intent))
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse intent json", fmt.Errorf("unknown intent %q", parsed.Intent))
	}
	return intent, nil
}

func buildIntentPrompt(query string) string {
	return `Analyze the user's query and classify it into ONE of the following intents.
Respond ONLY with a valid JSON object of the form {"intent": "<intent>"}.

Intents:
- "handoff": The user explicitly asks for a human agent. Keywords: 真人, 人工, 客服, agent, human.
- "product_inquiry": The user is asking about product features, recommendations, comparisons, or specific SKUs.
- "policy_inquiry": The user is asking about non-product related company policies like shipping, payment, warranty, returns, etc.

User Query: "` + query + `"

JSON Response:`
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
