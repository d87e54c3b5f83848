package domain

import "time"

type Intent string

const (
	IntentHandoff        Intent = "handoff"
	IntentProductInquiry Intent = "product_inquiry"
	IntentPolicyInquiry  Intent = "policy_inquiry"
)

// ParseIntent maps a classifier label to an Intent.
func ParseIntent(label string) (Intent, bool) {
	switch Intent(label) {
	case IntentHandoff, IntentProductInquiry, IntentPolicyInquiry:
		return Intent(label), true
	default:
		return "", false
	}
}

// Strategy is the response strategy selected by the confidence gate.
type Strategy int

const (
	StrategyDirect Strategy = iota + 1
	StrategyFallbackProduct
	StrategyFallbackGeneric
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyFallbackProduct:
		return "fallback_product"
	case StrategyFallbackGeneric:
		return "fallback_generic"
	default:
		return "unknown"
	}
}

// Decision is the confidence gate outcome together with the score it was made on.
type Decision struct {
	Strategy Strategy `json:"strategy"`
	TopScore float64  `json:"top_score"`
}

// RetrievalPath records which branch of the pipeline produced the context.
type RetrievalPath string

const (
	PathHandoff      RetrievalPath = "handoff"
	PathGoldenTicket RetrievalPath = "golden_ticket"
	PathHybrid       RetrievalPath = "hybrid_rerank"
)

// Usage is token accounting reported by a generation backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRequest is a single system+user exchange sent to a chat model.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSON asks the backend to constrain output to a JSON object where supported.
	JSON bool
}

// FinishReasonContentFilter marks a completion the provider withheld.
const FinishReasonContentFilter = "content_filter"

// Completion is a raw chat completion before retry/fallback handling.
type Completion struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// QueryTrace describes how a single query travelled through the pipeline.
type QueryTrace struct {
	ConversationID string           `json:"conversation_id"`
	Query          string           `json:"query"`
	Intent         Intent           `json:"intent"`
	Path           RetrievalPath    `json:"path"`
	Decision       Decision         `json:"decision"`
	Results        []RankedDocument `json:"results,omitempty"`
	Candidates     []int            `json:"candidates,omitempty"`
	Answer         string           `json:"answer"`
	Usage          *Usage           `json:"usage,omitempty"`
}

// ConversationRecord is one archived query/response exchange.
type ConversationRecord struct {
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	Intent         Intent    `json:"intent,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Canned responses returned without (or instead of) generation.
const (
	HandoffMessage        = "已為您轉接真人客服，請稍候。"
	ApologyRetryExhausted = "抱歉，系統暫時無法處理您的請求。請稍後再試或調整您的問題。"
	ApologyUnexpected     = "抱歉，系統發生未預期的錯誤，請稍後再試。"
)
