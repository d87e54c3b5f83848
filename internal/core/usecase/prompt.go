package usecase

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const defaultProductSampleCount = 3

// DefaultSystemPrompt is used when no system prompt file is configured.
const DefaultSystemPrompt = `你是一位專業、友善的線上客服助理，負責回答顧客關於商品、訂單、付款、配送與退換貨的問題。

行為準則：
1. 「直接回答模式」：只根據提供的參考資料回答，不要捏造資料中沒有的資訊；若資料附有參考連結，請在回答最後附上。
2. 「購物引導模式」：根據提供的產品範例，簡要介紹產品的大致方向，並邀請顧客提供更具體的需求（例如尺寸、用途、預算）。
3. 「通用協助模式」：禮貌地說明目前找不到明確答案，提供一般性的建議，並告知顧客可以要求轉接真人客服。

請一律使用繁體中文，語氣親切且簡潔。`

// PromptComposer renders the user prompt for the selected strategy.
type PromptComposer struct {
	sampler     ports.ProductSampler
	sampleCount int
}

func NewPromptComposer(sampler ports.ProductSampler, sampleCount int) *PromptComposer {
	if sampleCount <= 0 {
		sampleCount = defaultProductSampleCount
	}
	return &PromptComposer{sampler: sampler, sampleCount: sampleCount}
}

func (c *PromptComposer) Compose(strategy domain.Strategy, query string, docs []domain.RankedDocument) (string, error) {
	switch strategy {
	case domain.StrategyDirect:
		return directPrompt(query, docs), nil
	case domain.StrategyFallbackProduct:
		var products []domain.Document
		if c.sampler != nil {
			products = c.sampler.Sample(c.sampleCount)
		}
		return productFallbackPrompt(query, products), nil
	case domain.StrategyFallbackGeneric:
		return genericFallbackPrompt(query), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "compose prompt", fmt.Errorf("unknown strategy %d", strategy))
	}
}

func directPrompt(query string, docs []domain.RankedDocument) string {
	var refs strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&refs, "--- 參考資料 %d ---\n", i+1)
		fmt.Fprintf(&refs, "內容: %s\n", doc.Document.Content)
		if url := doc.Document.MetadataString("url"); url != "" {
			fmt.Fprintf(&refs, "參考連結: %s\n", url)
		}
		refs.WriteString("-----------------\n\n")
	}

	return fmt.Sprintf("情境模式: 直接回答模式\n\n[參考資料]\n%s\n\n[提問]\n%s", refs.String(), query)
}

func productFallbackPrompt(query string, products []domain.Document) string {
	var refs strings.Builder
	for i, product := range products {
		fmt.Fprintf(&refs, "--- 產品範例 %d ---\n", i+1)
		fmt.Fprintf(&refs, "%s\n", product.Content)
		fmt.Fprintf(&refs, "參考連結: %s\n", product.MetadataString("url"))
		refs.WriteString("-----------------\n\n")
	}

	return fmt.Sprintf(
		"情境模式: 購物引導模式\n\n使用者的原始問題是：「%s」。\n"+
			"由於在 FAQ 中找不到直接答案，請根據以下「產品範例」，生成一段友善的回應，"+
			"向使用者介紹我們產品的大致方向，並引導他們提供更具體的需求。\n\n[產品範例]\n%s",
		query,
		refs.String(),
	)
}

func genericFallbackPrompt(query string) string {
	return fmt.Sprintf(
		"情境模式: 通用協助模式\n\n使用者的原始問題是：「%s」。\n"+
			"由於在 FAQ 中找不到直接答案，請根據你在通用協助模式下的行為準則來回應。",
		query,
	)
}

// RandomProductSampler draws products uniformly without replacement.
type RandomProductSampler struct {
	products domain.Corpus

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomProductSampler samples from products. A nil rng uses a randomly seeded source.
func NewRandomProductSampler(products domain.Corpus, rng *rand.Rand) *RandomProductSampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomProductSampler{products: products, rng: rng}
}

func (s *RandomProductSampler) Sample(n int) []domain.Document {
	total := s.products.Len()
	if n > total {
		n = total
	}
	if n <= 0 {
		return []domain.Document{}
	}

	s.mu.Lock()
	perm := s.rng.Perm(total)
	s.mu.Unlock()

	out := make([]domain.Document, n)
	for i := 0; i < n; i++ {
		out[i] = s.products.Documents[perm[i]]
	}
	return out
}
