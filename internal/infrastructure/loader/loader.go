package loader

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// CSVLoader reads the knowledge base and product catalogue. Either file may be a CSV or
// an .xlsx workbook; the first sheet is used.
type CSVLoader struct {
	knowledgeBasePath string
	productsPath      string
	logger            *slog.Logger
}

func New(knowledgeBasePath, productsPath string, logger *slog.Logger) *CSVLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVLoader{
		knowledgeBasePath: knowledgeBasePath,
		productsPath:      productsPath,
		logger:            logger,
	}
}

func (l *CSVLoader) Load(ctx context.Context) (domain.Corpus, domain.Corpus, error) {
	l.logger.Info("loading corpora", "knowledge_base", l.knowledgeBasePath, "products", l.productsPath)

	products, err := l.loadProducts()
	if err != nil {
		l.logger.Error("product data load failed", "path", l.productsPath, "error", err)
		return domain.Corpus{}, domain.Corpus{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Corpus{}, domain.Corpus{}, err
	}
	faq, err := l.loadKnowledgeBase()
	if err != nil {
		l.logger.Error("knowledge base load failed", "path", l.knowledgeBasePath, "error", err)
		return domain.Corpus{}, domain.Corpus{}, err
	}

	l.logger.Info("corpora loaded", "faq_documents", faq.Len(), "product_documents", products.Len())
	return faq, products, nil
}

func (l *CSVLoader) loadKnowledgeBase() (domain.Corpus, error) {
	t, err := readTable(l.knowledgeBasePath)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("load knowledge base: %w", err)
	}
	if err := t.require("title", "content"); err != nil {
		return domain.Corpus{}, domain.WrapError(domain.ErrInvalidInput, "load knowledge base", err)
	}

	docs := make([]domain.Document, 0, len(t.rows))
	for _, row := range t.rows {
		title := clean(t.value(row, "title"))
		content := clean(t.value(row, "content"))
		if title == "" && content == "" {
			continue
		}
		metadata := map[string]any{
			"source": "faq",
			"title":  title,
		}
		setIfPresent(metadata, "url", t.value(row, "urls/0/href"))
		setIfPresent(metadata, "image", t.value(row, "images/0"))
		docs = append(docs, domain.Document{
			Content:  fmt.Sprintf("問題分類: %s\n詳細內容: %s", title, content),
			Metadata: metadata,
		})
	}
	return domain.NewCorpus(domain.CorpusFAQ, docs), nil
}

func (l *CSVLoader) loadProducts() (domain.Corpus, error) {
	t, err := readTable(l.productsPath)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("load products: %w", err)
	}
	if err := t.require("name", "sku"); err != nil {
		return domain.Corpus{}, domain.WrapError(domain.ErrInvalidInput, "load products", err)
	}

	docs := make([]domain.Document, 0, len(t.rows))
	for _, row := range t.rows {
		name := clean(t.value(row, "name"))
		sku := clean(t.value(row, "sku"))
		if name == "" && sku == "" {
			continue
		}
		content := fmt.Sprintf(
			"產品名稱: %s\nSKU: %s\n核心規格:\n- 類型: %s\n- 最大支援尺寸: %s 吋\n- VESA: %s\n相容性說明: %s",
			name,
			sku,
			orDefault(t.value(row, "specs/arm_type"), "N/A"),
			orDefault(t.value(row, "specs/size_max_inch"), "N/A"),
			orDefault(t.value(row, "specs/vesa/0"), "N/A"),
			orDefault(t.value(row, "compatibility_notes"), "無"),
		)
		metadata := map[string]any{
			"source": "product",
			"sku":    sku,
			"name":   name,
			"url":    "/products/" + sku,
		}
		setIfPresent(metadata, "image", t.value(row, "images/0"))
		docs = append(docs, domain.Document{Content: content, Metadata: metadata})
	}
	return domain.NewCorpus(domain.CorpusProduct, docs), nil
}

// clean composes text to NFC so visually identical strings compare equal.
func clean(s string) string {
	return norm.NFC.String(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return clean(v)
}

func setIfPresent(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
