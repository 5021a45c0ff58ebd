package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
)

// globalSummaryDepth is how many cheapest/most-expensive items the
// indexed price-summary document lists. Deeper than the per-turn
// grounding block: this document is retrieved, not always injected.
const globalSummaryDepth = 15

// IngestUseCase turns catalog records into retrievable passages: one
// grounded document per product plus a global price-summary document.
type IngestUseCase struct {
	embedder     ports.EmbeddingService
	store        ports.VectorStore
	chunkSize    int
	chunkOverlap int
	log          *zap.SugaredLogger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(embedder ports.EmbeddingService, store ports.VectorStore, chunkSize, chunkOverlap int, log *zap.Logger) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 {
		chunkOverlap = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestUseCase{
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		log:          log.Sugar(),
	}
}

// IngestProducts indexes the whole catalog, replacing prior data.
// Returns the number of passages stored.
func (uc *IngestUseCase) IngestProducts(ctx context.Context, products []entities.Product) (int, error) {
	if err := uc.store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clearing store: %w", err)
	}

	var passages []entities.Passage
	for _, p := range products {
		passages = append(passages, uc.productPassages(p)...)
	}
	if doc := buildGlobalSummaryDoc(products); doc != "" {
		passages = append(passages, entities.Passage{
			ID:      passageID("price-summary", 0),
			Title:   "Global Catalog Price Summary",
			Content: doc,
		})
	}
	if len(passages) == 0 {
		return 0, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding passages: %w", err)
	}
	for i := range passages {
		passages[i].Embedding = embeddings[i]
	}

	if err := uc.store.Store(ctx, passages); err != nil {
		return 0, fmt.Errorf("storing passages: %w", err)
	}
	uc.log.Infow("catalog ingested", "products", len(products), "passages", len(passages))
	return len(passages), nil
}

// productPassages builds the chunks for one product. Every chunk
// carries the product header so price and options survive chunking,
// and the title travels as metadata for card extraction.
func (uc *IngestUseCase) productPassages(p entities.Product) []entities.Passage {
	if p.Title == "" {
		return nil
	}

	header := productHeader(p)
	body := "Description: " + StripHTML(p.Description)

	var passages []entities.Passage
	for i, chunk := range uc.chunkText(body) {
		passages = append(passages, entities.Passage{
			ID:        passageID(p.ID+"/"+p.Title, i),
			ProductID: p.ID,
			Title:     p.Title,
			Content:   header + chunk,
			Index:     i,
		})
	}
	return passages
}

// productHeader summarizes title, subtitle, price spread and options.
func productHeader(p entities.Product) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product: %s\n", p.Title)
	if p.Subtitle != "" {
		fmt.Fprintf(&sb, "Subtitle: %s\n", p.Subtitle)
	}

	var prices []float64
	currency := "BRL"
	var options []string
	seenOpt := make(map[string]bool)
	for _, v := range p.Variants {
		if v.CalculatedPrice != nil {
			prices = append(prices, v.CalculatedPrice.Amount)
			if v.CalculatedPrice.Currency != "" {
				currency = strings.ToUpper(v.CalculatedPrice.Currency)
			}
		}
		if v.Title != "" && !seenOpt[v.Title] {
			seenOpt[v.Title] = true
			options = append(options, v.Title)
		}
	}
	if len(prices) > 0 {
		min, max := prices[0], prices[0]
		for _, pr := range prices[1:] {
			if pr < min {
				min = pr
			}
			if pr > max {
				max = pr
			}
		}
		if min == max {
			fmt.Fprintf(&sb, "Price: %s %s\n", currency, formatAmount(min))
		} else {
			fmt.Fprintf(&sb, "Price Range: %s %s - %s\n", currency, formatAmount(min), formatAmount(max))
		}
	}
	if len(options) > 0 {
		fmt.Fprintf(&sb, "Options: %s\n", strings.Join(options, ", "))
	}
	return sb.String()
}

// buildGlobalSummaryDoc is the indexed counterpart of the per-turn
// price summary: a retrievable document listing global extremes with
// retrieval-friendly keywords.
func buildGlobalSummaryDoc(products []entities.Product) string {
	var entries []priceEntry
	for _, p := range products {
		if p.Title == "" {
			continue
		}
		if amount, ok := p.RepresentativePrice(); ok {
			entries = append(entries, priceEntry{amount: amount, title: p.Title})
		}
	}
	if len(entries) == 0 {
		return ""
	}

	sortAscending(entries)
	unique := uniqueByTitle(entries)

	cheapest := unique
	if len(cheapest) > globalSummaryDepth {
		cheapest = cheapest[:globalSummaryDepth]
	}
	expensive := make([]priceEntry, len(unique))
	copy(expensive, unique)
	sort.SliceStable(expensive, func(i, j int) bool {
		return expensive[i].amount > expensive[j].amount
	})
	if len(expensive) > globalSummaryDepth {
		expensive = expensive[:globalSummaryDepth]
	}

	var sb strings.Builder
	sb.WriteString("GLOBAL CATALOG PRICE SUMMARY & EXTREMES\n")
	sb.WriteString("Use this information for questions about cheapest, most expensive, or costly products.\n\n")
	sb.WriteString("### CHEAPEST PRODUCTS (Budget/Low Price):\n")
	for _, e := range cheapest {
		fmt.Fprintf(&sb, "- %s: BRL %s\n", e.title, formatAmount(e.amount))
	}
	sb.WriteString("\n### MOST EXPENSIVE PRODUCTS (Premium/Costly):\n")
	for _, e := range expensive {
		fmt.Fprintf(&sb, "- %s: BRL %s\n", e.title, formatAmount(e.amount))
	}
	fmt.Fprintf(&sb, "\nTotal products in catalog: %d\n", len(products))
	sb.WriteString("Keywords: cheapest product, cheapest item, lowest price, most expensive product, most costly, most premium, price range, affordable, budget.")
	return sb.String()
}

// chunkText splits text into overlapping chunks, breaking at word
// boundaries where possible.
func (uc *IngestUseCase) chunkText(content string) []string {
	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + uc.chunkSize
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		chunk := strings.TrimSpace(content[start:end])
		if len(chunk) > 0 {
			chunks = append(chunks, chunk)
		}

		if end == len(content) {
			break
		}
		next := end - uc.chunkOverlap
		// A word break close to the window start can push the next
		// offset backwards; force progress instead of looping.
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^<]+?>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup from a store description: tags, a few common
// entities, collapsed whitespace.
func StripHTML(text string) string {
	if text == "" {
		return ""
	}
	clean := htmlTagPattern.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
	)
	clean = replacer.Replace(clean)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(clean, " "))
}

// passageID creates a deterministic ID for a passage.
func passageID(key string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", key, index)))
	return hex.EncodeToString(hash[:8])
}
