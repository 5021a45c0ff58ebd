package usecases

import (
	"fmt"
	"strings"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// FollowUpMarker separates the user-visible answer from follow-up
// suggestions in a model response.
const FollowUpMarker = "### FOLLOW-UPS:"

// Card extraction limits. Short titles produce substring false
// positives, so titles below the minimum never match.
const (
	maxCards      = 3
	minTitleMatch = 5 // full catalog titles
	minCoreMatch  = 4 // core name of a retrieved source title
)

// SplitFollowUps splits a model response at FollowUpMarker. Everything
// before it is the answer; bullet lines ("- " or "* ") after it become
// suggestions, non-bullet lines are ignored. A response without the
// marker is a plain answer - never an error.
func SplitFollowUps(text string) (string, []string) {
	idx := strings.Index(text, FollowUpMarker)
	if idx < 0 {
		return text, nil
	}

	answer := strings.TrimSpace(text[:idx])
	var followUps []string
	for _, line := range strings.Split(text[idx+len(FollowUpMarker):], "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			followUps = append(followUps, strings.TrimSpace(rest))
		} else if rest, ok := strings.CutPrefix(line, "* "); ok {
			followUps = append(followUps, strings.TrimSpace(rest))
		}
	}
	return answer, followUps
}

// CardExtractor grounds UI product cards in substring evidence from the
// model's own answer text, so a retrieved-but-unmentioned product is
// never surfaced as if the model had recommended it. The lookup is
// built once at startup and read-only for the process lifetime.
type CardExtractor struct {
	lookup map[string]entities.ProductCard
	titles []string // lookup keys in catalog order, for deterministic scans
}

// NewCardExtractor creates an extractor over the startup card lookup.
// titles fixes the scan order; keys missing from it are never matched
// by the first pass.
func NewCardExtractor(lookup map[string]entities.ProductCard, titles []string) *CardExtractor {
	return &CardExtractor{lookup: lookup, titles: titles}
}

// Extract selects up to three product cards for an answer, first-match
// wins, no duplicate titles. Order-related and greeting turns are not
// expected to reference catalog items, so extraction is skipped
// entirely for them.
//
// Pass 1 scans every known catalog title for a case-insensitive
// substring hit in the answer. Pass 2 tops up from the retriever's
// source titles, accepting one only when its core name (the part
// before a variant qualifier after "-" or "/") also appears in the
// answer.
func (e *CardExtractor) Extract(answer string, sourceTitles []string, cls Classification) []entities.ProductCard {
	if cls.OrderRelated || cls.Greeting {
		return nil
	}

	lowerAnswer := strings.ToLower(answer)
	seen := make(map[string]bool)
	var cards []entities.ProductCard

	for _, title := range e.titles {
		if len(cards) >= maxCards {
			break
		}
		if len(title) < minTitleMatch {
			continue
		}
		if strings.Contains(lowerAnswer, strings.ToLower(title)) {
			cards = append(cards, e.lookup[title])
			seen[title] = true
		}
	}

	if len(cards) >= maxCards {
		return cards
	}

	for _, title := range sourceTitles {
		if len(cards) >= maxCards {
			break
		}
		card, ok := e.lookup[title]
		if !ok || seen[title] {
			continue
		}
		core := coreName(title)
		if len(core) >= minCoreMatch && strings.Contains(lowerAnswer, core) {
			cards = append(cards, card)
			seen[title] = true
		}
	}

	return cards
}

// coreName strips a trailing variant qualifier ("Mat Pro - Blue",
// "Legging / L") and lowercases the result.
func coreName(title string) string {
	core := strings.SplitN(title, "-", 2)[0]
	core = strings.SplitN(core, "/", 2)[0]
	return strings.ToLower(strings.TrimSpace(core))
}

// BuildProductLookup projects the catalog into the title-keyed card
// mapping used by the UI, along with the title scan order. Built once
// at startup; keys are unique and case-sensitive.
func BuildProductLookup(products []entities.Product, storeBaseURL string) (map[string]entities.ProductCard, []string) {
	lookup := make(map[string]entities.ProductCard, len(products))
	var titles []string

	for _, p := range products {
		if p.Title == "" {
			continue
		}
		if _, exists := lookup[p.Title]; exists {
			continue
		}

		price := "Available on site"
		if len(p.Variants) > 0 {
			if cp := p.Variants[0].CalculatedPrice; cp != nil && cp.Amount > 0 {
				price = fmt.Sprintf("R$ %s", formatAmount(cp.Amount))
			}
		}

		image := p.Thumbnail
		if image == "" && len(p.Images) > 0 {
			image = p.Images[0].URL
		}
		if image == "" {
			image = "https://via.placeholder.com/200"
		}

		lookup[p.Title] = entities.ProductCard{
			Title: p.Title,
			Price: price,
			Image: image,
			URL:   storeBaseURL + p.Handle,
		}
		titles = append(titles, p.Title)
	}

	return lookup, titles
}
