// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just the decision logic of the pipeline.
package usecases

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// Category derives a product's grouping from its title: the capitalized
// first whitespace-delimited token. This is an explicit heuristic used
// only for price-extreme reporting, computed per request and never
// persisted.
func Category(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return titleCaseWord(fields[0])
}

// titleCaseWord uppercases the first rune and lowercases the rest.
func titleCaseWord(w string) string {
	runes := []rune(w)
	for i, r := range runes {
		if i == 0 {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	return string(runes)
}

// priceEntry pairs a representative price with a product title.
type priceEntry struct {
	amount float64
	title  string
}

// sortAscending orders entries by price, title as tiebreaker. The title
// tiebreaker keeps the output deterministic for equal prices.
func sortAscending(entries []priceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].amount != entries[j].amount {
			return entries[i].amount < entries[j].amount
		}
		return entries[i].title < entries[j].title
	})
}

// uniqueByTitle keeps the first occurrence of each title. Callers sort
// ascending first, so the lowest-priced occurrence wins.
func uniqueByTitle(entries []priceEntry) []priceEntry {
	seen := make(map[string]bool, len(entries))
	unique := entries[:0:0]
	for _, e := range entries {
		if seen[e.title] {
			continue
		}
		seen[e.title] = true
		unique = append(unique, e)
	}
	return unique
}

// knownCategories returns the allow-list of categories: the `limit` most
// frequent first words across all titles (ties broken by first
// encounter) whose name is longer than two characters.
func knownCategories(titles []string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, t := range titles {
		cat := Category(t)
		if cat == "" {
			continue
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		counts[cat]++
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	var known []string
	for _, cat := range ranked {
		if len(cat) > 2 {
			known = append(known, cat)
		}
	}
	return known
}

// formatAmount renders a price the way the catalog dumps carry it: no
// trailing zeros, full precision.
func formatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// BuildPriceSummary builds the deterministic min/max price-per-category
// grounding block from raw catalog records. depth controls how many
// global cheapest/most-expensive items are listed (default 5).
//
// The generative model cannot reliably compute min/max over retrieved
// passages, so exact extremes are pre-computed here and injected as an
// authoritative block. An empty string means "no grounding available"
// and is never an error.
func BuildPriceSummary(products []entities.Product, depth int) string {
	if depth <= 0 {
		depth = 5
	}

	var (
		priceData      []priceEntry
		titles         []string
		categoryPrices = make(map[string][]priceEntry)
	)

	for _, p := range products {
		if p.Title == "" {
			continue
		}
		titles = append(titles, p.Title)

		amount, ok := p.RepresentativePrice()
		if !ok {
			continue
		}
		priceData = append(priceData, priceEntry{amount: amount, title: p.Title})
		cat := Category(p.Title)
		categoryPrices[cat] = append(categoryPrices[cat], priceEntry{amount: amount, title: p.Title})
	}

	if len(priceData) == 0 {
		return ""
	}

	known := knownCategories(titles, 20)

	sortAscending(priceData)
	unique := uniqueByTitle(priceData)

	cheapest := unique
	if len(cheapest) > depth {
		cheapest = cheapest[:depth]
	}
	expensive := make([]priceEntry, len(unique))
	copy(expensive, unique)
	sort.SliceStable(expensive, func(i, j int) bool {
		return expensive[i].amount > expensive[j].amount
	})
	if len(expensive) > depth {
		expensive = expensive[:depth]
	}

	var sb strings.Builder
	sb.WriteString("\n### GLOBAL & CATEGORY PRICING CATALOG OVERVIEW:\n")
	sb.WriteString("- **Categories Available**: " + strings.Join(known, ", ") + "\n\n")

	sb.WriteString("#### CATEGORY-WISE MIN/MAX PRICES:\n")
	sb.WriteString("USE THIS SECTION EXPLICITLY when answering questions like 'cheapest yoga mat', 'most expensive perfume', etc.\n")
	for _, cat := range known {
		items := categoryPrices[cat]
		if len(items) == 0 {
			continue
		}
		sorted := make([]priceEntry, len(items))
		copy(sorted, items)
		sortAscending(sorted)
		catUnique := uniqueByTitle(sorted)

		low, high := catUnique[0], catUnique[len(catUnique)-1]
		sb.WriteString(fmt.Sprintf(
			" - **%s** (e.g. %ss, tapetes=mats, camisetas=t-shirts) -> Cheapest: %s (BRL %.2f) | Most Expensive: %s (BRL %.2f)\n",
			cat, strings.ToLower(cat), low.title, low.amount, high.title, high.amount,
		))
	}

	sb.WriteString("\n#### OVERALL (ALL PRODUCTS):\n")
	sb.WriteString("- **Global Lowest**: " + joinEntries(cheapest) + "\n")
	sb.WriteString("- **Global Highest**: " + joinEntries(expensive) + "\n")
	sb.WriteString("\nNOTE: If the user asks for a specific category (e.g., 'cheapest yoga mat', 'cheapest tapete', 'most expensive perfume'), **ALWAYS use the 'CATEGORY-WISE MIN/MAX PRICES' information above.** This summary is the direct truth for category price extremes. Only rely on the retrieved context for product details or if the category isn't properly listed here.\n")

	return sb.String()
}

func joinEntries(entries []priceEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (BRL %s)", e.title, formatAmount(e.amount))
	}
	return strings.Join(parts, ", ")
}
