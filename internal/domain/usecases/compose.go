package usecases

import (
	"fmt"
	"strings"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// ContextMarker separates the static instruction prompt from the
// retrieval-context placeholder in the prompt template.
const ContextMarker = "### CONTEXT:"

// DefaultSystemPrompt is the stock instruction template. Everything
// after ContextMarker is replaced at composition time.
const DefaultSystemPrompt = `You are 'Yogateria Support', a helpful and expert assistant for Yogateria, a premium yoga and meditation brand.
Your goal is to provide accurate, friendly, and detailed information about products based ONLY on the provided context.

### GUIDELINES:
1. **Scope Restriction**: You are a specialized assistant for Yogateria products. **DO NOT** answer questions that are unrelated to Yogateria products, yoga, or meditation. If a user asks a general knowledge question, politely refuse and state that you can only assist with Yogateria products.
2. **Response Style**: Be professional, warm, and Zen. Use clear English. Avoid jargon unless it's yoga-related and explained.
3. **Context First**: Use the provided context to answer. If information (like price or material) is missing from the context, state that you don't have those specific details but provide what is available.
4. **Price Inquiries**: If asked for the 'cheapest', 'most expensive', or 'costly' products, look for the pricing catalog overview in the context. Always prioritize this summary over individual product listings for spectrum-wide questions.
5. **Product Comparison**: If the user mentions multiple products, provide a structured comparison highlighting their differences (e.g., thickness, material, use case).
6. **Accuracy**: Pay close attention to pricing ranges and variants (colors, sizes).
7. **No Hallucination**: Do NOT make up product features or prices.
8. **Interaction**: If the query is vague, ask clarifying questions about their yoga practice (e.g., "Are you looking for a mat for hot yoga or restorative yoga?").
9. **Follow-ups**: After your answer, you may append a line containing exactly "### FOLLOW-UPS:" followed by up to three suggested user questions, one per line, each starting with "- ".

### CONTEXT:
---------------------
{context_str}
---------------------`

// Composer assembles the final grounding text for the model. The price
// summary is placed before the retrieved passages so a token budget
// applied to passages later can never truncate out the numeric
// extremes. A Composer is immutable and safe for concurrent reads.
type Composer struct {
	template    string
	tokenBudget int
}

// NewComposer creates a Composer from the instruction template and the
// conversation-memory token budget. An empty template selects
// DefaultSystemPrompt.
func NewComposer(template string, tokenBudget int) *Composer {
	if template == "" {
		template = DefaultSystemPrompt
	}
	return &Composer{template: template, tokenBudget: tokenBudget}
}

// Compose builds the final system prompt: the instruction template
// truncated at ContextMarker, then the price summary, then the
// retrieved passages.
func (c *Composer) Compose(priceSummary string, passages []entities.RetrievedPassage) string {
	base := c.template
	if idx := strings.Index(base, ContextMarker); idx >= 0 {
		base = strings.TrimSpace(base[:idx])
	}

	var sb strings.Builder
	sb.WriteString(base)
	if priceSummary != "" {
		sb.WriteString("\n\n")
		sb.WriteString(priceSummary)
	}
	if len(passages) > 0 {
		sb.WriteString("\n\n### RETRIEVED CONTEXT:\n---------------------\n")
		for i, p := range passages {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "[Source: %s]\n%s", p.Passage.Title, p.Passage.Content)
		}
		sb.WriteString("\n---------------------")
	}
	return sb.String()
}

// TokenBudget is the conversation-memory limit, passed through
// unchanged to the history collaborator.
func (c *Composer) TokenBudget() int {
	return c.tokenBudget
}

// BuildOrderPrompt wraps the user's literal message with resolved
// account context and an instruction to use it. Only used when account
// context exists and the query is order-related; otherwise the literal
// message goes to the model unmodified.
func BuildOrderPrompt(accountContext, message string) string {
	return fmt.Sprintf("User Account Data:\n%s\nPlease use the above user and order information to answer the user's query.\n\nUser Query: %s",
		accountContext, message)
}
