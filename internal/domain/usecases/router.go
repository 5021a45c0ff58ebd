package usecases

import (
	"regexp"
	"strings"
)

// Classification is the routing decision for one message.
type Classification struct {
	// OrderRelated is true when the message touches order/cart/status/
	// tracking vocabulary (substring match, two languages, no stemming).
	OrderRelated bool

	// Greeting is true only when the entire trimmed message is a
	// greeting/thanks/help phrase. Substring greetings do not count, so
	// a message that merely opens with "hi" still gets product cards.
	Greeting bool
}

// PatternSet is the pattern table backing classification and entity
// extraction. It is a pluggable strategy: swap or extend patterns
// without touching routing logic. A PatternSet is immutable after
// construction and safe for concurrent use.
type PatternSet struct {
	order     *regexp.Regexp
	greeting  *regexp.Regexp
	accountID *regexp.Regexp
	email     *regexp.Regexp
}

var orderRefPattern = regexp.MustCompile(`(?i)(?:order|pedido)\s*#?\s*([a-zA-Z0-9_-]+)`)

// DefaultPatterns is the stock English+Portuguese pattern table.
func DefaultPatterns() *PatternSet {
	return &PatternSet{
		order:     regexp.MustCompile(`(?i)(order|pedido|cart|carrinho|history|histórico|status|track|rastrear)`),
		greeting:  regexp.MustCompile(`^(?i:hi|hello|hey|ola|olá|oi|bom dia|boa tarde|boa noite|thanks|thank you|obrigado|obrigada|tks|how are you|tudo bem|who are you|quem é você|help|ajuda)[\s.!?]*$`),
		accountID: regexp.MustCompile(`cus_[a-zA-Z0-9]+`),
		email:     regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`),
	}
}

// Classify routes a message as order-related, a greeting, or neither.
func (p *PatternSet) Classify(message string) Classification {
	return Classification{
		OrderRelated: p.order.MatchString(message),
		Greeting:     p.greeting.MatchString(strings.TrimSpace(message)),
	}
}

// ExtractIdentifier pulls an explicit user reference out of free text.
// An account-ID pattern takes priority over an email pattern; empty
// string when neither appears.
func (p *PatternSet) ExtractIdentifier(message string) string {
	if id := p.accountID.FindString(message); id != "" {
		return id
	}
	return p.email.FindString(message)
}

// ExtractOrderRef pulls an explicit order reference ("order #1234",
// "pedido 42") out of free text; empty string when absent.
func ExtractOrderRef(message string) string {
	m := orderRefPattern.FindStringSubmatch(message)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
