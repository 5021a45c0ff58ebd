// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"encoding/json"
	"strings"
)

// CalculatedPrice is a variant's resolved price in store currency.
type CalculatedPrice struct {
	Amount   float64 `json:"calculated_amount"`
	Currency string  `json:"currency_code"`
}

// Variant is a purchasable option of a product.
type Variant struct {
	Title           string           `json:"title"`
	CalculatedPrice *CalculatedPrice `json:"calculated_price"`
}

// Image is a product image reference.
type Image struct {
	URL string `json:"url"`
}

// Product is a catalog record as exported by the store API.
// Title is the primary human-readable key; not guaranteed unique but
// treated as such for lookups.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Handle      string    `json:"handle"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Images      []Image   `json:"images"`
	Variants    []Variant `json:"variants"`
}

// RepresentativePrice returns the price of the first variant with a
// positive amount. Products without one are excluded from price extremes.
func (p Product) RepresentativePrice() (float64, bool) {
	for _, v := range p.Variants {
		if v.CalculatedPrice != nil && v.CalculatedPrice.Amount > 0 {
			return v.CalculatedPrice.Amount, true
		}
	}
	return 0, false
}

// CartItem is one line of a user's tracked cart.
// Subtotal is assumed to equal Quantity*UnitPrice; not enforced here.
type CartItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Variant     string  `json:"variant"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// Cart is the tracked cart of an account.
type Cart struct {
	Items        []CartItem `json:"items"`
	TotalItems   int        `json:"total_items"`
	CartTotal    float64    `json:"cart_total"`
	FreeShipping bool       `json:"free_shipping"`
}

// UserAccount is a record from the cart source, keyed by user id or
// email (case-insensitive).
type UserAccount struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Cart    Cart   `json:"cart"`
}

// Customer is the buyer attached to an order.
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName derives a presentable name, falling back to the email
// local part when the record has no name fields.
func (c Customer) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.Email != "":
		return strings.SplitN(c.Email, "@", 2)[0]
	default:
		return "User"
	}
}

// OrderItem is a line in an order history record. Historical dumps use
// either product_title or title for the same field.
type OrderItem struct {
	Quantity     int     `json:"quantity"`
	ProductTitle string  `json:"product_title"`
	Title        string  `json:"title"`
	VariantTitle string  `json:"variant_title"`
	UnitPrice    float64 `json:"unit_price"`
}

// DisplayTitle prefers product_title over title.
func (i OrderItem) DisplayTitle() string {
	if i.ProductTitle != "" {
		return i.ProductTitle
	}
	if i.Title != "" {
		return i.Title
	}
	return "Item"
}

// OrderSummary carries the stored order total, which is stale in some
// historical dumps.
type OrderSummary struct {
	CurrentOrderTotal float64 `json:"current_order_total"`
}

// Order is an order history record, keyed by customer id or customer
// email (case-insensitive).
type Order struct {
	ID                string       `json:"id"`
	DisplayID         json.Number  `json:"display_id"`
	CustomerID        string       `json:"customer_id"`
	Customer          Customer     `json:"customer"`
	Status            string       `json:"status"`
	FulfillmentStatus string       `json:"fulfillment_status"`
	CreatedAt         string       `json:"created_at"`
	Items             []OrderItem  `json:"items"`
	Summary           OrderSummary `json:"summary"`
}

// Ref returns the user-facing order reference: display id when present,
// internal id otherwise.
func (o Order) Ref() string {
	if s := o.DisplayID.String(); s != "" {
		return s
	}
	if o.ID != "" {
		return o.ID
	}
	return "unknown"
}

// CreatedDate returns the date part of the RFC3339 created_at value.
func (o Order) CreatedDate() string {
	if o.CreatedAt == "" {
		return "unknown"
	}
	return strings.SplitN(o.CreatedAt, "T", 2)[0]
}

// ComputedTotal sums unit price times quantity over all items.
func (o Order) ComputedTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

// ResolvedContext is the per-turn identity resolution result. It is
// owned by the turn and discarded after the reply; the next turn
// re-resolves instead of reusing it.
type ResolvedContext struct {
	DisplayText string
	HasData     bool
}

// ProductCard is a UI-ready projection of a product. The title-keyed
// card lookup is built once at startup and read-only afterwards.
type ProductCard struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Image string `json:"image"`
	URL   string `json:"url"`
}

// Passage is a chunk of catalog text prepared for retrieval.
type Passage struct {
	ID        string
	ProductID string
	Title     string // product title carried as metadata
	Content   string
	Index     int
	Embedding []float32
}

// RetrievedPassage is a search hit with its relevance score.
type RetrievedPassage struct {
	Passage Passage
	Score   float64
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is one user turn with prior conversation context.
type ChatRequest struct {
	Message string
	UserRef string // explicit account id or email, may be empty
	History []ChatMessage
}

// ChatResult is the fully post-processed reply for one turn.
type ChatResult struct {
	Answer    string
	Products  []ProductCard
	FollowUps []string
	MessageID int64 // chat log id, 0 when persistence was unavailable
	UserRef   string
	Sources   []RetrievedPassage
}

// ChatRecord is a persisted chat exchange.
type ChatRecord struct {
	ID          int64  `json:"id"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
	Feedback    string `json:"feedback,omitempty"`
	Timestamp   string `json:"timestamp"`
}
