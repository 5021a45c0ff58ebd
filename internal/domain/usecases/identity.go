package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
)

// Resolution caps. Local order history is richer, so it gets more room
// than the reduced remote fallback.
const (
	maxLocalOrders  = 10
	maxRemoteOrders = 5
)

// DefaultLowTotalThreshold is the cutoff below which a stored order
// total is considered implausible and the computed item total wins.
// Heuristic for known bad historical dumps; the value has no deeper
// derivation.
const DefaultLowTotalThreshold = 10

// Resolver maps a free-text user reference to a canonical account by
// reconciling the cart source, the order-history source and an optional
// remote order API. Local sources are authoritative over remote.
type Resolver struct {
	accounts ports.AccountSource
	orders   ports.OrderSource
	remote   ports.RemoteOrderClient // nil disables the remote fallback
	log      *zap.SugaredLogger

	// LowTotalThreshold overrides DefaultLowTotalThreshold when positive.
	LowTotalThreshold float64
}

// NewResolver creates a Resolver with injected sources. remote may be nil.
func NewResolver(accounts ports.AccountSource, orders ports.OrderSource, remote ports.RemoteOrderClient, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		accounts:          accounts,
		orders:            orders,
		remote:            remote,
		log:               log.Sugar(),
		LowTotalThreshold: DefaultLowTotalThreshold,
	}
}

// Resolve refreshes the per-turn user context for the given reference.
// An empty reference means no identifier was supplied this session:
// that is "unresolved", which is distinct from a known identifier with
// no data. I/O errors on either local source are logged and resolution
// continues - partial identity information beats none.
func (r *Resolver) Resolve(ctx context.Context, ref string) entities.ResolvedContext {
	if strings.TrimSpace(ref) == "" {
		return entities.ResolvedContext{
			DisplayText: "System Note: No user identifier is available for this session.",
			HasData:     false,
		}
	}

	var sb strings.Builder

	// 1. Cart/account source. Cart info is never discarded in favor of
	// order info; the two are unioned when both exist.
	account, err := r.accounts.FindAccount(ctx, ref)
	if err != nil {
		r.log.Warnw("cart source unavailable", "ref", ref, "error", err)
	}
	if account != nil {
		r.writeAccount(&sb, account)
	}

	// 2. Order-history source. When it has records, local resolution is
	// complete and the remote API is never consulted.
	orders, err := r.orders.OrdersFor(ctx, ref)
	if err != nil {
		r.log.Warnw("order source unavailable", "ref", ref, "error", err)
	}
	if len(orders) > 0 {
		r.writeOrders(&sb, orders)
		return entities.ResolvedContext{DisplayText: sb.String(), HasData: true}
	}
	if sb.Len() > 0 {
		// Cart found, no order history.
		return entities.ResolvedContext{DisplayText: sb.String(), HasData: true}
	}

	// 3. Remote fallback by email, only when both local sources came up
	// empty.
	if r.remote != nil {
		if text, ok := r.resolveRemote(ctx, ref); ok {
			return entities.ResolvedContext{DisplayText: text, HasData: true}
		}
	}

	return entities.ResolvedContext{
		DisplayText: fmt.Sprintf("System Note: The user %s has no known orders or cart.", ref),
		HasData:     false,
	}
}

func (r *Resolver) writeAccount(sb *strings.Builder, account *entities.UserAccount) {
	fmt.Fprintf(sb, "System Note: The current user is %s (Email: %s, Phone: %s).\n", account.Name, account.Email, account.Phone)
	fmt.Fprintf(sb, "Delivery Address: %s.\n", account.Address)
	sb.WriteString("They have the following recent tracked order items in their account:\n")
	for _, item := range account.Cart.Items {
		fmt.Fprintf(sb, "- %dx %s (Variant: %s) - Unit Price: R$ %s\n",
			item.Quantity, item.ProductName, item.Variant, formatAmount(item.UnitPrice))
	}
	fmt.Fprintf(sb, "Total: R$ %s. Free Shipping: %v.\n", formatAmount(account.Cart.CartTotal), account.Cart.FreeShipping)
}

func (r *Resolver) writeOrders(sb *strings.Builder, orders []entities.Order) {
	// Most recent first; created_at is RFC3339 so the lexicographic
	// comparison is chronological.
	sorted := make([]entities.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	if len(sorted) > maxLocalOrders {
		sorted = sorted[:maxLocalOrders]
	}

	fmt.Fprintf(sb, "\nSystem Note: The user also has %d actual completed/past orders:\n", len(orders))
	for _, o := range sorted {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			variant := it.VariantTitle
			if variant != "" && !strings.EqualFold(variant, "default title") {
				items = append(items, fmt.Sprintf("%dx %s (%s) - Unit Price: R$ %s",
					it.Quantity, it.DisplayTitle(), variant, formatAmount(it.UnitPrice)))
			} else {
				items = append(items, fmt.Sprintf("%dx %s - Unit Price: R$ %s",
					it.Quantity, it.DisplayTitle(), formatAmount(it.UnitPrice)))
			}
		}
		itemsStr := "No items found"
		if len(items) > 0 {
			itemsStr = strings.Join(items, ", ")
		}

		fmt.Fprintf(sb, "- Order #%s (Date: %s): Status=%s, Fulfillment=%s, Total: R$ %s, Items: %s.\n",
			o.Ref(), o.CreatedDate(), orDefault(o.Status), orDefault(o.FulfillmentStatus),
			formatAmount(r.orderTotal(o)), itemsStr)
	}
}

// orderTotal selects between the computed item total and the stored
// summary total. The larger of the two wins, and a stored total below
// the low-value threshold is treated as stale data whenever a positive
// computed total exists.
func (r *Resolver) orderTotal(o entities.Order) float64 {
	computed := o.ComputedTotal()
	stored := o.Summary.CurrentOrderTotal

	total := stored
	if computed > stored {
		total = computed
	}
	threshold := r.LowTotalThreshold
	if threshold <= 0 {
		threshold = DefaultLowTotalThreshold
	}
	if computed > 0 && stored < threshold {
		total = computed
	}
	return total
}

// resolveRemote formats up to maxRemoteOrders orders from the remote API
// in the reduced (no totals) form.
func (r *Resolver) resolveRemote(ctx context.Context, ref string) (string, bool) {
	orders, err := r.remote.OrdersByEmail(ctx, ref)
	if err != nil {
		r.log.Warnw("remote order lookup failed", "ref", ref, "error", err)
		return "", false
	}
	if len(orders) == 0 {
		return fmt.Sprintf("System Note: The user %s has no past orders.", ref), true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "System Note: The user %s has %d orders available:\n", ref, len(orders))
	capped := orders
	if len(capped) > maxRemoteOrders {
		capped = capped[:maxRemoteOrders]
	}
	for _, o := range capped {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%dx %s", it.Quantity, it.DisplayTitle()))
		}
		itemsStr := "No items found"
		if len(items) > 0 {
			itemsStr = strings.Join(items, ", ")
		}
		fmt.Fprintf(&sb, "- Order #%s: Status=%s, Fulfillment=%s, Items: %s.\n",
			o.Ref(), orDefault(o.Status), orDefault(o.FulfillmentStatus), itemsStr)
	}
	return sb.String(), true
}

// LookupOrder answers an explicit "order #X" mention in the message with
// a one-line system note from the remote API. Empty result when the
// message carries no order reference, the API is not configured, or the
// lookup fails - an explicit order note is best-effort enrichment.
func (r *Resolver) LookupOrder(ctx context.Context, message, userRef string) string {
	if r.remote == nil {
		return ""
	}
	orderRef := ExtractOrderRef(message)
	if orderRef == "" {
		return ""
	}

	order, err := r.remote.OrderByRef(ctx, orderRef, userRef)
	if err != nil {
		r.log.Warnw("remote order fetch failed", "order", orderRef, "error", err)
		return ""
	}
	if order == nil {
		if userRef != "" {
			return fmt.Sprintf("System Note: No order found for display_id %s and email %s.", orderRef, userRef)
		}
		return ""
	}

	items := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, fmt.Sprintf("%dx %s", it.Quantity, it.DisplayTitle()))
	}
	itemsStr := "No items found"
	if len(items) > 0 {
		itemsStr = strings.Join(items, ", ")
	}
	return fmt.Sprintf("System Note: The user (ID: %s) is asking about order #%s. API Data: Status=%s, Fulfillment=%s. Items: %s.",
		userRef, orderRef, orDefault(order.Status), orDefault(order.FulfillmentStatus), itemsStr)
}

func orDefault(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
