package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

func testAccount() *entities.UserAccount {
	return &entities.UserAccount{
		UserID:  "cus_01ABC",
		Name:    "Cliente VIP",
		Email:   "vip@email.com",
		Phone:   "+55 11 99999-9999",
		Address: "Rua Yoga, 108 - São Paulo, SP",
		Cart: entities.Cart{
			Items: []entities.CartItem{
				{ProductName: "Calça Legging Deva", Variant: "Único", Quantity: 1, UnitPrice: 197, Subtotal: 197},
			},
			TotalItems:   1,
			CartTotal:    197,
			FreeShipping: true,
		},
	}
}

func TestResolve_NoIdentifierIsUnresolvedNotGuest(t *testing.T) {
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, nil, nil)

	ctx := r.Resolve(context.Background(), "")

	assert.False(t, ctx.HasData)
	assert.Contains(t, ctx.DisplayText, "No user identifier")
	assert.NotContains(t, ctx.DisplayText, "no known orders")
}

func TestResolve_UnknownIdentifierHasNoData(t *testing.T) {
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, nil, nil)

	ctx := r.Resolve(context.Background(), "nobody@email.com")

	assert.False(t, ctx.HasData)
	assert.Contains(t, ctx.DisplayText, "nobody@email.com has no known orders or cart")
}

func TestResolve_CommutativeInLookupKey(t *testing.T) {
	accounts := &mockAccountSource{account: testAccount()}
	r := NewResolver(accounts, &mockOrderSource{}, nil, nil)

	byID := r.Resolve(context.Background(), "cus_01ABC")
	byEmail := r.Resolve(context.Background(), "VIP@EMAIL.COM")

	require.True(t, byID.HasData)
	assert.Equal(t, byID.DisplayText, byEmail.DisplayText)
	assert.Contains(t, byID.DisplayText, "Cliente VIP")
	assert.Contains(t, byID.DisplayText, "1x Calça Legging Deva (Variant: Único) - Unit Price: R$ 197")
	assert.Contains(t, byID.DisplayText, "Free Shipping: true")
}

func TestResolve_ComputedTotalBeatsImplausiblyLowStoredTotal(t *testing.T) {
	orders := &mockOrderSource{orders: []entities.Order{{
		ID:         "order_1",
		CustomerID: "cus_01ABC",
		Status:     "completed",
		Items: []entities.OrderItem{
			{Quantity: 2, ProductTitle: "Tapete Yoga", UnitPrice: 100},
			{Quantity: 1, ProductTitle: "Bloco EVA", UnitPrice: 50},
		},
		Summary: entities.OrderSummary{CurrentOrderTotal: 5},
	}}}
	r := NewResolver(&mockAccountSource{}, orders, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")

	require.True(t, ctx.HasData)
	assert.Contains(t, ctx.DisplayText, "Total: R$ 250")
	assert.NotContains(t, ctx.DisplayText, "Total: R$ 5,")
}

func TestResolve_StoredTotalWinsWhenPlausibleAndLarger(t *testing.T) {
	orders := &mockOrderSource{orders: []entities.Order{{
		CustomerID: "cus_01ABC",
		Items:      []entities.OrderItem{{Quantity: 1, Title: "Tapete Yoga", UnitPrice: 100}},
		Summary:    entities.OrderSummary{CurrentOrderTotal: 130}, // includes shipping
	}}}
	r := NewResolver(&mockAccountSource{}, orders, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")
	assert.Contains(t, ctx.DisplayText, "Total: R$ 130")
}

func TestResolve_CartAndOrdersUnion(t *testing.T) {
	accounts := &mockAccountSource{account: testAccount()}
	orders := &mockOrderSource{orders: []entities.Order{{
		CustomerID: "cus_01ABC",
		Status:     "completed",
		Items:      []entities.OrderItem{{Quantity: 1, Title: "Tapete Yoga", UnitPrice: 100}},
		Summary:    entities.OrderSummary{CurrentOrderTotal: 100},
	}}}
	r := NewResolver(accounts, orders, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")

	require.True(t, ctx.HasData)
	// Cart info is never discarded in favor of order info.
	assert.Contains(t, ctx.DisplayText, "Cliente VIP")
	assert.Contains(t, ctx.DisplayText, "completed/past orders")
}

func TestResolve_LocalOrdersSuppressRemoteFallback(t *testing.T) {
	orders := &mockOrderSource{orders: []entities.Order{{
		CustomerID: "cus_01ABC",
		Items:      []entities.OrderItem{{Quantity: 1, Title: "Tapete Yoga", UnitPrice: 100}},
	}}}
	remote := &mockRemoteOrders{}
	r := NewResolver(&mockAccountSource{}, orders, remote, nil)

	r.Resolve(context.Background(), "cus_01ABC")

	assert.Zero(t, remote.calls)
}

func TestResolve_RemoteFallbackReducedForm(t *testing.T) {
	remote := &mockRemoteOrders{byEmail: map[string][]entities.Order{
		"vip@email.com": {
			{ID: "order_9", Status: "shipped", Items: []entities.OrderItem{{Quantity: 2, Title: "Tapete Yoga"}}},
		},
	}}
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, remote, nil)

	ctx := r.Resolve(context.Background(), "vip@email.com")

	require.True(t, ctx.HasData)
	assert.Contains(t, ctx.DisplayText, "Order #order_9: Status=shipped")
	assert.Contains(t, ctx.DisplayText, "2x Tapete Yoga")
	// Reduced form carries no totals.
	assert.NotContains(t, ctx.DisplayText, "Total:")
}

func TestResolve_RemoteCapAtFiveOrders(t *testing.T) {
	var remoteOrders []entities.Order
	for i := 0; i < 8; i++ {
		remoteOrders = append(remoteOrders, entities.Order{ID: fmt.Sprintf("order_%d", i)})
	}
	remote := &mockRemoteOrders{byEmail: map[string][]entities.Order{"vip@email.com": remoteOrders}}
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, remote, nil)

	ctx := r.Resolve(context.Background(), "vip@email.com")

	assert.Contains(t, ctx.DisplayText, "has 8 orders available")
	assert.Contains(t, ctx.DisplayText, "Order #order_4")
	assert.NotContains(t, ctx.DisplayText, "Order #order_5")
}

func TestResolve_LocalOrdersCappedAtTenMostRecent(t *testing.T) {
	var all []entities.Order
	for i := 0; i < 12; i++ {
		all = append(all, entities.Order{
			ID:         fmt.Sprintf("order_%02d", i),
			CustomerID: "cus_01ABC",
			CreatedAt:  fmt.Sprintf("2025-01-%02dT10:00:00Z", i+1),
			Items:      []entities.OrderItem{{Quantity: 1, Title: "Tapete", UnitPrice: 100}},
		})
	}
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{orders: all}, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")

	assert.Contains(t, ctx.DisplayText, "has 12 actual completed/past orders")
	assert.Contains(t, ctx.DisplayText, "Order #order_11") // newest kept
	assert.NotContains(t, ctx.DisplayText, "Order #order_01") // oldest dropped
}

func TestResolve_SourceFailureDegradesToNextSource(t *testing.T) {
	accounts := &mockAccountSource{err: errors.New("carts.json corrupted")}
	orders := &mockOrderSource{orders: []entities.Order{{
		CustomerID: "cus_01ABC",
		Items:      []entities.OrderItem{{Quantity: 1, Title: "Tapete Yoga", UnitPrice: 100}},
	}}}
	r := NewResolver(accounts, orders, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")

	require.True(t, ctx.HasData)
	assert.Contains(t, ctx.DisplayText, "Tapete Yoga")
}

func TestResolve_DefaultVariantTitleOmitted(t *testing.T) {
	orders := &mockOrderSource{orders: []entities.Order{{
		CustomerID: "cus_01ABC",
		Items: []entities.OrderItem{
			{Quantity: 1, Title: "Tapete Yoga", VariantTitle: "Default Title", UnitPrice: 100},
			{Quantity: 1, Title: "Calça Legging", VariantTitle: "M", UnitPrice: 197},
		},
	}}}
	r := NewResolver(&mockAccountSource{}, orders, nil, nil)

	ctx := r.Resolve(context.Background(), "cus_01ABC")

	assert.Contains(t, ctx.DisplayText, "1x Tapete Yoga - Unit Price")
	assert.NotContains(t, ctx.DisplayText, "(Default Title)")
	assert.Contains(t, ctx.DisplayText, "1x Calça Legging (M) - Unit Price")
}

func TestLookupOrder_ExplicitOrderReference(t *testing.T) {
	remote := &mockRemoteOrders{byRef: map[string]*entities.Order{
		"1234": {DisplayID: "1234", Status: "shipped", FulfillmentStatus: "fulfilled",
			Items: []entities.OrderItem{{Quantity: 1, Title: "Tapete Yoga"}}},
	}}
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, remote, nil)

	note := r.LookupOrder(context.Background(), "Where is my order #1234?", "vip@email.com")

	assert.Contains(t, note, "order #1234")
	assert.Contains(t, note, "Status=shipped")
	assert.Contains(t, note, "1x Tapete Yoga")
}

func TestLookupOrder_NoReferenceNoRemoteCall(t *testing.T) {
	remote := &mockRemoteOrders{}
	r := NewResolver(&mockAccountSource{}, &mockOrderSource{}, remote, nil)

	note := r.LookupOrder(context.Background(), "do you have yoga mats?", "")

	assert.Empty(t, note)
	assert.Zero(t, remote.calls)
}
