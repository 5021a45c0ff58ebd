package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_RepresentativePrice(t *testing.T) {
	p := Product{Variants: []Variant{
		{CalculatedPrice: &CalculatedPrice{Amount: 0}},
		{CalculatedPrice: nil},
		{CalculatedPrice: &CalculatedPrice{Amount: 129.9}},
	}}

	amount, ok := p.RepresentativePrice()
	require.True(t, ok)
	assert.Equal(t, 129.9, amount)

	_, ok = Product{}.RepresentativePrice()
	assert.False(t, ok)
}

func TestCustomer_DisplayName(t *testing.T) {
	cases := []struct {
		customer Customer
		want     string
	}{
		{Customer{FirstName: "Maria", LastName: "Silva"}, "Maria Silva"},
		{Customer{FirstName: "Maria"}, "Maria"},
		{Customer{Email: "maria.silva@email.com"}, "maria.silva"},
		{Customer{}, "User"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.customer.DisplayName())
	}
}

func TestOrderItem_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Tapete", OrderItem{ProductTitle: "Tapete", Title: "other"}.DisplayTitle())
	assert.Equal(t, "Bloco", OrderItem{Title: "Bloco"}.DisplayTitle())
	assert.Equal(t, "Item", OrderItem{}.DisplayTitle())
}

func TestOrder_Ref(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":"order_01","display_id":1234}`), &o))
	assert.Equal(t, "1234", o.Ref())

	assert.Equal(t, "order_02", Order{ID: "order_02"}.Ref())
	assert.Equal(t, "unknown", Order{}.Ref())
}

func TestOrder_CreatedDate(t *testing.T) {
	o := Order{CreatedAt: "2025-06-14T10:30:00.000Z"}
	assert.Equal(t, "2025-06-14", o.CreatedDate())
	assert.Equal(t, "unknown", Order{}.CreatedDate())
}

func TestOrder_ComputedTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Quantity: 2, UnitPrice: 100},
		{Quantity: 1, UnitPrice: 49.9},
	}}
	assert.InDelta(t, 249.9, o.ComputedTotal(), 1e-9)
}
