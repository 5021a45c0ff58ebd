// Package catalogstore provides file-backed data source adapters.
// Clean Architecture: Adapters implementing ports.CatalogSource,
// ports.AccountSource and ports.OrderSource over the JSON exports the
// store publishes.
package catalogstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// ProductFile reads the catalog export ({"products": [...]}).
type ProductFile struct {
	path string

	mu       sync.RWMutex
	products []entities.Product
}

// NewProductFile creates a catalog source over a JSON export.
func NewProductFile(path string) *ProductFile {
	return &ProductFile{path: path}
}

// Reload re-reads the export from disk.
func (f *ProductFile) Reload() error {
	var doc struct {
		Products []entities.Product `json:"products"`
	}
	if err := readJSON(f.path, &doc); err != nil {
		return err
	}
	f.mu.Lock()
	f.products = doc.Products
	f.mu.Unlock()
	return nil
}

// Products returns the loaded catalog.
func (f *ProductFile) Products(ctx context.Context) ([]entities.Product, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.products == nil {
		return nil, fmt.Errorf("catalog not loaded from %s", f.path)
	}
	return f.products, nil
}

// CartFile reads the tracked-cart export ({"users": [...]}) and finds
// accounts by user id or email, case-insensitive.
type CartFile struct {
	path string

	mu    sync.RWMutex
	users []entities.UserAccount
}

// NewCartFile creates an account source over a JSON export.
func NewCartFile(path string) *CartFile {
	return &CartFile{path: path}
}

// Reload re-reads the export from disk.
func (f *CartFile) Reload() error {
	var doc struct {
		Users []entities.UserAccount `json:"users"`
	}
	if err := readJSON(f.path, &doc); err != nil {
		return err
	}
	f.mu.Lock()
	f.users = doc.Users
	f.mu.Unlock()
	return nil
}

// FindAccount returns the matching account, or nil when no record
// matches the reference.
func (f *CartFile) FindAccount(ctx context.Context, ref string) (*entities.UserAccount, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := range f.users {
		u := &f.users[i]
		if strings.EqualFold(ref, u.UserID) || strings.EqualFold(ref, u.Email) {
			account := *u
			return &account, nil
		}
	}
	return nil, nil
}

// OrderFile reads the order-history export ({"orders": [...]}) and
// matches orders by customer id or customer email, case-insensitive.
type OrderFile struct {
	path string

	mu     sync.RWMutex
	orders []entities.Order
}

// NewOrderFile creates an order source over a JSON export.
func NewOrderFile(path string) *OrderFile {
	return &OrderFile{path: path}
}

// Reload re-reads the export from disk.
func (f *OrderFile) Reload() error {
	var doc struct {
		Orders []entities.Order `json:"orders"`
	}
	if err := readJSON(f.path, &doc); err != nil {
		return err
	}
	f.mu.Lock()
	f.orders = doc.Orders
	f.mu.Unlock()
	return nil
}

// OrdersFor returns all orders belonging to the reference.
func (f *OrderFile) OrdersFor(ctx context.Context, ref string) ([]entities.Order, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var matched []entities.Order
	for _, o := range f.orders {
		if strings.EqualFold(ref, o.CustomerID) || strings.EqualFold(ref, o.Customer.ID) || strings.EqualFold(ref, o.Customer.Email) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// FindCustomer returns the customer record from the first matching
// order, or nil when the reference is unknown.
func (f *OrderFile) FindCustomer(ctx context.Context, ref string) (*entities.Customer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, o := range f.orders {
		if strings.EqualFold(ref, o.CustomerID) || strings.EqualFold(ref, o.Customer.ID) || strings.EqualFold(ref, o.Customer.Email) {
			customer := o.Customer
			return &customer, nil
		}
	}
	return nil, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
