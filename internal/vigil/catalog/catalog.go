// Package catalog holds the in-memory product catalog of the shop.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a product entity in the catalog.
type Product struct {
	ID    string
	Name  string
	Price int64 // price in cents
	Stock int32
}

// Store keeps the catalog in a mutex-guarded map.
type Store struct {
	mu       sync.RWMutex
	products map[string]Product
	nextID   int
}

// NewStore creates an empty catalog.
func NewStore() *Store {
	return &Store{
		products: make(map[string]Product),
		nextID:   1,
	}
}

// NewStoreWithDefaults creates a catalog seeded with the stock shop items.
func NewStoreWithDefaults() *Store {
	s := NewStore()
	s.Create("Anti-Sleep Alarm", 2999, 120)
	s.Create("DriveGuard Band", 7999, 80)
	s.Create("Dash Camera HD", 14999, 45)
	s.Create("Smart Helmet", 24999, 20)
	s.Create("Cabin Alertness Sensor", 18999, 35)
	return s
}

// FindByID retrieves a product by its ID.
func (s *Store) FindByID(id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// FindAll retrieves all products ordered by ID.
func (s *Store) FindAll() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Create adds a new product and returns it.
func (s *Store) Create(name string, price int64, stock int32) *Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:    fmt.Sprintf("%d", s.nextID),
		Name:  name,
		Price: price,
		Stock: stock,
	}
	s.nextID++
	s.products[product.ID] = product

	return &product
}

// Reserve decrements the stock of a product by quantity.
// Returns ErrProductNotFound or ErrInsufficientStock; on error no stock
// is consumed.
func (s *Store) Reserve(id string, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < quantity {
		return fmt.Errorf("product %s: available %d, requested %d: %w", id, p.Stock, quantity, ErrInsufficientStock)
	}
	p.Stock -= quantity
	s.products[id] = p
	return nil
}

// Release returns previously reserved stock to a product. Releasing stock
// for an unknown product is a no-op.
func (s *Store) Release(id string, quantity int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return
	}
	p.Stock += quantity
	s.products[id] = p
}
