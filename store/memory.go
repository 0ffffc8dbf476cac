package store

import (
	"context"
	"sync"
)

// DemoOrder is served by the memory store so the feedback flow can be
// exercised without a database.
var DemoOrder = OrderContext{
	OrderID:           "123e4567-e89b-12d3-a456-426614174000",
	RestaurantName:    "Mario's Pizzeria",
	GoogleMapsURL:     "https://maps.google.com/?cid=12345",
	FoodItems:         []string{"Margherita Pizza", "Caesar Salad", "Tiramisu"},
	AlcoholItems:      []string{"Peroni Beer", "House Red Wine"},
	FoodCategories:    []string{"Italian", "Pizza", "Pasta"},
	AlcoholCategories: []string{"Beer", "Wine"},
}

// MemoryStore implements Store with in-memory maps
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]OrderContext
	feedback []FeedbackRecord
}

// NewMemoryStore creates a store holding the given orders
func NewMemoryStore(orders ...OrderContext) *MemoryStore {
	s := &MemoryStore{
		orders:   make(map[string]OrderContext, len(orders)),
		feedback: make([]FeedbackRecord, 0),
	}
	for _, o := range orders {
		s.orders[o.OrderID] = o
	}
	return s
}

// GetOrder implements OrderReader.
func (s *MemoryStore) GetOrder(ctx context.Context, orderID string) (*OrderContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// InsertFeedback implements FeedbackWriter.
func (s *MemoryStore) InsertFeedback(ctx context.Context, record FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = append(s.feedback, record)
	return nil
}

// Feedback returns the records inserted so far
func (s *MemoryStore) Feedback() []FeedbackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]FeedbackRecord, len(s.feedback))
	copy(records, s.feedback)
	return records
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
