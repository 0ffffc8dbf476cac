// Package store holds order context and feedback persistence.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrOrderNotFound = errors.New("order not found")
)

// OrderContext is the read-only order data a feedback session is about
type OrderContext struct {
	OrderID           string   `json:"order_id"`
	RestaurantName    string   `json:"restaurant_name"`
	GoogleMapsURL     string   `json:"google_maps_url"`
	FoodItems         []string `json:"food_items"`
	AlcoholItems      []string `json:"alcohol_items"`
	FoodCategories    []string `json:"food_categories"`
	AlcoholCategories []string `json:"alcohol_categories"`
}

// Categories returns food categories followed by alcohol categories
func (o OrderContext) Categories() []string {
	all := make([]string, 0, len(o.FoodCategories)+len(o.AlcoholCategories))
	all = append(all, o.FoodCategories...)
	return append(all, o.AlcoholCategories...)
}

// FeedbackRecord is the persisted artifact of one completed session
type FeedbackRecord struct {
	OrderID         string   `json:"order_id"`
	Transcript      string   `json:"transcript"`
	Summary         string   `json:"summary"`
	GeneratedReview string   `json:"generated_review"`
	Categories      []string `json:"categories"`
}

// OrderReader resolves order context by an opaque order identifier.
// Implementations return ErrOrderNotFound when the order does not exist.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*OrderContext, error)
}

// FeedbackWriter inserts feedback records. No updates or reads are needed.
type FeedbackWriter interface {
	InsertFeedback(ctx context.Context, record FeedbackRecord) error
}

// Store combines order lookup and feedback persistence
type Store interface {
	OrderReader
	FeedbackWriter

	// Close releases resources held by the store
	Close() error
}
