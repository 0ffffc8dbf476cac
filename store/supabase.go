package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ordersTable   = "orders"
	feedbackTable = "feedback"

	// orderSelect joins the restaurant name onto the order row
	orderSelect = "*, restaurants ( name )"

	defaultRestaurantName = "Restaurant"
	defaultGoogleMapsURL  = "#"
)

// SupabaseConfig holds Supabase connection configuration
type SupabaseConfig struct {
	URL      string
	APIKey   string
	CacheTTL time.Duration // Default: 5 minutes
}

// SupabaseStore implements Store on the orders and feedback tables
type SupabaseStore struct {
	client *supabase.Client
	cache  *orderCache
}

// orderRow is the shape of an orders row with the joined restaurant
type orderRow struct {
	ID                string   `json:"id"`
	RestaurantID      string   `json:"restaurant_id"`
	GoogleMapsURL     *string  `json:"google_maps_url"`
	FoodItems         []string `json:"food_items"`
	AlcoholItems      []string `json:"alcohol_items"`
	FoodCategories    []string `json:"food_categories"`
	AlcoholCategories []string `json:"alcohol_categories"`
	Restaurants       *struct {
		Name string `json:"name"`
	} `json:"restaurants"`
}

// NewSupabaseStore creates a Supabase-backed store
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: supabase URL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: supabase API key is required", ErrInvalidConfig)
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseStore{
		client: client,
		cache:  newOrderCache(cfg.CacheTTL),
	}, nil
}

// GetOrder implements OrderReader.
func (s *SupabaseStore) GetOrder(ctx context.Context, orderID string) (*OrderContext, error) {
	ctx, span := tracer.Start(ctx, "get order")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if cached, ok := s.cache.get(orderID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}

	var rows []orderRow
	_, err := s.client.From(ordersTable).
		Select(orderSelect, "", false).
		Eq("id", orderID).
		ExecuteTo(&rows)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if len(rows) == 0 {
		logger.InfoContext(ctx, "order not found", "order_id", orderID)
		return nil, ErrOrderNotFound
	}

	order := rows[0].toOrderContext()
	s.cache.put(orderID, order)
	return &order, nil
}

// InsertFeedback implements FeedbackWriter.
func (s *SupabaseStore) InsertFeedback(ctx context.Context, record FeedbackRecord) error {
	_, span := tracer.Start(ctx, "insert feedback")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", record.OrderID))

	if record.Categories == nil {
		record.Categories = []string{}
	}

	_, _, err := s.client.From(feedbackTable).
		Insert(record, false, "", "", "").
		Execute()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SupabaseStore) Close() error {
	// Supabase client doesn't require explicit close
	return nil
}

func (r orderRow) toOrderContext() OrderContext {
	order := OrderContext{
		OrderID:           r.ID,
		RestaurantName:    defaultRestaurantName,
		GoogleMapsURL:     defaultGoogleMapsURL,
		FoodItems:         orEmpty(r.FoodItems),
		AlcoholItems:      orEmpty(r.AlcoholItems),
		FoodCategories:    orEmpty(r.FoodCategories),
		AlcoholCategories: orEmpty(r.AlcoholCategories),
	}
	if r.Restaurants != nil && r.Restaurants.Name != "" {
		order.RestaurantName = r.Restaurants.Name
	}
	if r.GoogleMapsURL != nil && *r.GoogleMapsURL != "" {
		order.GoogleMapsURL = *r.GoogleMapsURL
	}
	return order
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// orderCache provides thread-safe TTL caching of resolved orders
type orderCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     OrderContext
	expiresAt time.Time
}

func newOrderCache(ttl time.Duration) *orderCache {
	return &orderCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *orderCache) get(key string) (OrderContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		return e.value, true
	}
	return OrderContext{}, false
}

func (c *orderCache) put(key string, value OrderContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Compile-time check that SupabaseStore implements Store
var _ Store = (*SupabaseStore)(nil)
