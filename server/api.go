package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/store"
)

const maxRequestBody = 1 << 20

// ReviewService turns a line-form transcript into a review
type ReviewService interface {
	GenerateText(ctx context.Context, raw string, order store.OrderContext) review.Result
}

// Summarizer condenses a transcript or review
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// API serves the HTTP endpoints of the feedback flow
type API struct {
	reviews    ReviewService
	summarizer Summarizer
	orders     store.OrderReader
}

func NewAPI(reviews ReviewService, summarizer Summarizer, orders store.OrderReader) *API {
	return &API{reviews: reviews, summarizer: summarizer, orders: orders}
}

// Register mounts the API routes on mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate-review", a.handleGenerateReview)
	mux.HandleFunc("POST /api/summarize", a.handleSummarize)
	mux.HandleFunc("GET /api/orders/{id}", a.handleGetOrder)
}

type generateReviewRequest struct {
	Transcript     *string  `json:"transcript"`
	OrderID        string   `json:"order_id"`
	RestaurantName string   `json:"restaurant_name"`
	FoodItems      []string `json:"food_items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGenerateReview answers 200 for every well-formed request; degenerate
// transcripts and generation failures come back as the zero star result.
func (a *API) handleGenerateReview(w http.ResponseWriter, r *http.Request) {
	var req generateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	if req.Transcript == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Transcript is required"})
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Order ID is required"})
		return
	}

	order := a.orderContext(r.Context(), req)
	result := a.reviews.GenerateText(r.Context(), *req.Transcript, order)
	writeJSON(w, http.StatusOK, result)
}

// orderContext prefers the request's own order details and falls back to the
// order store for whatever the request leaves out.
func (a *API) orderContext(ctx context.Context, req generateReviewRequest) store.OrderContext {
	order := store.OrderContext{
		OrderID:        req.OrderID,
		RestaurantName: req.RestaurantName,
		FoodItems:      req.FoodItems,
	}
	if a.orders == nil || (order.RestaurantName != "" && len(order.FoodItems) > 0) {
		return order
	}

	stored, err := a.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if !errors.Is(err, store.ErrOrderNotFound) {
			log.Printf("⚠️ Order lookup failed for %s: %v", req.OrderID, err)
		}
		return order
	}
	if order.RestaurantName == "" {
		order.RestaurantName = stored.RestaurantName
	}
	if len(order.FoodItems) == 0 {
		order.FoodItems = stored.FoodItems
	}
	order.GoogleMapsURL = stored.GoogleMapsURL
	order.AlcoholItems = stored.AlcoholItems
	order.FoodCategories = stored.FoodCategories
	order.AlcoholCategories = stored.AlcoholCategories
	return order
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

func (a *API) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Text is required"})
		return
	}

	summary, err := a.summarizer.Summarize(r.Context(), req.Text)
	if err != nil {
		log.Printf("❌ Summarize failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to summarize"})
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}

type orderResponse struct {
	OrderID           string   `json:"order_id"`
	RestaurantName    string   `json:"restaurant_name"`
	GoogleMapsURL     string   `json:"google_maps_url"`
	FoodItems         []string `json:"food_items"`
	AlcoholItems      []string `json:"alcohol_items"`
	FoodCategories    []string `json:"food_categories"`
	AlcoholCategories []string `json:"alcohol_categories"`
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.orders.GetOrder(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Order not found"})
		return
	case err != nil:
		log.Printf("❌ Order lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load order"})
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		OrderID:           order.OrderID,
		RestaurantName:    order.RestaurantName,
		GoogleMapsURL:     order.GoogleMapsURL,
		FoodItems:         order.FoodItems,
		AlcoholItems:      order.AlcoholItems,
		FoodCategories:    order.FoodCategories,
		AlcoholCategories: order.AlcoholCategories,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ Failed to write response: %v", err)
	}
}
