package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/room4-2/OpenFeedback/config"
	"github.com/room4-2/OpenFeedback/messages"
	"github.com/room4-2/OpenFeedback/session"
	"github.com/room4-2/OpenFeedback/store"
)

type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	orders         store.OrderReader
	config         *config.Config
}

func NewServer(cfg *config.Config, sessionManager *session.Manager, orders store.OrderReader, api *API) *Server {
	s := &Server{
		sessionManager: sessionManager,
		orders:         orders,
		config:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024, // 64KB for audio chunks
			WriteBufferSize:   64 * 1024, // 64KB for audio chunks
			EnableCompression: true,
			CheckOrigin:       originChecker(cfg.AllowedOrigins),
		},
	}

	apiMux := http.NewServeMux()
	api.Register(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", otelhttp.NewHandler(apiMux, "feedback-api"))
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// Review generation can take longer than a plain write
		WriteTimeout: 60 * time.Second,
	}

	return s
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
		}
		return false
	}
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 Feedback server starting on port %d", s.config.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%d/ws?order_id=<id>", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	orderID := r.URL.Query().Get("order_id")
	order, err := s.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		if !errors.Is(err, store.ErrOrderNotFound) {
			log.Printf("❌ Order lookup failed for %q: %v", orderID, err)
		}
		rejectConn(conn, messages.ErrCodeOrderNotFound, "Order not found")
		return
	}

	clientSession, err := s.sessionManager.CreateSession(r.Context(), conn, *order)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		rejectConn(conn, messages.ErrCodeInvalidMessage, err.Error())
		return
	}

	log.Printf("✅ New session created: %s (order %s)", clientSession.ID, order.OrderID)

	// Start session (handles messages in goroutines)
	clientSession.Start()

	// Wait for session to close
	<-clientSession.CloseChan

	// Clean up
	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	log.Printf("🔌 Session closed: %s", clientSession.ID)
}

func rejectConn(conn *websocket.Conn, code, message string) {
	_ = conn.WriteJSON(messages.NewErrorMessage("", code, message))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
	conn.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessionManager.GetActiveSessionCount(),
	})
}

// Handler exposes the routes for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
