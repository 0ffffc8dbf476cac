package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/room4-2/OpenFeedback/config"
	"github.com/room4-2/OpenFeedback/gemini"
	"github.com/room4-2/OpenFeedback/openaicompat"
	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/server"
	"github.com/room4-2/OpenFeedback/session"
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/voice"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orders, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create order store: %v", err)
	}
	defer orders.Close()

	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}

	generator := newGenerator(cfg, client)
	pipeline := review.NewPipeline(generator, orders,
		review.WithMinTurns(cfg.MinTranscriptTurns),
		review.WithPersistTimeout(cfg.PersistTimeout),
	)

	liveCfg := gemini.LiveConfig{
		Model:      cfg.VoiceModel,
		Voice:      cfg.VoiceName,
		Assistants: map[string]string{cfg.VoiceAssistantID: session.FeedbackAssistantPrompt},
	}
	newEngine := func(onAudio func([]byte)) voice.Engine {
		engine := gemini.NewLiveEngine(client, liveCfg)
		engine.OnAudio = onAudio
		return engine
	}

	// Create session manager
	sessionManager := session.NewManager(cfg, newEngine, pipeline)

	// Start cleanup routine
	go sessionManager.StartCleanupRoutine(ctx)

	api := server.NewAPI(pipeline, review.NewSummarizer(generator), orders)
	srv := server.NewServer(cfg, sessionManager, orders, api)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	// Let pending feedback writes land before exiting
	pipeline.Wait()
	log.Println("Server stopped")
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.OrderStore == config.StoreSupabase {
		log.Printf("🗄️ Using Supabase order store at %s", cfg.SupabaseURL)
		s, err := store.NewSupabaseStore(store.SupabaseConfig{
			URL:      cfg.SupabaseURL,
			APIKey:   cfg.SupabaseKey,
			CacheTTL: cfg.OrderCacheTTL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	log.Printf("🗄️ Using in-memory order store (demo order %s)", store.DemoOrder.OrderID)
	return store.NewMemoryStore(store.DemoOrder), nil
}

func newGenerator(cfg *config.Config, client *genai.Client) review.Generator {
	if cfg.ReviewProvider == config.ProviderOpenAI {
		log.Printf("✍️ Reviews via OpenAI-compatible endpoint %s (%s)", cfg.OpenAIBaseURL, cfg.ReviewModel)
		return openaicompat.NewGenerator(openaicompat.Config{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.ReviewModel,
			Temperature: cfg.ReviewTemperature,
		})
	}
	log.Printf("✍️ Reviews via Gemini (%s)", cfg.ReviewModel)
	return gemini.NewTextGenerator(client, cfg.ReviewModel, float32(cfg.ReviewTemperature))
}
