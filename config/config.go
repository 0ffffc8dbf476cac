package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/room4-2/OpenFeedback/voice"
)

// Review providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Order stores
const (
	StoreMemory   = "memory"
	StoreSupabase = "supabase"
)

// Config holds all server configuration
type Config struct {
	Port            int
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration
	MaxBufferSize   int // Maximum pre-roll audio buffer size in bytes per session

	GeminiAPIKey     string
	VoiceAssistantID string
	VoiceModel       string
	VoiceName        string

	ReviewProvider     string // "gemini" or "openai"
	ReviewModel        string
	ReviewTemperature  float64
	OpenAIBaseURL      string
	OpenAIAPIKey       string
	MinTranscriptTurns int
	PersistTimeout     time.Duration

	OrderStore    string // "memory" or "supabase"
	SupabaseURL   string
	SupabaseKey   string
	OrderCacheTTL time.Duration

	TransientErrorTypes    []string
	TransientErrorMessages []string
}

// ErrorFilter returns the engine errors treated as normal teardown
func (c *Config) ErrorFilter() voice.ErrorFilter {
	return voice.ErrorFilter{Types: c.TransientErrorTypes, Messages: c.TransientErrorMessages}
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	defaults := voice.DefaultErrorFilter()
	config := &Config{
		Port:                   8080,
		RedisURL:               "localhost:6379",
		MaxSessions:            100,
		SessionTimeout:         30 * time.Minute,
		AllowedOrigins:         []string{"*"},
		KeepAlivePeriod:        30 * time.Second,
		MaxBufferSize:          5 * 1024 * 1024, // 5MB default
		VoiceAssistantID:       "restaurant-feedback",
		ReviewProvider:         ProviderGemini,
		ReviewTemperature:      0.7,
		MinTranscriptTurns:     6,
		PersistTimeout:         10 * time.Second,
		OrderStore:             StoreMemory,
		OrderCacheTTL:          5 * time.Minute,
		TransientErrorTypes:    defaults.Types,
		TransientErrorMessages: defaults.Messages,
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	var err error
	if config.Port, err = intEnv("PORT", config.Port); err != nil {
		return nil, err
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	if config.MaxSessions, err = intEnv("MAX_SESSIONS", config.MaxSessions); err != nil {
		return nil, err
	}
	if config.SessionTimeout, err = durationEnv("SESSION_TIMEOUT", time.Minute, config.SessionTimeout); err != nil {
		return nil, err
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitList(origins)
	}

	if config.KeepAlivePeriod, err = durationEnv("KEEPALIVE_PERIOD", time.Second, config.KeepAlivePeriod); err != nil {
		return nil, err
	}
	if config.MaxBufferSize, err = intEnv("MAX_BUFFER_SIZE", config.MaxBufferSize); err != nil {
		return nil, err
	}

	// Voice engine
	if id := os.Getenv("VOICE_ASSISTANT_ID"); id != "" {
		config.VoiceAssistantID = id
	}
	config.VoiceModel = os.Getenv("VOICE_MODEL")
	config.VoiceName = os.Getenv("VOICE_NAME")

	// Review generation
	if provider := os.Getenv("REVIEW_PROVIDER"); provider != "" {
		switch provider {
		case ProviderGemini, ProviderOpenAI:
			config.ReviewProvider = provider
		default:
			return nil, fmt.Errorf("invalid REVIEW_PROVIDER: must be 'gemini' or 'openai'")
		}
	}
	config.ReviewModel = os.Getenv("REVIEW_MODEL")
	if temp := os.Getenv("REVIEW_TEMPERATURE"); temp != "" {
		t, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid REVIEW_TEMPERATURE: %w", err)
		}
		config.ReviewTemperature = t
	}
	config.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if config.ReviewProvider == ProviderOpenAI {
		if config.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("OPENAI_BASE_URL is required when REVIEW_PROVIDER is 'openai'")
		}
		if config.ReviewModel == "" {
			return nil, fmt.Errorf("REVIEW_MODEL is required when REVIEW_PROVIDER is 'openai'")
		}
	}
	if config.MinTranscriptTurns, err = intEnv("MIN_TRANSCRIPT_TURNS", config.MinTranscriptTurns); err != nil {
		return nil, err
	}
	if config.PersistTimeout, err = durationEnv("PERSIST_TIMEOUT", time.Second, config.PersistTimeout); err != nil {
		return nil, err
	}

	// Order store
	if orderStore := os.Getenv("ORDER_STORE"); orderStore != "" {
		switch orderStore {
		case StoreMemory, StoreSupabase:
			config.OrderStore = orderStore
		default:
			return nil, fmt.Errorf("invalid ORDER_STORE: must be 'memory' or 'supabase'")
		}
	}
	config.SupabaseURL = os.Getenv("SUPABASE_URL")
	config.SupabaseKey = os.Getenv("SUPABASE_KEY")
	if config.OrderStore == StoreSupabase && (config.SupabaseURL == "" || config.SupabaseKey == "") {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required when ORDER_STORE is 'supabase'")
	}
	if config.OrderCacheTTL, err = durationEnv("ORDER_CACHE_TTL", time.Second, config.OrderCacheTTL); err != nil {
		return nil, err
	}

	// Optional: TRANSIENT_ERROR_TYPES / TRANSIENT_ERROR_MESSAGES (comma-separated)
	if types, ok := os.LookupEnv("TRANSIENT_ERROR_TYPES"); ok {
		config.TransientErrorTypes = splitList(types)
	}
	if msgs, ok := os.LookupEnv("TRANSIENT_ERROR_MESSAGES"); ok {
		config.TransientErrorMessages = splitList(msgs)
	}

	return config, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// durationEnv reads an integer count of unit
func durationEnv(key string, unit, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
