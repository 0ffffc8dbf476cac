package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/room4-2/OpenFeedback/call"
	"github.com/room4-2/OpenFeedback/config"
	"github.com/room4-2/OpenFeedback/store"
)

// ErrMaxSessions is returned when the server is at capacity
var ErrMaxSessions = errors.New("maximum sessions reached")

const (
	sessionKeyPrefix  = "session:"
	activeSessionsKey = "active_sessions"
	mirrorTimeout     = 2 * time.Second
)

// Manager manages all client sessions
type Manager struct {
	sessions  map[string]*ClientSession
	mu        sync.RWMutex
	redis     *redis.Client
	config    *config.Config
	newEngine EngineFactory
	reviews   ReviewGenerator
}

// NewManager creates a session manager. The Redis mirror is best effort; the
// manager runs without it when Redis is unreachable.
func NewManager(cfg *config.Config, newEngine EngineFactory, reviews ReviewGenerator) *Manager {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unavailable at %s, session mirror disabled: %v", cfg.RedisURL, err)
		redisClient.Close()
		redisClient = nil
	}

	return &Manager{
		sessions:  make(map[string]*ClientSession),
		redis:     redisClient,
		config:    cfg,
		newEngine: newEngine,
		reviews:   reviews,
	}
}

// CreateSession creates a client session collecting feedback for order
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn, order store.OrderContext) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		return nil, ErrMaxSessions
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, order, sm.newEngine, sm.reviews, Options{
		AssistantID:     sm.config.VoiceAssistantID,
		Errors:          sm.config.ErrorFilter(),
		MaxBufferSize:   sm.config.MaxBufferSize,
		KeepAlivePeriod: sm.config.KeepAlivePeriod,
	})
	session.OnStatus = sm.mirrorStatus

	sm.storeSession(ctx, sessionID, session)
	return session, nil
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, sessionID string, session *ClientSession) {
	sm.sessions[sessionID] = session

	if sm.redis != nil {
		key := sessionKeyPrefix + sessionID
		sm.redis.HSet(ctx, key, map[string]interface{}{
			"order_id":      session.Order.OrderID,
			"created_at":    session.CreatedAt.Format(time.RFC3339),
			"last_activity": session.LastActive().Format(time.RFC3339),
			"status":        call.StatusIdle.String(),
		})
		sm.redis.SAdd(ctx, activeSessionsKey, sessionID)
		sm.redis.Expire(ctx, key, sm.config.SessionTimeout)
	}
}

// mirrorStatus records a status change in Redis
func (sm *Manager) mirrorStatus(sessionID string, status call.Status) {
	if sm.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	key := sessionKeyPrefix + sessionID
	err := sm.redis.HSet(ctx, key, map[string]interface{}{
		"status":        status.String(),
		"last_activity": time.Now().Format(time.RFC3339),
	}).Err()
	if err != nil {
		log.Printf("⚠️ [%s] Failed to mirror status: %v", sessionID[:8], err)
		return
	}
	sm.redis.Expire(ctx, key, sm.config.SessionTimeout)
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	session.Close()
	delete(sm.sessions, sessionID)
	sm.forget(ctx, sessionID)
	return nil
}

func (sm *Manager) forget(ctx context.Context, sessionID string) {
	if sm.redis != nil {
		sm.redis.Del(ctx, sessionKeyPrefix+sessionID)
		sm.redis.SRem(ctx, activeSessionsKey, sessionID)
	}
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions removes sessions that have been inactive
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.LastActive()) > sm.config.SessionTimeout {
			log.Printf("🧹 [%s] Removing inactive session", id[:8])
			session.Close()
			delete(sm.sessions, id)
			sm.forget(ctx, id)
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions and waits for in-flight reviews
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		session.Close()
		session.Controller.Wait()
		delete(sm.sessions, id)
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
