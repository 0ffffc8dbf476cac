package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/OpenFeedback/config"
	"github.com/room4-2/OpenFeedback/messages"
	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/session"
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/voice"
)

// scriptedEngine plays a short conversation as soon as it is started
type scriptedEngine struct {
	events chan voice.Event
	script []voice.Event
}

func (e *scriptedEngine) Start(context.Context, string, voice.StartOptions) error {
	e.events <- voice.NewCallStarted()
	for _, ev := range e.script {
		e.events <- ev
	}
	return nil
}

func (e *scriptedEngine) Stop() error {
	e.events <- voice.NewCallEnded()
	return nil
}

func (e *scriptedEngine) SetMuted(bool) error        { return nil }
func (e *scriptedEngine) SendAudio([]byte) error     { return nil }
func (e *scriptedEngine) Events() <-chan voice.Event { return e.events }
func (e *scriptedEngine) Close() error               { return nil }

func newTestServer(t *testing.T, gen *stubGenerator) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		RedisURL:         "127.0.0.1:1",
		MaxSessions:      2,
		SessionTimeout:   time.Minute,
		AllowedOrigins:   []string{"*"},
		MaxBufferSize:    1024,
		VoiceAssistantID: "restaurant-feedback",
	}
	orders := store.NewMemoryStore(store.DemoOrder)
	pipeline := review.NewPipeline(gen, orders, review.WithMinTurns(2))

	newEngine := func(func([]byte)) voice.Engine {
		return &scriptedEngine{
			events: make(chan voice.Event, 16),
			script: []voice.Event{
				voice.NewTranscriptMessage(voice.RoleAssistant, voice.TranscriptTypeFinal, "How was it?"),
				voice.NewTranscriptMessage(voice.RoleUser, voice.TranscriptTypeFinal, "Great pizza."),
			},
		}
	}
	manager := session.NewManager(cfg, newEngine, pipeline)
	srv := NewServer(cfg, manager, orders, NewAPI(pipeline, review.NewSummarizer(gen), orders))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		manager.Shutdown()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server, orderID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?order_id=" + orderID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// readUntil reads messages until one of type want arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func control(t *testing.T, conn *websocket.Conn, action string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    messages.TypeControl,
		"payload": map[string]string{"action": action},
	}))
}

func TestWebSocketUnknownOrder(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})
	conn := dial(t, ts, "missing")

	msg := readUntil(t, conn, messages.TypeError)
	assert.Equal(t, messages.ErrCodeOrderNotFound, msg.Payload["code"])
}

func TestWebSocketFeedbackCall(t *testing.T) {
	gen := &stubGenerator{out: `{"star_rating": 5, "review_text": "Great pizza, friendly staff."}`}
	ts := newTestServer(t, gen)
	conn := dial(t, ts, store.DemoOrder.OrderID)

	ready := readUntil(t, conn, messages.TypeReady)
	assert.Equal(t, "Mario's Pizzeria", ready.Payload["restaurant_name"])

	control(t, conn, messages.ActionPing)
	readUntil(t, conn, messages.TypePong)

	control(t, conn, messages.ActionStart)
	for {
		status := readUntil(t, conn, messages.TypeStatus)
		if status.Payload["status"] == "listening" {
			break
		}
	}

	first := readUntil(t, conn, messages.TypeTranscript)
	assert.Equal(t, "Assistant", first.Payload["speaker"])
	second := readUntil(t, conn, messages.TypeTranscript)
	assert.Equal(t, "User", second.Payload["speaker"])
	assert.Equal(t, "Great pizza.", second.Payload["text"])

	control(t, conn, messages.ActionEnd)
	readUntil(t, conn, messages.TypeReviewPending)

	result := readUntil(t, conn, messages.TypeReview)
	assert.EqualValues(t, 5, result.Payload["star_rating"])
	assert.Equal(t, "Great pizza, friendly staff.", result.Payload["review_text"])
	assert.Equal(t, store.DemoOrder.GoogleMapsURL, result.Payload["google_maps_url"])
}

func TestWebSocketUnknownAction(t *testing.T) {
	ts := newTestServer(t, &stubGenerator{})
	conn := dial(t, ts, store.DemoOrder.OrderID)

	control(t, conn, "dance")
	msg := readUntil(t, conn, messages.TypeError)
	assert.Equal(t, messages.ErrCodeInvalidMessage, msg.Payload["code"])
}
