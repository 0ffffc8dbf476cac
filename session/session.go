package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/room4-2/OpenFeedback/call"
	"github.com/room4-2/OpenFeedback/messages"
	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// EngineFactory creates the voice engine of one session. onAudio receives
// the assistant's audio.
type EngineFactory func(onAudio func(data []byte)) voice.Engine

// ClientSession connects one feedback page to a voice call. It is the
// presentation adapter of the call controller.
type ClientSession struct {
	ID           string
	Order        store.OrderContext
	ClientConn   *websocket.Conn
	Engine       voice.Engine
	Controller   *Controller
	PreRoll      *AudioBuffer // Audio received while the call is connecting
	CreatedAt    time.Time
	LastActivity time.Time

	// OnStatus is notified of every status change
	OnStatus func(id string, status call.Status)

	// Use channels for non-blocking writes
	writeChan chan any
	keepAlive time.Duration
	audioMu   sync.Mutex

	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

var _ Presenter = (*ClientSession)(nil)

// Options configures a ClientSession
type Options struct {
	AssistantID     string
	Errors          voice.ErrorFilter
	MaxBufferSize   int
	KeepAlivePeriod time.Duration
}

// NewClientSession creates a session for one order
func NewClientSession(id string, clientConn *websocket.Conn, order store.OrderContext, newEngine EngineFactory, reviews ReviewGenerator, opts Options) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	// Configure WebSocket for better performance
	clientConn.SetReadLimit(512 * 1024) // 512KB max message
	clientConn.EnableWriteCompression(true)
	clientConn.SetCompressionLevel(6)

	cs := &ClientSession{
		ID:           id,
		Order:        order,
		ClientConn:   clientConn,
		PreRoll:      NewAudioBuffer(opts.MaxBufferSize),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		writeChan:    make(chan any, writeBufferSize),
		keepAlive:    opts.KeepAlivePeriod,
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	cs.Engine = newEngine(cs.sendAssistantAudio)
	machine := call.NewMachine(call.Config{AssistantID: opts.AssistantID, Errors: opts.Errors})
	cs.Controller = NewController(machine, cs.Engine, reviews, cs)
	return cs
}

// Start begins the bidirectional message handling
func (cs *ClientSession) Start() {
	go cs.writePump()
	go cs.Controller.Run(cs.ctx)
	cs.queueMessage(messages.NewReadyMessage(cs.ID, cs.Order))
	cs.queueMessage(messages.NewStatusMessage(cs.ID, call.StatusIdle.String(), false))
	go cs.handleClientMessages()
}

// StatusChanged flushes the pre-roll once the call is live
func (cs *ClientSession) StatusChanged(status call.Status, muted bool) {
	cs.queueMessage(messages.NewStatusMessage(cs.ID, status.String(), muted))
	if cs.OnStatus != nil {
		cs.OnStatus(cs.ID, status)
	}

	cs.audioMu.Lock()
	defer cs.audioMu.Unlock()

	switch {
	case status == call.StatusListening && !cs.PreRoll.IsEmpty():
		if dropped := cs.PreRoll.Dropped(); dropped > 0 {
			log.Printf("⚠️ [%s] Pre-roll overflowed, %d bytes dropped", cs.ID[:8], dropped)
		}
		chunks := cs.PreRoll.Flush()
		log.Printf("📤 [%s] Flushing %d pre-roll chunks", cs.ID[:8], len(chunks))
		for _, chunk := range chunks {
			if err := cs.Engine.SendAudio(chunk); err != nil {
				log.Printf("❌ [%s] Failed to send pre-roll audio: %v", cs.ID[:8], err)
				break
			}
		}
	case !status.Open():
		cs.PreRoll.Clear()
	}
}

func (cs *ClientSession) Utterance(u transcript.Utterance) {
	cs.queueMessage(messages.NewTranscriptMessage(cs.ID, string(u.Speaker), u.Text))
}

func (cs *ClientSession) ReviewPending() {
	log.Printf("📝 [%s] Generating review", cs.ID[:8])
	cs.queueMessage(messages.NewReviewPendingMessage(cs.ID))
}

func (cs *ClientSession) Review(result review.Result) {
	log.Printf("⭐ [%s] Review ready (%d stars)", cs.ID[:8], result.StarRating)
	cs.queueMessage(messages.NewReviewMessage(cs.ID, result.StarRating, result.ReviewText, cs.Order.GoogleMapsURL))
}

func (cs *ClientSession) Alert(message string) {
	cs.queueMessage(messages.NewAlertMessage(cs.ID, message))
}

func (cs *ClientSession) Rejected(err error) {
	code := messages.ErrCodeInvalidMessage
	if errors.Is(err, ErrReviewPending) {
		code = messages.ErrCodeReviewPending
	}
	cs.queueMessage(messages.NewErrorMessage(cs.ID, code, err.Error()))
}

func (cs *ClientSession) sendAssistantAudio(data []byte) {
	cs.queueMessage(messages.NewAudioMessage(cs.ID, base64.StdEncoding.EncodeToString(data)))
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	defer func() {
		// Send close message before exiting
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	var ping <-chan time.Time
	if cs.keepAlive > 0 {
		ticker := time.NewTicker(cs.keepAlive)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-cs.CloseChan:
			return
		case <-ping:
			if err := cs.ClientConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case msg := <-cs.writeChan:
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg any) {
	if cs.IsClosed() {
		return
	}
	select {
	case cs.writeChan <- msg:
		cs.touch()
	default:
		log.Printf("⚠️ [%s] Write queue full, dropping message", cs.ID[:8])
	}
}

func (cs *ClientSession) touch() {
	cs.mu.Lock()
	cs.LastActivity = time.Now()
	cs.mu.Unlock()
}

// LastActive returns the time of the last client or server message
func (cs *ClientSession) LastActive() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.LastActivity
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	cs.mu.Unlock()

	cs.cancel()

	// Signal close (for other goroutines waiting on this)
	close(cs.CloseChan)

	cs.PreRoll.Clear()

	if cs.Engine != nil {
		cs.Engine.Close()
	}

	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}

	return nil
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		messageType, message, err := cs.ClientConn.ReadMessage()
		if err != nil {
			if !cs.IsClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("❌ [%s] WebSocket read error: %v", cs.ID[:8], err)
			}
			return
		}

		cs.touch()

		// Binary frames carry raw PCM audio
		if messageType == websocket.BinaryMessage {
			cs.handleAudio(message)
			continue
		}

		var clientMsg messages.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
			continue
		}

		cs.processClientMessage(&clientMsg)
	}
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeAudio:
		var payload messages.AudioPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid audio payload"))
			return
		}
		audioBytes, err := base64.StdEncoding.DecodeString(payload.Data)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid base64 audio data"))
			return
		}
		cs.handleAudio(audioBytes)

	case messages.TypeControl:
		var payload messages.ControlPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		cs.handleControlMessage(&payload)

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleControlMessage(payload *messages.ControlPayload) {
	var in call.Input
	switch payload.Action {
	case messages.ActionPing:
		cs.queueMessage(messages.NewPongMessage(cs.ID))
		return
	case messages.ActionStart:
		log.Printf("📞 [%s] Starting feedback call for order %s", cs.ID[:8], cs.Order.OrderID)
		in = call.StartIntent{Order: cs.Order}
	case messages.ActionEnd:
		in = call.EndIntent{}
	case messages.ActionMute:
		in = call.MuteIntent{Muted: true}
	case messages.ActionUnmute:
		in = call.MuteIntent{Muted: false}
	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
		return
	}
	cs.Controller.Submit(cs.ctx, in)
}

// handleAudio holds audio in the pre-roll while connecting and forwards it
// once the call is live. Audio outside a call is discarded.
func (cs *ClientSession) handleAudio(data []byte) {
	cs.audioMu.Lock()
	defer cs.audioMu.Unlock()

	switch status := cs.Controller.Status(); {
	case status == call.StatusConnecting:
		if err := cs.PreRoll.Append(data); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeBufferFull,
				fmt.Sprintf("Audio chunk exceeds buffer (max %d bytes)", cs.PreRoll.MaxSize())))
		}
	case status.Open():
		if err := cs.Engine.SendAudio(data); err != nil && !errors.Is(err, voice.ErrNotConnected) {
			log.Printf("❌ [%s] Failed to send audio: %v", cs.ID[:8], err)
		}
	}
}
