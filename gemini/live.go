package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/room4-2/OpenFeedback/functions"
	"github.com/room4-2/OpenFeedback/voice"
)

const (
	DefaultLiveModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice     = "Zephyr" // Available voices: Puck, Charon, Kore, Fenrir, Aoede, Leda, Orus, Zephyr

	inputMIMEType = "audio/pcm;rate=16000"
	eventBuffer   = 64
)

// NewClient creates a GenAI client for the Gemini API backend
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// LiveConfig configures a LiveEngine
type LiveConfig struct {
	Model string
	Voice string
	// Assistants maps an assistant id to its system prompt. {{name}}
	// placeholders are replaced with the call-start variable values.
	Assistants map[string]string
}

// LiveEngine runs feedback calls over the Gemini Live API. One engine serves
// one client, one call at a time; it can be restarted after CallEnded.
type LiveEngine struct {
	client *genai.Client
	cfg    LiveConfig

	// OnAudio receives the assistant's PCM audio
	OnAudio func(data []byte)

	events chan voice.Event
	done   chan struct{}

	mu           sync.RWMutex
	session      *genai.Session
	tools        *functions.Registry
	muted        bool
	stopping     bool
	endAfterTurn bool
	closed       bool
}

var _ voice.Engine = (*LiveEngine)(nil)

func NewLiveEngine(client *genai.Client, cfg LiveConfig) *LiveEngine {
	if cfg.Model == "" {
		cfg.Model = DefaultLiveModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return &LiveEngine{
		client: client,
		cfg:    cfg,
		events: make(chan voice.Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events is never closed; stop reading once the engine is closed.
func (e *LiveEngine) Events() <-chan voice.Event {
	return e.events
}

// Start connects the Live session and asks the assistant to open with the
// first message.
func (e *LiveEngine) Start(ctx context.Context, assistantID string, opts voice.StartOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("engine is closed")
	}
	if e.session != nil {
		return fmt.Errorf("call already open")
	}

	prompt, ok := e.cfg.Assistants[assistantID]
	if !ok {
		return fmt.Errorf("unknown assistant %q", assistantID)
	}

	tools := functions.ForCall(opts.VariableValues, e.endAfterCurrentTurn)
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{"AUDIO"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: RenderPrompt(prompt, opts.VariableValues)},
			},
		},
		Tools:                    tools.Tools(),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: e.cfg.Voice,
				},
			},
		},
	}

	session, err := e.client.Live.Connect(ctx, e.cfg.Model, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	e.session = session
	e.tools = tools
	e.muted = false
	e.stopping = false
	e.endAfterTurn = false
	log.Printf("✅ Connected to Gemini Live (%s, assistant %s)", e.cfg.Model, assistantID)

	e.emit(voice.NewCallStarted())

	if opts.FirstMessage != "" {
		turnComplete := true
		err := session.SendClientContent(genai.LiveSendClientContentParameters{
			Turns: []*genai.Content{
				{
					Role:  "user",
					Parts: []*genai.Part{{Text: "Open the call by saying exactly: " + opts.FirstMessage}},
				},
			},
			TurnComplete: &turnComplete,
		})
		if err != nil {
			log.Printf("⚠️ Failed to send first message: %v", err)
		}
	}

	go e.receive(session)
	return nil
}

func (e *LiveEngine) receive(session *genai.Session) {
	var tracker turnTracker

	for {
		msg, err := session.Receive()
		if err != nil {
			e.mu.Lock()
			expected := e.stopping || e.closed
			if e.session == session {
				e.session = nil
				e.tools = nil
			}
			e.mu.Unlock()

			if !expected {
				log.Printf("❌ Gemini receive error: %v", err)
				e.emit(voice.NewEngineError(voice.ErrorTypeConnection, "", err))
			}
			for _, ev := range tracker.flush() {
				e.emit(ev)
			}
			e.emit(voice.NewCallEnded())
			log.Println("📞 Gemini Live call ended")
			return
		}

		e.handleMessage(session, &tracker, msg)
	}
}

func (e *LiveEngine) handleMessage(session *genai.Session, tracker *turnTracker, msg *genai.LiveServerMessage) {
	if msg.ToolCall != nil && len(msg.ToolCall.FunctionCalls) > 0 {
		e.handleToolCalls(session, msg.ToolCall.FunctionCalls)
	}

	if sc := msg.ServerContent; sc != nil && sc.ModelTurn != nil && e.OnAudio != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData != nil {
				e.OnAudio(part.InlineData.Data)
			}
		}
	}

	for _, ev := range tracker.translate(msg) {
		e.emit(ev)
	}

	if msg.ServerContent != nil && msg.ServerContent.TurnComplete {
		e.mu.RLock()
		end := e.endAfterTurn
		e.mu.RUnlock()
		if end {
			log.Println("👋 Assistant ended the call")
			if err := e.Stop(); err != nil {
				log.Printf("⚠️ Failed to stop call: %v", err)
			}
		}
	}
}

func (e *LiveEngine) handleToolCalls(session *genai.Session, calls []*genai.FunctionCall) {
	e.mu.RLock()
	tools := e.tools
	e.mu.RUnlock()
	if tools == nil {
		return
	}

	log.Printf("🔧 Received %d function call(s)", len(calls))
	responses := make([]*genai.FunctionResponse, 0, len(calls))
	for _, fc := range calls {
		responses = append(responses, tools.Call(fc))
	}

	err := session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	if err != nil {
		log.Printf("❌ Failed to send tool response: %v", err)
	}
}

func (e *LiveEngine) endAfterCurrentTurn() {
	e.mu.Lock()
	e.endAfterTurn = true
	e.mu.Unlock()
}

// emit delivers in order; it only gives up once the engine is closed.
func (e *LiveEngine) emit(ev voice.Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// Stop closes the Live session; CallEnded follows from the receive loop.
func (e *LiveEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return voice.ErrNotConnected
	}
	if e.stopping {
		return nil
	}
	e.stopping = true
	return e.session.Close()
}

// SetMuted drops microphone audio while muted. Muting also ends the current
// audio stream so the model does not wait on a half-finished utterance.
func (e *LiveEngine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return voice.ErrNotConnected
	}
	wasMuted := e.muted
	e.muted = muted
	if muted && !wasMuted {
		if err := e.session.SendRealtimeInput(genai.LiveRealtimeInput{AudioStreamEnd: true}); err != nil {
			return fmt.Errorf("failed to send audio stream end: %w", err)
		}
	}
	return nil
}

// SendAudio forwards a 16kHz PCM chunk to the model
func (e *LiveEngine) SendAudio(data []byte) error {
	e.mu.RLock()
	session := e.session
	muted := e.muted
	e.mu.RUnlock()

	if session == nil {
		return voice.ErrNotConnected
	}
	if muted || len(data) == 0 {
		return nil
	}

	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: inputMIMEType,
			Data:     data,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// Close stops any open call and releases the engine
func (e *LiveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)

	if e.session != nil {
		e.stopping = true
		return e.session.Close()
	}
	return nil
}

// RenderPrompt replaces {{name}} placeholders with variable values
func RenderPrompt(prompt string, vars map[string]string) string {
	if len(vars) == 0 {
		return prompt
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(prompt)
}
