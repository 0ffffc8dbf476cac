// Package voice defines the boundary with a real-time voice engine.
//
// The engine is a producer of typed events delivered on a single channel and
// a consumer of a small set of commands (start, stop, mute, audio). Event
// kinds mirror the notifications of hosted voice-agent platforms:
//
//   - call-start: the call is connected and audio flows.
//   - call-end: the call is over; no further transcript events follow.
//   - speech-start / speech-end: voice activity of a role.
//   - message: a transcript (interim or final) or a speech-update
//     (started/stopped) for a role.
//   - error: an engine-specific error.
package voice

import "time"

type Kind string

const (
	KindCallStart   Kind = "call-start"
	KindCallEnd     Kind = "call-end"
	KindSpeechStart Kind = "speech-start"
	KindSpeechEnd   Kind = "speech-end"
	KindMessage     Kind = "message"
	KindError       Kind = "error"
)

// Roles reported by the engine
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message types carried by KindMessage events
const (
	MessageTypeTranscript   = "transcript"
	MessageTypeSpeechUpdate = "speech-update"
)

const (
	TranscriptTypeFinal   = "final"
	TranscriptTypePartial = "partial"

	SpeechStatusStarted = "started"
	SpeechStatusStopped = "stopped"
)

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

// CallStarted is emitted once the engine has connected the call.
type CallStarted struct{ Base }

func NewCallStarted() CallStarted {
	return CallStarted{Base: NewBase(KindCallStart)}
}

// CallEnded is emitted once the call is torn down, whoever initiated it.
type CallEnded struct{ Base }

func NewCallEnded() CallEnded {
	return CallEnded{Base: NewBase(KindCallEnd)}
}

// SpeechStarted marks the start of voice activity for a role.
type SpeechStarted struct {
	Base
	Role string
}

func NewSpeechStarted(role string) SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStart), Role: role}
}

// SpeechEnded marks the end of voice activity for a role.
type SpeechEnded struct {
	Base
	Role string
}

func NewSpeechEnded(role string) SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnd), Role: role}
}

// TranscriptMessage carries a transcription of one speech segment. Only
// TranscriptTypeFinal segments are terminal.
type TranscriptMessage struct {
	Base
	Role           string
	TranscriptType string
	Transcript     string
}

func NewTranscriptMessage(role, transcriptType, transcript string) TranscriptMessage {
	return TranscriptMessage{
		Base:           NewBase(KindMessage),
		Role:           role,
		TranscriptType: transcriptType,
		Transcript:     transcript,
	}
}

// MessageType returns the message type of the underlying notification.
func (TranscriptMessage) MessageType() string { return MessageTypeTranscript }

// IsFinal reports whether the segment is finalized.
func (m TranscriptMessage) IsFinal() bool { return m.TranscriptType == TranscriptTypeFinal }

// SpeechUpdate reports that a role started or stopped producing speech.
type SpeechUpdate struct {
	Base
	Role   string
	Status string
}

func NewSpeechUpdate(role, status string) SpeechUpdate {
	return SpeechUpdate{Base: NewBase(KindMessage), Role: role, Status: status}
}

// MessageType returns the message type of the underlying notification.
func (SpeechUpdate) MessageType() string { return MessageTypeSpeechUpdate }

// EngineError carries an engine-specific error shape.
type EngineError struct {
	Base
	Type    string
	Message string
	Err     error
}

func NewEngineError(errType, message string, err error) EngineError {
	return EngineError{Base: NewBase(KindError), Type: errType, Message: message, Err: err}
}

func (e EngineError) Error() string {
	if e.Message != "" {
		return e.Type + ": " + e.Message
	}
	if e.Err != nil {
		return e.Type + ": " + e.Err.Error()
	}
	return e.Type
}

func (e EngineError) Unwrap() error { return e.Err }
