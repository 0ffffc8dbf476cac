package call

import (
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

// Input is a user intent or an engine event
type Input interface{ isInput() }

// StartIntent asks for a fresh session about an order
type StartIntent struct {
	Order store.OrderContext
}

// EndIntent asks the engine to end the call
type EndIntent struct{}

// MuteIntent toggles the user's audio input
type MuteIntent struct {
	Muted bool
}

// EngineEvent wraps a notification from the voice engine
type EngineEvent struct {
	Event voice.Event
}

func (StartIntent) isInput() {}
func (EndIntent) isInput()   {}
func (MuteIntent) isInput()  {}
func (EngineEvent) isInput() {}

// Effect is work the caller performs after applying an input
type Effect interface{ isEffect() }

// OpenSession requests the engine to open a call
type OpenSession struct {
	AssistantID string
	Options     voice.StartOptions
}

// StopSession requests the engine to terminate the call
type StopSession struct{}

// SetMuted forwards the mute flag to the engine
type SetMuted struct {
	Muted bool
}

// StatusChanged reports a status transition
type StatusChanged struct {
	From Status
	To   Status
}

// UtteranceRecorded reports a finalized utterance added to the transcript
type UtteranceRecorded struct {
	Utterance transcript.Utterance
}

// GenerateReview hands the frozen transcript to the review pipeline. Until
// the result arrives the review is pending.
type GenerateReview struct {
	Transcript transcript.Transcript
	Order      store.OrderContext
}

// Alert is a one-time recoverable notice for the user
type Alert struct {
	Message string
	Cause   error
}

func (OpenSession) isEffect()       {}
func (StopSession) isEffect()       {}
func (SetMuted) isEffect()          {}
func (StatusChanged) isEffect()     {}
func (UtteranceRecorded) isEffect() {}
func (GenerateReview) isEffect()    {}
func (Alert) isEffect()             {}
