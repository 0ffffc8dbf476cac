// Package call implements the voice feedback session state machine.
//
// Machine is a reducer over (state, input) producing effects. It performs no
// I/O: opening the call, forwarding mute, notifying the presentation layer
// and generating the review are effects the caller executes. Inputs must be
// applied one at a time from a single goroutine.
package call

import (
	"fmt"
	"strings"

	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

// Variable names passed to the assistant on call start
const (
	VarRestaurantName = "restaurant_name"
	VarFoodItems      = "food_items"
	VarAlcoholItems   = "alcohol_items"
	VarCategories     = "categories"
)

// Notices shown to the user when a session fails
const (
	StartFailedNotice = "Could not start voice chat. Please try again."
	EngineErrorNotice = "The voice chat was interrupted. Please try again."
)

const (
	noAlcoholItems    = "no alcoholic drinks"
	generalCategories = "general dining"
)

// Config holds the call-start configuration of a Machine
type Config struct {
	AssistantID string
	Errors      voice.ErrorFilter
}

// Machine owns the lifecycle of one feedback session at a time
type Machine struct {
	cfg        Config
	status     Status
	muted      bool
	order      store.OrderContext
	transcript *transcript.Accumulator
}

// NewMachine creates a machine in the idle state
func NewMachine(cfg Config) *Machine {
	return &Machine{
		cfg:        cfg,
		status:     StatusIdle,
		transcript: transcript.NewAccumulator(),
	}
}

// Status returns the current status
func (m *Machine) Status() Status { return m.status }

// Muted returns the user-controlled mute flag
func (m *Machine) Muted() bool { return m.muted }

// Order returns the order context of the current session
func (m *Machine) Order() store.OrderContext { return m.order }

// Transcript returns a snapshot of the current transcript
func (m *Machine) Transcript() transcript.Transcript { return m.transcript.Snapshot() }

// Apply reduces one input and returns the effects to execute, in order
func (m *Machine) Apply(in Input) []Effect {
	switch in := in.(type) {
	case StartIntent:
		return m.start(in)
	case EndIntent:
		if !m.status.Open() {
			return nil
		}
		// Ended is reached only through the engine's own end notification
		return []Effect{StopSession{}}
	case MuteIntent:
		if !m.status.Open() {
			return nil
		}
		m.muted = in.Muted
		return []Effect{SetMuted{Muted: in.Muted}}
	case EngineEvent:
		return m.handleEvent(in.Event)
	}
	return nil
}

func (m *Machine) start(in StartIntent) []Effect {
	if m.status.Open() {
		return nil
	}

	m.transcript.Reset()
	m.muted = false
	m.order = in.Order

	return []Effect{
		m.transition(StatusConnecting),
		OpenSession{AssistantID: m.cfg.AssistantID, Options: StartOptions(in.Order)},
	}
}

func (m *Machine) handleEvent(event voice.Event) []Effect {
	switch e := event.(type) {
	case voice.CallStarted:
		if m.status == StatusConnecting {
			return []Effect{m.transition(StatusListening)}
		}

	case voice.SpeechStarted:
		if e.Role == voice.RoleUser && (m.status == StatusListening || m.status == StatusAssistantSpeaking) {
			return []Effect{m.transition(StatusUserSpeaking)}
		}

	case voice.SpeechEnded:
		if e.Role == voice.RoleUser && m.status == StatusUserSpeaking {
			return []Effect{m.transition(StatusThinking)}
		}

	case voice.SpeechUpdate:
		if e.Role != voice.RoleAssistant {
			return nil
		}
		switch {
		case e.Status == voice.SpeechStatusStarted && (m.status == StatusThinking || m.status == StatusListening):
			return []Effect{m.transition(StatusAssistantSpeaking)}
		case e.Status == voice.SpeechStatusStopped && m.status == StatusAssistantSpeaking:
			return []Effect{m.transition(StatusListening)}
		}

	case voice.TranscriptMessage:
		// Capture does not depend on the speaking sub-state, only on the
		// session being open.
		if !e.IsFinal() || !m.status.Open() {
			return nil
		}
		speaker := transcript.SpeakerForRole(e.Role)
		if err := m.transcript.Append(speaker, e.Transcript); err != nil {
			return nil
		}
		return []Effect{UtteranceRecorded{Utterance: transcript.Utterance{
			Speaker: speaker,
			Text:    strings.TrimSpace(e.Transcript),
		}}}

	case voice.CallEnded:
		if !m.status.Open() {
			return nil
		}
		effect := m.transition(StatusEnded)
		return []Effect{effect, GenerateReview{Transcript: m.transcript.Snapshot(), Order: m.order}}

	case voice.EngineError:
		if m.cfg.Errors.IsTransient(e) || !m.status.Open() {
			return nil
		}
		notice := EngineErrorNotice
		if e.Type == voice.ErrorTypeStartFailed {
			notice = StartFailedNotice
		}
		return []Effect{
			m.transition(StatusIdle),
			StopSession{},
			Alert{Message: notice, Cause: e},
		}
	}
	return nil
}

func (m *Machine) transition(to Status) StatusChanged {
	from := m.status
	m.status = to
	return StatusChanged{From: from, To: to}
}

// StartOptions builds the call-start configuration for an order
func StartOptions(order store.OrderContext) voice.StartOptions {
	alcohol := noAlcoholItems
	if len(order.AlcoholItems) > 0 {
		alcohol = strings.Join(order.AlcoholItems, ", ")
	}
	categories := generalCategories
	if all := order.Categories(); len(all) > 0 {
		categories = strings.Join(all, ", ")
	}

	return voice.StartOptions{
		VariableValues: map[string]string{
			VarRestaurantName: order.RestaurantName,
			VarFoodItems:      strings.Join(order.FoodItems, ", "),
			VarAlcoholItems:   alcohol,
			VarCategories:     categories,
		},
		FirstMessage: fmt.Sprintf(
			"Hi! Thanks for dining at %s today. I'm here to hear about your experience. This should only take about 2 minutes. Ready to get started?",
			order.RestaurantName,
		),
	}
}
