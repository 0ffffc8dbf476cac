package gemini

import (
	"strings"

	"google.golang.org/genai"

	"github.com/room4-2/OpenFeedback/voice"
)

// turnTracker turns Live API server messages into voice events. The Live API
// streams transcription fragments; speech boundaries are inferred from where
// input transcription gives way to model output and from turn completion.
type turnTracker struct {
	userSpeaking      bool
	assistantSpeaking bool
	user              strings.Builder
	assistant         strings.Builder
}

func (t *turnTracker) translate(msg *genai.LiveServerMessage) []voice.Event {
	sc := msg.ServerContent
	if sc == nil {
		return nil
	}

	var events []voice.Event

	if in := sc.InputTranscription; in != nil {
		if in.Text != "" {
			if !t.userSpeaking {
				t.userSpeaking = true
				events = append(events, voice.NewSpeechStarted(voice.RoleUser))
			}
			t.user.WriteString(in.Text)
			events = append(events, voice.NewTranscriptMessage(voice.RoleUser, voice.TranscriptTypePartial, t.user.String()))
		}
		if in.Finished {
			events = append(events, t.flushUser()...)
		}
	}

	out := sc.OutputTranscription
	if sc.ModelTurn != nil || (out != nil && out.Text != "") {
		events = append(events, t.flushUser()...)
		if !t.assistantSpeaking {
			t.assistantSpeaking = true
			events = append(events, voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStarted))
		}
		if out != nil && out.Text != "" {
			t.assistant.WriteString(out.Text)
		}
	}

	if sc.TurnComplete || sc.Interrupted {
		events = append(events, t.flushUser()...)
		events = append(events, t.flushAssistant()...)
	}

	return events
}

// flush closes whatever turn is open, used when the call ends
func (t *turnTracker) flush() []voice.Event {
	return append(t.flushUser(), t.flushAssistant()...)
}

func (t *turnTracker) flushUser() []voice.Event {
	var events []voice.Event
	if t.userSpeaking {
		t.userSpeaking = false
		events = append(events, voice.NewSpeechEnded(voice.RoleUser))
	}
	if text := strings.TrimSpace(t.user.String()); text != "" {
		events = append(events, voice.NewTranscriptMessage(voice.RoleUser, voice.TranscriptTypeFinal, text))
	}
	t.user.Reset()
	return events
}

func (t *turnTracker) flushAssistant() []voice.Event {
	var events []voice.Event
	if text := strings.TrimSpace(t.assistant.String()); text != "" {
		events = append(events, voice.NewTranscriptMessage(voice.RoleAssistant, voice.TranscriptTypeFinal, text))
	}
	t.assistant.Reset()
	if t.assistantSpeaking {
		t.assistantSpeaking = false
		events = append(events, voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStopped))
	}
	return events
}
