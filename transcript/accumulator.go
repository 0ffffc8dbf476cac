package transcript

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyUtterance is returned when a finalized segment carries no text
var ErrEmptyUtterance = errors.New("utterance text is empty")

// Speaker identifies who produced an utterance
type Speaker string

const (
	SpeakerUser      Speaker = "User"
	SpeakerAssistant Speaker = "Assistant"
)

// SpeakerForRole maps a voice engine role to a speaker. Anything that is not
// the user is attributed to the assistant.
func SpeakerForRole(role string) Speaker {
	if strings.EqualFold(role, "user") {
		return SpeakerUser
	}
	return SpeakerAssistant
}

// Utterance is one finalized speech segment
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Accumulator is an append-only log of finalized utterances in arrival order
type Accumulator struct {
	utterances []Utterance
	mu         sync.Mutex
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		utterances: make([]Utterance, 0),
	}
}

// Append adds one utterance to the end of the log.
// Each call yields exactly one entry; adjacent same-speaker utterances are
// never merged.
func (a *Accumulator) Append(speaker Speaker, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyUtterance
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.utterances = append(a.utterances, Utterance{Speaker: speaker, Text: text})
	return nil
}

// Snapshot returns a copy of the current ordered sequence
func (a *Accumulator) Snapshot() Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make(Transcript, len(a.utterances))
	copy(snapshot, a.utterances)
	return snapshot
}

// Reset clears the log for a new session
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.utterances = make([]Utterance, 0)
}

// Len returns the number of recorded utterances
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.utterances)
}
