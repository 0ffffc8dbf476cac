package voice

import (
	"context"
	"errors"
	"strings"
)

// ErrNotConnected is returned by commands issued while no call is open.
var ErrNotConnected = errors.New("voice engine not connected")

// Error types produced by engines in this module
const (
	ErrorTypeStartFailed = "start-failed"
	ErrorTypeConnection  = "connection"
	ErrorTypeEjected     = "ejected"
)

// StartOptions carries the call-start configuration.
type StartOptions struct {
	// VariableValues are substituted into the assistant's templates.
	VariableValues map[string]string
	// FirstMessage is spoken by the assistant when the call connects.
	FirstMessage string
}

// Engine is a real-time voice engine.
//
// Events returns the single channel every notification is delivered on, in
// emission order. Start blocks until the call is connected or fails; the
// connected notification itself is delivered as a CallStarted event. Stop
// requests termination; the engine reports completion with CallEnded.
type Engine interface {
	Start(ctx context.Context, assistantID string, opts StartOptions) error
	Stop() error
	SetMuted(muted bool) error
	SendAudio(data []byte) error
	Events() <-chan Event
	Close() error
}

// ErrorFilter recognises expected teardown noise.
type ErrorFilter struct {
	Types    []string
	Messages []string
}

// DefaultErrorFilter suppresses the errors that hosted engines emit when a
// call is ended normally.
func DefaultErrorFilter() ErrorFilter {
	return ErrorFilter{
		Types:    []string{ErrorTypeEjected},
		Messages: []string{"Meeting has ended"},
	}
}

// IsTransient reports whether the error is expected teardown noise.
func (f ErrorFilter) IsTransient(e EngineError) bool {
	for _, t := range f.Types {
		if t != "" && strings.EqualFold(e.Type, t) {
			return true
		}
	}
	for _, m := range f.Messages {
		if m != "" && e.Message == m {
			return true
		}
	}
	return false
}
