package messages

import "encoding/json"

// Client message types
const (
	TypeControl = "control"
)

// Control actions issued by the presentation layer
const (
	ActionStart  = "start"
	ActionEnd    = "end"
	ActionMute   = "mute"
	ActionUnmute = "unmute"
	ActionPing   = "ping"
)

// ClientMessage represents a message from the feedback page
type ClientMessage struct {
	Type    string          `json:"type"` // "audio", "control"
	Payload json.RawMessage `json:"payload"`
}

// AudioPayload contains audio data from client
type AudioPayload struct {
	Data string `json:"data"` // Base64-encoded 16kHz PCM audio
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"`
}
