package call

// Status is the lifecycle state of one voice feedback session
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusListening
	StatusUserSpeaking
	StatusThinking
	StatusAssistantSpeaking
	StatusEnded
)

var statusNames = [...]string{
	StatusIdle:              "idle",
	StatusConnecting:        "connecting",
	StatusListening:         "listening",
	StatusUserSpeaking:      "user_speaking",
	StatusThinking:          "thinking",
	StatusAssistantSpeaking: "assistant_speaking",
	StatusEnded:             "ended",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Open reports whether a voice session is open, from the start request
// until the engine reports the end of the call.
func (s Status) Open() bool {
	return s >= StatusConnecting && s < StatusEnded
}
