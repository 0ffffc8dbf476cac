package messages

import "github.com/room4-2/OpenFeedback/store"

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeOrderNotFound  = "ORDER_NOT_FOUND"
	ErrCodeReviewPending  = "REVIEW_PENDING"
	ErrCodeBufferFull     = "BUFFER_FULL"
	ErrCodeEngineError    = "ENGINE_ERROR"
)

// Server message types
const (
	TypeAudio         = "audio"
	TypeReady         = "ready"
	TypeStatus        = "status"
	TypeTranscript    = "transcript"
	TypeReviewPending = "review_pending"
	TypeReview        = "review"
	TypeAlert         = "alert"
	TypeError         = "error"
	TypePong          = "pong"
)

type ServerMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AudioResponsePayload contains assistant audio for the client
type AudioResponsePayload struct {
	Data     string `json:"data"`     // Base64-encoded PCM audio
	MimeType string `json:"mimeType"` // "audio/pcm;rate=24000"
}

// ReadyPayload describes the order the session collects feedback for
type ReadyPayload struct {
	OrderID        string   `json:"order_id"`
	RestaurantName string   `json:"restaurant_name"`
	GoogleMapsURL  string   `json:"google_maps_url"`
	FoodItems      []string `json:"food_items"`
	AlcoholItems   []string `json:"alcohol_items"`
}

// StatusPayload contains call status updates
type StatusPayload struct {
	Status string `json:"status"` // idle, connecting, listening, user_speaking, thinking, assistant_speaking, ended
	Muted  bool   `json:"muted"`
}

// TranscriptPayload carries one finalized utterance
type TranscriptPayload struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ReviewPayload carries the generated review
type ReviewPayload struct {
	StarRating    int    `json:"star_rating"`
	ReviewText    string `json:"review_text"`
	GoogleMapsURL string `json:"google_maps_url,omitempty"`
}

// AlertPayload is a recoverable notice for the user
type AlertPayload struct {
	Message string `json:"message"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAudioMessage creates an audio response message
func NewAudioMessage(sessionID, data string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeAudio,
		SessionID: sessionID,
		Payload: AudioResponsePayload{
			Data:     data,
			MimeType: "audio/pcm;rate=24000",
		},
	}
}

func NewReadyMessage(sessionID string, order store.OrderContext) *ServerMessage {
	return &ServerMessage{
		Type:      TypeReady,
		SessionID: sessionID,
		Payload: ReadyPayload{
			OrderID:        order.OrderID,
			RestaurantName: order.RestaurantName,
			GoogleMapsURL:  order.GoogleMapsURL,
			FoodItems:      order.FoodItems,
			AlcoholItems:   order.AlcoholItems,
		},
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID, status string, muted bool) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload:   StatusPayload{Status: status, Muted: muted},
	}
}

func NewTranscriptMessage(sessionID, speaker, text string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeTranscript,
		SessionID: sessionID,
		Payload:   TranscriptPayload{Speaker: speaker, Text: text},
	}
}

func NewReviewPendingMessage(sessionID string) *ServerMessage {
	return &ServerMessage{Type: TypeReviewPending, SessionID: sessionID}
}

func NewReviewMessage(sessionID string, stars int, text, mapsURL string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeReview,
		SessionID: sessionID,
		Payload:   ReviewPayload{StarRating: stars, ReviewText: text, GoogleMapsURL: mapsURL},
	}
}

func NewAlertMessage(sessionID, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeAlert,
		SessionID: sessionID,
		Payload:   AlertPayload{Message: message},
	}
}

func NewPongMessage(sessionID string) *ServerMessage {
	return &ServerMessage{Type: TypePong, SessionID: sessionID}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
