package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/room4-2/OpenFeedback/messages"
)

// serverMessage mirrors messages.ServerMessage with a raw payload
type serverMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// AudioPlayer streams audio via sox
type AudioPlayer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	closed bool
}

func NewAudioPlayer() *AudioPlayer {
	cmd := exec.Command("sox",
		"-t", "raw",
		"-r", "24000",
		"-b", "16",
		"-c", "1",
		"-e", "signed-integer",
		"-",
		"-d",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Println("sox stdin error:", err)
		return nil
	}

	if err := cmd.Start(); err != nil {
		log.Println("sox start error:", err)
		return nil
	}

	return &AudioPlayer{cmd: cmd, stdin: stdin}
}

func (p *AudioPlayer) Play(audioData []byte) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.stdin == nil {
		return
	}
	p.stdin.Write(audioData)
}

func (p *AudioPlayer) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Wait()
	}
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	orderID := flag.String("order", "123e4567-e89b-12d3-a456-426614174000", "Order to give feedback on")
	audioFile := flag.String("file", "examples/user.pcm", "Audio file to send (16kHz PCM or WAV)")
	play := flag.Bool("play", true, "Play assistant audio through sox")
	flag.Parse()

	target, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}
	q := target.Query()
	q.Set("order_id", *orderID)
	target.RawQuery = q.Encode()

	log.Printf("🔌 Connecting to %s...", target)
	conn, _, err := websocket.DefaultDialer.Dial(target.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	var player *AudioPlayer
	if *play {
		if player = NewAudioPlayer(); player == nil {
			log.Println("⚠️ Audio playback disabled (is sox installed?)")
		}
	}
	defer player.Close()

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	listening := make(chan struct{})
	reviewed := make(chan struct{})
	done := make(chan struct{})

	// Read responses from server
	go func() {
		defer close(done)
		var listeningOnce, reviewedOnce sync.Once
		for {
			var msg serverMessage
			if err := conn.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}

			switch msg.Type {
			case messages.TypeAudio:
				var payload messages.AudioResponsePayload
				json.Unmarshal(msg.Payload, &payload)
				if audioBytes, err := base64.StdEncoding.DecodeString(payload.Data); err == nil {
					player.Play(audioBytes)
				}

			case messages.TypeReady:
				var payload messages.ReadyPayload
				json.Unmarshal(msg.Payload, &payload)
				log.Printf("🍕 Order at %s: %v", payload.RestaurantName, payload.FoodItems)

			case messages.TypeStatus:
				var payload messages.StatusPayload
				json.Unmarshal(msg.Payload, &payload)
				log.Printf("📊 Status: %s (muted: %v)", payload.Status, payload.Muted)
				if payload.Status == "listening" {
					listeningOnce.Do(func() { close(listening) })
				}

			case messages.TypeTranscript:
				var payload messages.TranscriptPayload
				json.Unmarshal(msg.Payload, &payload)
				fmt.Printf("%s: %s\n", payload.Speaker, payload.Text)

			case messages.TypeReviewPending:
				log.Println("⏳ Generating review...")

			case messages.TypeReview:
				var payload messages.ReviewPayload
				json.Unmarshal(msg.Payload, &payload)
				fmt.Printf("\n⭐ %d stars\n%s\n", payload.StarRating, payload.ReviewText)
				if payload.GoogleMapsURL != "" {
					fmt.Printf("Post it: %s\n", payload.GoogleMapsURL)
				}
				reviewedOnce.Do(func() { close(reviewed) })

			case messages.TypeAlert:
				var payload messages.AlertPayload
				json.Unmarshal(msg.Payload, &payload)
				log.Printf("⚠️ %s", payload.Message)

			case messages.TypeError:
				log.Printf("❌ Error: %s", string(msg.Payload))
			}
		}
	}()

	send := func(action string) {
		payload, _ := json.Marshal(messages.ControlPayload{Action: action})
		if err := conn.WriteJSON(messages.ClientMessage{Type: messages.TypeControl, Payload: payload}); err != nil {
			log.Printf("Send error: %v", err)
		}
	}

	send(messages.ActionStart)

	select {
	case <-listening:
	case <-done:
		return
	case <-time.After(15 * time.Second):
		log.Fatal("⏰ Timeout waiting for the call to connect")
	}

	audioData, err := loadAudioFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to load audio: %v", err)
	}

	// Send audio in chunks (simulating real-time streaming)
	log.Printf("📤 Sending audio file: %s", *audioFile)
	chunkSize := 3200 // 100ms at 16kHz
	for i := 0; i < len(audioData); i += chunkSize {
		end := min(i+chunkSize, len(audioData))
		if err := conn.WriteMessage(websocket.BinaryMessage, audioData[i:end]); err != nil {
			log.Printf("Send error: %v", err)
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	log.Println("✅ Audio sent, press Ctrl+C to hang up")

	select {
	case <-interrupt:
		log.Println("\n👋 Hanging up...")
		send(messages.ActionEnd)
	case <-done:
		log.Println("Connection closed")
		return
	}

	select {
	case <-reviewed:
	case <-done:
	case <-time.After(60 * time.Second):
		log.Println("⏰ Timeout waiting for the review")
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// loadAudioFile loads PCM or WAV file and returns raw PCM bytes
func loadAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Check if it's a WAV file (starts with "RIFF")
	if len(data) > 44 && string(data[0:4]) == "RIFF" {
		// Skip WAV header (44 bytes for standard WAV)
		return data[44:], nil
	}

	return data, nil
}
