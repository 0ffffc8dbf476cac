package session

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned for a chunk larger than the whole buffer
var ErrBufferFull = errors.New("audio buffer full")

// AudioBuffer holds microphone audio that arrives while the call is still
// connecting. When full, the oldest chunks are evicted so the audio closest
// to the connect is kept.
type AudioBuffer struct {
	chunks    [][]byte
	totalSize int
	maxSize   int
	dropped   int
	mu        sync.Mutex
}

// NewAudioBuffer creates a buffer with the specified maximum size in bytes
func NewAudioBuffer(maxSize int) *AudioBuffer {
	return &AudioBuffer{maxSize: maxSize}
}

// MaxSize returns the maximum buffer size
func (ab *AudioBuffer) MaxSize() int {
	return ab.maxSize
}

// Append adds an audio chunk, evicting older chunks to make room
func (ab *AudioBuffer) Append(chunk []byte) error {
	if len(chunk) > ab.maxSize {
		return ErrBufferFull
	}

	ab.mu.Lock()
	defer ab.mu.Unlock()

	for ab.totalSize+len(chunk) > ab.maxSize && len(ab.chunks) > 0 {
		ab.totalSize -= len(ab.chunks[0])
		ab.dropped += len(ab.chunks[0])
		ab.chunks[0] = nil
		ab.chunks = ab.chunks[1:]
	}

	ab.chunks = append(ab.chunks, chunk)
	ab.totalSize += len(chunk)
	return nil
}

// Flush returns the buffered chunks in arrival order and clears the buffer
func (ab *AudioBuffer) Flush() [][]byte {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	chunks := ab.chunks
	ab.chunks = nil
	ab.totalSize = 0
	ab.dropped = 0
	return chunks
}

// Clear empties the buffer without returning data
func (ab *AudioBuffer) Clear() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.chunks = nil
	ab.totalSize = 0
	ab.dropped = 0
}

// Size returns the current total buffered bytes
func (ab *AudioBuffer) Size() int {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.totalSize
}

// Dropped returns the bytes evicted since the last flush
func (ab *AudioBuffer) Dropped() int {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.dropped
}

// IsEmpty returns true if no chunks are buffered
func (ab *AudioBuffer) IsEmpty() bool {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return len(ab.chunks) == 0
}
