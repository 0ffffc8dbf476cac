package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/OpenFeedback/call"
	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

const waitFor = 2 * time.Second

type fakeEngine struct {
	events   chan voice.Event
	startErr error

	mu     sync.Mutex
	starts []voice.StartOptions
	stops  int
	muted  []bool
	audio  [][]byte
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan voice.Event, 16)}
}

func (e *fakeEngine) Start(_ context.Context, _ string, opts voice.StartOptions) error {
	e.mu.Lock()
	e.starts = append(e.starts, opts)
	e.mu.Unlock()
	if e.startErr != nil {
		return e.startErr
	}
	e.events <- voice.NewCallStarted()
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	e.stops++
	e.mu.Unlock()
	e.events <- voice.NewCallEnded()
	return nil
}

func (e *fakeEngine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = append(e.muted, muted)
	return nil
}

func (e *fakeEngine) SendAudio(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audio = append(e.audio, data)
	return nil
}

func (e *fakeEngine) Events() <-chan voice.Event { return e.events }
func (e *fakeEngine) Close() error               { return nil }

func (e *fakeEngine) Starts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.starts)
}

type recorder struct {
	mu         sync.Mutex
	statuses   []call.Status
	utterances []transcript.Utterance
	pending    int
	reviews    []review.Result
	alerts     []string
	rejected   []error
}

func (r *recorder) StatusChanged(status call.Status, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recorder) Utterance(u transcript.Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utterances = append(r.utterances, u)
}

func (r *recorder) ReviewPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending++
}

func (r *recorder) Review(result review.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, result)
}

func (r *recorder) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, message)
}

func (r *recorder) Rejected(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, err)
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		statuses:   append([]call.Status(nil), r.statuses...),
		utterances: append([]transcript.Utterance(nil), r.utterances...),
		pending:    r.pending,
		reviews:    append([]review.Result(nil), r.reviews...),
		alerts:     append([]string(nil), r.alerts...),
		rejected:   append([]error(nil), r.rejected...),
	}
}

// gatedReviews blocks Generate until release is closed
type gatedReviews struct {
	release chan struct{}

	mu    sync.Mutex
	calls []transcript.Transcript
}

func (g *gatedReviews) Generate(_ context.Context, t transcript.Transcript, _ store.OrderContext) review.Result {
	g.mu.Lock()
	g.calls = append(g.calls, t)
	g.mu.Unlock()
	<-g.release
	return review.Result{StarRating: 4, ReviewText: "Solid pizza."}
}

func (g *gatedReviews) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type harness struct {
	ctrl    *Controller
	engine  *fakeEngine
	pres    *recorder
	reviews *gatedReviews
	ctx     context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := &harness{
		engine:  newFakeEngine(),
		pres:    &recorder{},
		reviews: &gatedReviews{release: make(chan struct{})},
		ctx:     ctx,
	}
	machine := call.NewMachine(call.Config{AssistantID: "restaurant-feedback", Errors: voice.DefaultErrorFilter()})
	h.ctrl = NewController(machine, h.engine, h.reviews, h.pres)
	go h.ctrl.Run(ctx)

	t.Cleanup(func() {
		select {
		case <-h.reviews.release:
		default:
			close(h.reviews.release)
		}
		cancel()
		h.ctrl.Wait()
	})
	return h
}

func (h *harness) submit(in call.Input) { h.ctrl.Submit(h.ctx, in) }

func (h *harness) emit(e voice.Event) { h.engine.events <- e }

func (h *harness) waitStatus(t *testing.T, want call.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ctrl.Status() == want }, waitFor, time.Millisecond, "status %s", want)
}

func TestControllerFullCall(t *testing.T) {
	h := newHarness(t)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	h.waitStatus(t, call.StatusListening)
	require.Equal(t, 1, h.engine.Starts())

	h.emit(voice.NewTranscriptMessage(voice.RoleAssistant, voice.TranscriptTypeFinal, "How was your meal?"))
	h.emit(voice.NewSpeechStarted(voice.RoleUser))
	h.emit(voice.NewTranscriptMessage(voice.RoleUser, voice.TranscriptTypeFinal, "The pizza was great."))
	h.emit(voice.NewSpeechEnded(voice.RoleUser))
	h.waitStatus(t, call.StatusThinking)

	h.submit(call.EndIntent{})
	h.waitStatus(t, call.StatusEnded)
	require.Eventually(t, func() bool { return h.ctrl.ReviewPending() }, waitFor, time.Millisecond)

	close(h.reviews.release)
	require.Eventually(t, func() bool { return !h.ctrl.ReviewPending() }, waitFor, time.Millisecond)

	got := h.pres.snapshot()
	assert.Equal(t, []call.Status{
		call.StatusConnecting,
		call.StatusListening,
		call.StatusUserSpeaking,
		call.StatusThinking,
		call.StatusEnded,
	}, got.statuses)
	assert.Len(t, got.utterances, 2)
	assert.Equal(t, 1, got.pending)
	assert.Equal(t, []review.Result{{StarRating: 4, ReviewText: "Solid pizza."}}, got.reviews)
	assert.Equal(t, 1, h.reviews.Calls())
	assert.Equal(t, 2, len(h.reviews.calls[0]))
}

func TestControllerRejectsStartWhileReviewPending(t *testing.T) {
	h := newHarness(t)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	h.waitStatus(t, call.StatusListening)
	h.emit(voice.NewCallEnded())
	require.Eventually(t, func() bool { return h.ctrl.ReviewPending() }, waitFor, time.Millisecond)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	require.Eventually(t, func() bool { return len(h.pres.snapshot().rejected) == 1 }, waitFor, time.Millisecond)
	assert.ErrorIs(t, h.pres.snapshot().rejected[0], ErrReviewPending)
	assert.Equal(t, 1, h.engine.Starts())

	close(h.reviews.release)
	require.Eventually(t, func() bool { return !h.ctrl.ReviewPending() }, waitFor, time.Millisecond)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	h.waitStatus(t, call.StatusListening)
	assert.Equal(t, 2, h.engine.Starts())
}

func TestControllerStartFailure(t *testing.T) {
	h := newHarness(t)
	h.engine.startErr = errors.New("dial failed")

	h.submit(call.StartIntent{Order: store.DemoOrder})
	require.Eventually(t, func() bool { return len(h.pres.snapshot().alerts) == 1 }, waitFor, time.Millisecond)

	assert.Equal(t, call.StartFailedNotice, h.pres.snapshot().alerts[0])
	assert.Equal(t, call.StatusIdle, h.ctrl.Status())
	assert.Zero(t, h.reviews.Calls())
}

func TestControllerMute(t *testing.T) {
	h := newHarness(t)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	h.waitStatus(t, call.StatusListening)
	h.submit(call.MuteIntent{Muted: true})
	h.submit(call.MuteIntent{Muted: false})

	require.Eventually(t, func() bool {
		h.engine.mu.Lock()
		defer h.engine.mu.Unlock()
		return len(h.engine.muted) == 2
	}, waitFor, time.Millisecond)
	assert.Equal(t, []bool{true, false}, h.engine.muted)
}

func TestControllerIgnoresTransientErrors(t *testing.T) {
	h := newHarness(t)

	h.submit(call.StartIntent{Order: store.DemoOrder})
	h.waitStatus(t, call.StatusListening)
	h.emit(voice.NewEngineError(voice.ErrorTypeEjected, "Meeting has ended", nil))
	h.emit(voice.NewSpeechStarted(voice.RoleUser))
	h.waitStatus(t, call.StatusUserSpeaking)

	assert.Empty(t, h.pres.snapshot().alerts)
}
