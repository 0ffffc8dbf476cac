package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/room4-2/OpenFeedback/call"
	"github.com/room4-2/OpenFeedback/review"
	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

// ErrReviewPending rejects a new call while the last one is still being
// turned into a review.
var ErrReviewPending = errors.New("review generation in progress")

const inputBuffer = 16

// Presenter renders controller output. Methods are called from the
// controller loop, one at a time, and must not block.
type Presenter interface {
	StatusChanged(status call.Status, muted bool)
	Utterance(u transcript.Utterance)
	ReviewPending()
	Review(result review.Result)
	Alert(message string)
	Rejected(err error)
}

// ReviewGenerator is satisfied by review.Pipeline
type ReviewGenerator interface {
	Generate(ctx context.Context, t transcript.Transcript, order store.OrderContext) review.Result
}

// Controller drives one call.Machine. User intents, engine events and review
// results are consumed by a single loop, so the machine sees one input at a
// time in arrival order.
type Controller struct {
	machine   *call.Machine
	engine    voice.Engine
	reviews   ReviewGenerator
	presenter Presenter

	inputs  chan call.Input
	results chan review.Result

	status  atomic.Int32
	pending atomic.Bool
	wg      sync.WaitGroup
}

func NewController(machine *call.Machine, engine voice.Engine, reviews ReviewGenerator, presenter Presenter) *Controller {
	c := &Controller{
		machine:   machine,
		engine:    engine,
		reviews:   reviews,
		presenter: presenter,
		inputs:    make(chan call.Input, inputBuffer),
		results:   make(chan review.Result, 1),
	}
	c.status.Store(int32(machine.Status()))
	return c
}

// Status returns the last status published by the loop
func (c *Controller) Status() call.Status {
	return call.Status(c.status.Load())
}

// ReviewPending reports whether a review is being generated
func (c *Controller) ReviewPending() bool {
	return c.pending.Load()
}

// Submit queues a user intent. It returns false once ctx is done.
func (c *Controller) Submit(ctx context.Context, in call.Input) bool {
	select {
	case c.inputs <- in:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run consumes inputs until ctx is done
func (c *Controller) Run(ctx context.Context) {
	events := c.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-c.inputs:
			c.apply(ctx, in)
		case ev := <-events:
			c.apply(ctx, call.EngineEvent{Event: ev})
		case res := <-c.results:
			c.pending.Store(false)
			c.presenter.Review(res)
		}
	}
}

// Wait blocks until in-flight review generations have finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) apply(ctx context.Context, in call.Input) {
	if _, ok := in.(call.StartIntent); ok && c.pending.Load() {
		c.presenter.Rejected(ErrReviewPending)
		return
	}

	effects := c.machine.Apply(in)
	for _, effect := range effects {
		if _, ok := effect.(call.GenerateReview); ok {
			c.pending.Store(true)
		}
	}
	for _, effect := range effects {
		c.execute(ctx, effect)
	}
}

func (c *Controller) execute(ctx context.Context, effect call.Effect) {
	switch e := effect.(type) {
	case call.StatusChanged:
		c.status.Store(int32(e.To))
		c.presenter.StatusChanged(e.To, c.machine.Muted())

	case call.OpenSession:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.engine.Start(ctx, e.AssistantID, e.Options); err != nil {
				c.feed(ctx, call.EngineEvent{Event: voice.NewEngineError(voice.ErrorTypeStartFailed, "", err)})
			}
		}()

	case call.StopSession:
		if err := c.engine.Stop(); err != nil && !errors.Is(err, voice.ErrNotConnected) {
			log.Printf("⚠️ Failed to stop voice call: %v", err)
		}

	case call.SetMuted:
		if err := c.engine.SetMuted(e.Muted); err != nil {
			log.Printf("⚠️ Failed to set mute: %v", err)
		}
		c.presenter.StatusChanged(c.Status(), e.Muted)

	case call.UtteranceRecorded:
		c.presenter.Utterance(e.Utterance)

	case call.GenerateReview:
		c.presenter.ReviewPending()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			// The review is persisted even if the client goes away mid-generation.
			res := c.reviews.Generate(context.WithoutCancel(ctx), e.Transcript, e.Order)
			select {
			case c.results <- res:
			case <-ctx.Done():
			}
		}()

	case call.Alert:
		log.Printf("❌ Voice call failed: %v", e.Cause)
		c.presenter.Alert(e.Message)
	}
}

// feed delivers an input from a worker goroutine back into the loop
func (c *Controller) feed(ctx context.Context, in call.Input) {
	select {
	case c.inputs <- in:
	case <-ctx.Done():
	}
}
