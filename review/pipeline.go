// Package review turns a finished feedback transcript into a short review
// with a star rating.
//
// Generation never fails hard: degenerate transcripts and generation errors
// both resolve to a Result with the zero star sentinel and a reason text.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// NoReview is the sentinel rating meaning no review was generated.
	// It is never a genuine sentiment rating.
	NoReview = 0

	MinStars = 1
	MaxStars = 5

	defaultMinTurns       = 6
	defaultPersistTimeout = 10 * time.Second
)

// Canonical reason texts for the zero star sentinel
const (
	EmptySessionMessage   = "The call ended before any feedback was collected. Please try again and share your thoughts about your experience!"
	NoUserResponseMessage = "No user responses were captured during the call. Please try again and share your thoughts about your experience!"
	TooBriefMessage       = "Thanks for starting! The conversation was too brief to generate a full review. Please complete the full feedback session to create your Google review."
	UnavailableMessage    = "Unable to generate a review at this time. Please try completing the full feedback conversation to create your Google review."
)

// Outcome names why a Result was produced
type Outcome string

const (
	OutcomeGenerated   Outcome = "generated"
	OutcomeEmpty       Outcome = "empty"
	OutcomeNoUser      Outcome = "no_user_response"
	OutcomeTooBrief    Outcome = "too_brief"
	OutcomeSoftFailure Outcome = "soft_failure"
)

// Result is the review handed back to the customer
type Result struct {
	StarRating int    `json:"star_rating"`
	ReviewText string `json:"review_text"`
}

// Generated reports whether the result carries a genuine review
func (r Result) Generated() bool {
	return r.StarRating != NoReview
}

// Generator is a text generation model
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Policy holds the eligibility heuristics and reason texts
type Policy struct {
	// MinTurns is the minimum number of utterances a transcript needs
	MinTurns int

	EmptySessionMessage   string
	NoUserResponseMessage string
	TooBriefMessage       string
	UnavailableMessage    string
}

// DefaultPolicy returns the policy used in production
func DefaultPolicy() Policy {
	return Policy{
		MinTurns:              defaultMinTurns,
		EmptySessionMessage:   EmptySessionMessage,
		NoUserResponseMessage: NoUserResponseMessage,
		TooBriefMessage:       TooBriefMessage,
		UnavailableMessage:    UnavailableMessage,
	}
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPolicy overrides the eligibility policy
func WithPolicy(policy Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithMinTurns overrides only the minimum transcript length
func WithMinTurns(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.policy.MinTurns = n
		}
	}
}

// WithPersistTimeout bounds each background feedback write
func WithPersistTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.persistTimeout = d
		}
	}
}

// Pipeline gates, generates and persists reviews
type Pipeline struct {
	generator      Generator
	writer         store.FeedbackWriter
	policy         Policy
	persistTimeout time.Duration

	pending sync.WaitGroup
}

// NewPipeline creates a pipeline. writer may be nil to disable persistence.
func NewPipeline(generator Generator, writer store.FeedbackWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:      generator,
		writer:         writer,
		policy:         DefaultPolicy(),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the active policy
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Check evaluates the eligibility gate in order: empty, no user response,
// too brief. It returns the sentinel result and false for ineligible
// transcripts.
func (p *Pipeline) Check(t transcript.Transcript) (Result, Outcome, bool) {
	switch {
	case len(t) == 0:
		return Result{StarRating: NoReview, ReviewText: p.policy.EmptySessionMessage}, OutcomeEmpty, false
	case t.UserTurns() == 0:
		return Result{StarRating: NoReview, ReviewText: p.policy.NoUserResponseMessage}, OutcomeNoUser, false
	case len(t) < p.policy.MinTurns:
		return Result{StarRating: NoReview, ReviewText: p.policy.TooBriefMessage}, OutcomeTooBrief, false
	}
	return Result{}, OutcomeGenerated, true
}

// Generate produces the review for a finished transcript.
//
// The model call is the only blocking step. On success a feedback record is
// written in the background; its outcome never changes the returned result.
func (p *Pipeline) Generate(ctx context.Context, t transcript.Transcript, order store.OrderContext) Result {
	ctx, span := tracer.Start(ctx, "generate review")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.Int("transcript.turns", len(t)),
		attribute.Int("transcript.user_turns", t.UserTurns()),
	)

	if result, outcome, ok := p.Check(t); !ok {
		span.SetAttributes(attribute.String("review.outcome", string(outcome)))
		logger.InfoContext(ctx, "transcript not eligible for review",
			"order_id", order.OrderID, "outcome", string(outcome), "turns", len(t))
		return result
	}

	result, err := p.generate(ctx, t, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("review.outcome", string(OutcomeSoftFailure)))
		logger.ErrorContext(ctx, "error generating review, using fallback",
			"order_id", order.OrderID, "error", err)
		return Result{StarRating: NoReview, ReviewText: p.policy.UnavailableMessage}
	}

	span.SetAttributes(
		attribute.String("review.outcome", string(OutcomeGenerated)),
		attribute.Int("review.star_rating", result.StarRating),
	)

	p.persist(ctx, store.FeedbackRecord{
		OrderID:         order.OrderID,
		Transcript:      t.String(),
		Summary:         "",
		GeneratedReview: result.ReviewText,
		Categories:      []string{},
	})

	return result
}

// GenerateText runs the pipeline on a transcript in its line form
func (p *Pipeline) GenerateText(ctx context.Context, raw string, order store.OrderContext) Result {
	return p.Generate(ctx, transcript.Parse(raw), order)
}

// Wait blocks until background feedback writes have finished
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

func (p *Pipeline) generate(ctx context.Context, t transcript.Transcript, order store.OrderContext) (Result, error) {
	raw, err := p.generator.Generate(ctx, BuildPrompt(t, order))
	if err != nil {
		return Result{}, err
	}
	return ParseResult(raw)
}

func (p *Pipeline) persist(ctx context.Context, record store.FeedbackRecord) {
	if p.writer == nil {
		return
	}

	// The write outlives the caller: the response must not wait on it
	ctx = context.WithoutCancel(ctx)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()

		ctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
		defer cancel()

		if err := p.writer.InsertFeedback(ctx, record); err != nil {
			logger.ErrorContext(ctx, "database save error", "order_id", record.OrderID, "error", err)
			return
		}
		logger.InfoContext(ctx, "feedback saved", "order_id", record.OrderID)
	}()
}
