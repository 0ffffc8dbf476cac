package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyText is returned when there is nothing to summarize
var ErrEmptyText = errors.New("text is required")

// Summarizer produces short summaries of reviews or transcripts
type Summarizer struct {
	generator Generator
}

// NewSummarizer creates a summarizer on top of a text generator
func NewSummarizer(generator Generator) *Summarizer {
	return &Summarizer{generator: generator}
}

// Summarize returns a 2-3 sentence summary of text
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "summarize")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	logger.DebugContext(ctx, "text to summarize", "length", len(text))

	summary, err := s.generator.Generate(ctx, BuildSummaryPrompt(text))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
