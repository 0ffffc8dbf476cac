package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const DefaultTextModel = "gemini-2.5-flash"

var ErrEmptyResponse = errors.New("empty model response")

// TextGenerator produces review and summary text with a Gemini model
type TextGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewTextGenerator(client *genai.Client, model string, temperature float32) *TextGenerator {
	if model == "" {
		model = DefaultTextModel
	}
	return &TextGenerator{client: client, model: model, temperature: temperature}
}

func (g *TextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini.generate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("model", g.model))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		logger.WarnContext(ctx, "gemini returned no text", "model", g.model)
		return "", ErrEmptyResponse
	}
	return text, nil
}
