// Package openaicompat generates review text through any OpenAI-compatible
// chat completion endpoint, such as a model gateway.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoChoices = errors.New("client didn't return any content choices")

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

type Generator struct {
	client      *openai.Client
	model       string
	temperature float64
}

func NewGenerator(cfg Config) *Generator {
	options := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if cfg.APIKey == "" {
		logger.Info("no API key configured, will try unauthenticated access", "base_url", cfg.BaseURL)
	} else {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(options...)
	return &Generator{client: &client, model: cfg.Model, temperature: cfg.Temperature}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "openaicompat.generate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("model", g.model))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       g.model,
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, ErrNoChoices.Error())
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}
