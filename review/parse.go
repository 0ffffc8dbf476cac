package review

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	// ErrNoJSON is returned when the model output holds no brace span
	ErrNoJSON = errors.New("no JSON found in response")
	// ErrInvalidResult is returned when the JSON does not describe a review
	ErrInvalidResult = errors.New("invalid review result")
)

// modelResult accepts ratings written as 4 or 4.0
type modelResult struct {
	StarRating *float64 `json:"star_rating"`
	ReviewText string   `json:"review_text"`
}

// ExtractJSON returns the span from the first "{" to the last "}".
// Models may wrap the object in prose despite instructions; this is a best
// effort and the span is not guaranteed to be valid JSON.
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// ParseResult extracts and validates a review from raw model output
func ParseResult(raw string) (Result, error) {
	span, err := ExtractJSON(raw)
	if err != nil {
		return Result{}, err
	}

	var parsed modelResult
	if err := sonic.UnmarshalString(span, &parsed); err != nil {
		return Result{}, fmt.Errorf("error unmarshalling response: %w", err)
	}

	if parsed.StarRating == nil {
		return Result{}, fmt.Errorf("%w: star_rating missing", ErrInvalidResult)
	}
	rating := *parsed.StarRating
	if rating != math.Trunc(rating) || rating < MinStars || rating > MaxStars {
		return Result{}, fmt.Errorf("%w: star_rating %v out of range", ErrInvalidResult, rating)
	}

	if strings.TrimSpace(parsed.ReviewText) == "" {
		return Result{}, fmt.Errorf("%w: review_text empty", ErrInvalidResult)
	}

	return Result{StarRating: int(rating), ReviewText: parsed.ReviewText}, nil
}
