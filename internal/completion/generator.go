package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

var (
	ErrUpstream      = errors.New("completion service failure")
	ErrNotConfigured = errors.New("completion service not configured")
	ErrEmptyResponse = errors.New("completion service returned no text")
)

// Prompt is a single completion request
type Prompt struct {
	System      string
	User        string
	MaxTokens   int32
	Temperature float32
}

// Generator produces text for a prompt. Implementations report failures
// wrapped in ErrUpstream and never retry.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeminiGenerator calls the Gemini API through the GenAI SDK
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(prompt.Temperature),
	}
	if prompt.MaxTokens > 0 {
		config.MaxOutputTokens = prompt.MaxTokens
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrUpstream, ErrEmptyResponse)
	}

	return text, nil
}

// unavailableGenerator is used when no API key is configured
type unavailableGenerator struct{}

// NewUnavailableGenerator returns a Generator that always fails with ErrUpstream
func NewUnavailableGenerator() Generator {
	return unavailableGenerator{}
}

func (unavailableGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	return "", fmt.Errorf("%w: %w", ErrUpstream, ErrNotConfigured)
}
