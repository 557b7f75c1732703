package questiongen

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cory-johannsen/quizwar/internal/config"
)

// anthropicMaxTokens bounds a single bank reply.
const anthropicMaxTokens = 4096

// GeminiProvider completes prompts with a Gemini model.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider connects to the Gemini API.
//
// Precondition: apiKey and model must be non-empty.
// Postcondition: Returns a provider the caller must Close, or a non-nil error.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

// Complete sends prompt and joins the text parts of the first candidate.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoContent
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoContent
	}
	return sb.String(), nil
}

// Close releases the client connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// AnthropicProvider completes prompts with a Claude model.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider returns a provider for the Anthropic Messages API.
//
// Precondition: apiKey and model must be non-empty.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete sends prompt as a single user message and joins the text blocks
// of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoContent
	}
	return sb.String(), nil
}

// Close is a no-op; the Anthropic client holds no connection.
func (p *AnthropicProvider) Close() error { return nil }

// NewProvider builds the provider named by cfg, reading the API key from the
// environment variable cfg.APIKeyEnv via getenv.
//
// Postcondition: Returns a provider the caller must Close, or a non-nil error.
func NewProvider(ctx context.Context, cfg config.GeneratorConfig, getenv func(string) string) (Provider, error) {
	key := getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("questiongen: environment variable %s is not set", cfg.APIKeyEnv)
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		p, err := NewGeminiProvider(ctx, key, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(key, cfg.Model), nil
	default:
		return nil, fmt.Errorf("questiongen: unknown provider %q", cfg.Provider)
	}
}
