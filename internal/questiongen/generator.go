// Package questiongen writes new trivia question banks with a large language
// model.
package questiongen

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/question"
)

//go:embed prompts/generate_questions.txt
var generateQuestionsPrompt string

var promptTemplate = template.Must(template.New("generate_questions").Parse(generateQuestionsPrompt))

// ErrNoContent is returned when a provider replies with no text.
var ErrNoContent = errors.New("questiongen: provider returned no content")

// Provider sends a prompt to a model and returns its text reply.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Request describes a bank to generate.
type Request struct {
	Count int
	// Topic narrows the questions. Empty means general knowledge.
	Topic string
	// Avoid lists question texts the model must not repeat.
	Avoid []string
}

// Generator turns model replies into validated question banks.
type Generator struct {
	provider Provider
	logger   *zap.Logger
}

// NewGenerator returns a Generator backed by provider.
//
// Precondition: provider and logger must be non-nil.
func NewGenerator(provider Provider, logger *zap.Logger) *Generator {
	if provider == nil || logger == nil {
		panic("questiongen.NewGenerator: provider and logger must not be nil")
	}
	return &Generator{provider: provider, logger: logger}
}

// Prompt renders the prompt for req.
//
// Precondition: req.Count >= 1.
func Prompt(req Request) (string, error) {
	if req.Count < 1 {
		return "", fmt.Errorf("questiongen: count must be >= 1, got %d", req.Count)
	}
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate asks the provider for req.Count questions.
//
// Postcondition: Returns a validated Bank, or an error if the reply could not
// be parsed or held no valid questions. Duplicate question texts and texts
// listed in req.Avoid are dropped. A short reply is accepted with a warning.
func (g *Generator) Generate(ctx context.Context, req Request) (*question.Bank, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return nil, err
	}

	reply, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("completing prompt: %w", err)
	}

	bank, err := ParseReply(reply, req.Avoid)
	if err != nil {
		return nil, err
	}
	if bank.Len() < req.Count {
		g.logger.Warn("model returned fewer questions than requested",
			zap.Int("requested", req.Count),
			zap.Int("received", bank.Len()),
		)
	}
	g.logger.Info("generated questions",
		zap.Int("count", bank.Len()),
		zap.String("topic", req.Topic),
	)
	return bank, nil
}

// ParseReply strips Markdown code fences from a model reply, decodes the
// YAML bank, and drops repeated questions and those listed in avoid.
//
// Postcondition: Returns a validated Bank or a non-nil error.
func ParseReply(reply string, avoid []string) (*question.Bank, error) {
	clean := stripFences(reply)
	if clean == "" {
		return nil, ErrNoContent
	}
	parsed, err := question.Parse([]byte(clean))
	if err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}

	seen := make(map[string]bool, len(avoid))
	for _, a := range avoid {
		seen[normalize(a)] = true
	}
	var kept []question.Question
	for _, q := range parsed.All() {
		key := normalize(q.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, q)
	}
	return question.NewBank(kept)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```yaml")
	s = strings.TrimPrefix(s, "```yml")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
