package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

// DefaultMaxTokens limits the length of a generated answer.
const DefaultMaxTokens = 1000

// GenerateFunc completes a prompt with at most maxTokens tokens.
type GenerateFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Generator is a named GenerateFunc. The name is reported with the answer.
type Generator struct {
	Name     string
	Generate GenerateFunc
}

// Generation is a generated answer and the generator that produced it.
type Generation struct {
	Text  string
	Model string
}

// Composer turns ranked chunks and a question into an answer, trying the
// primary generator first and the secondary one only if that fails.
type Composer struct {
	Primary   *Generator
	Secondary *Generator
	MaxTokens int
	log       *slog.Logger
}

func NewComposer(primary *Generator, secondary *Generator, maxTokens int) *Composer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Composer{
		Primary:   primary,
		Secondary: secondary,
		MaxTokens: maxTokens,
		log:       slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used to report generator failures
func (c *Composer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c.log = logger
}

// Generate completes prompt. An error or a blank answer from the primary
// generator falls through to the secondary one. If neither yields an
// answer the error wraps model.ErrGenerationFailure.
func (c *Composer) Generate(ctx context.Context, prompt string) (*Generation, error) {
	var errs []error
	for _, generator := range []*Generator{c.Primary, c.Secondary} {
		if generator == nil || generator.Generate == nil {
			continue
		}

		text, err := generator.Generate(ctx, prompt, c.MaxTokens)
		if err != nil {
			c.log.Info("Generator failed", slog.String("generator", generator.Name), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		text = cleanAnswer(text)
		if text == "" {
			c.log.Info("Generator returned no answer", slog.String("generator", generator.Name))
			continue
		}

		return &Generation{Text: text, Model: generator.Name}, nil
	}

	return nil, helper.NewError("generate", errors.Join(append([]error{model.ErrGenerationFailure}, errs...)...))
}

// Answer builds the grounding prompt from chunks and question and generates an answer.
func (c *Composer) Answer(ctx context.Context, chunks []string, question string) (*Generation, error) {
	return c.Generate(ctx, BuildPrompt(chunks, question))
}
