package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/docqa/helper"
)

// DefaultModelName is the sentence transformer used by DefaultEmbedder.
const DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultEmbedder creates an embedder running a sentence transformer locally.
// Uses the all-MiniLM-L6-v2 model which produces 384-dimensional embeddings.
// The returned close function releases the hugot session.
func DefaultEmbedder() (EmbedFunc, func() error, error) {
	modelPath, err := helper.PrepareModel(DefaultModelName, "onnx/model.onnx")
	if err != nil {
		return nil, nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "docqa-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	// Runs share one hugot pipeline and are serialized.
	var mu sync.Mutex
	embed := func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mu.Lock()
		result, err := sentencePipeline.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}

	return embed, session.Destroy, nil
}

// WithRetry retries failed embedding calls with exponential backoff.
// Embedding the same text twice is harmless, so every error except a
// cancelled context is retried up to maxRetries times.
func WithRetry(embed EmbedFunc, maxRetries int) EmbedFunc {
	if maxRetries <= 0 {
		return embed
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		operation := func() ([]float32, error) {
			embedding, err := embed(ctx, text)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return nil, backoff.Permanent(err)
			}
			return embedding, err
		}

		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = 200 * time.Millisecond
		exponential.MaxInterval = 5 * time.Second

		policy := backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(maxRetries)), ctx)
		return backoff.RetryWithData(operation, policy)
	}
}
