package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/siherrmann/docqa/model"
)

// Embedder turns a query into an embedding, an absent embedding
// makes the engine fall back to keyword scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) model.Embedding
}

// Engine ranks the chunks of a single document index against a query
type Engine struct {
	embedder Embedder
	log      *slog.Logger
}

// NewEngine creates a new retrieval engine. embedder may be nil.
func NewEngine(embedder Embedder) *Engine {
	return &Engine{
		embedder: embedder,
		log:      slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used to report the chosen strategy
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e.log = logger
}

// Rank embeds the query and returns the top chunks of index. See RankWithEmbedding.
func (e *Engine) Rank(ctx context.Context, index *model.DocumentIndex, query string, config *model.QueryConfig) []*model.RetrievalResult {
	if index == nil || len(index.Chunks) == 0 {
		return []*model.RetrievalResult{}
	}

	var queryEmbedding model.Embedding
	if e.embedder != nil && index.EmbeddedCount() > 0 {
		queryEmbedding = e.embedder.Embed(ctx, query)
	}

	return e.RankWithEmbedding(index, query, queryEmbedding, config)
}

// RankWithEmbedding ranks the chunks of index for a query whose embedding is
// already known. Results are ordered by descending score, ties by ascending
// chunk index, and cut to config.TopK (3 if unset).
// Vector ranking returns min(TopK, chunks) results including non positive
// scores, keyword ranking only returns chunks containing the query.
func (e *Engine) RankWithEmbedding(index *model.DocumentIndex, query string, queryEmbedding model.Embedding, config *model.QueryConfig) []*model.RetrievalResult {
	if index == nil || len(index.Chunks) == 0 {
		return []*model.RetrievalResult{}
	}

	topK := model.DefaultQueryConfig().TopK
	if config != nil && config.TopK > 0 {
		topK = config.TopK
	}

	strategy := SelectStrategy(index, queryEmbedding)
	results := TopK(strategy.Score(index, query, queryEmbedding), topK)

	e.log.Info(
		"Ranked chunks",
		slog.String("index_id", index.ID.String()),
		slog.String("method", string(strategy.Method())),
		slog.Int("chunks", len(index.Chunks)),
		slog.Int("results", len(results)),
	)

	return results
}

// TopK sorts results by descending score and ascending chunk index
// and returns at most k of them.
func TopK(results []*model.RetrievalResult, k int) []*model.RetrievalResult {
	sorted := make([]*model.RetrievalResult, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})

	if k >= 0 && k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}
