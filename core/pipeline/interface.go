package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

// ChunkFunc is a function that splits extracted document text into chunks
type ChunkFunc func(text string) ([]model.Chunk, error)

// EmbedFunc is a function that generates an embedding for text.
// Errors are reported, the Pipeline decides how to degrade.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Pipeline combines chunking and embedding functions
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc // Optional, without it every embedding is absent
	log      *slog.Logger
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
		log:      slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used to report embedding failures and progress
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p.log = logger
}

// Split runs the chunker on text
func (p *Pipeline) Split(text string) ([]model.Chunk, error) {
	chunks, err := p.Chunker(text)
	if err != nil {
		return nil, helper.NewError("split text", err)
	}
	return chunks, nil
}

// normalizeText removes NUL characters and surrounding whitespace
func normalizeText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
}

// Embed returns the embedding of text or an absent embedding.
// It never fails: empty input is not sent to the embedder and any
// embedder error is logged and turned into an absent embedding.
func (p *Pipeline) Embed(ctx context.Context, text string) model.Embedding {
	text = normalizeText(text)
	if text == "" || p.Embedder == nil {
		return nil
	}

	embedding, err := p.Embedder(ctx, text)
	if err != nil {
		p.log.Warn("Embedding unavailable", slog.String("error", err.Error()), slog.Int("text_length", len(text)))
		return nil
	}
	if len(embedding) == 0 {
		p.log.Warn("Embedder returned an empty vector", slog.Int("text_length", len(text)))
		return nil
	}

	return model.Embedding(embedding)
}

// BuildIndex embeds every chunk in order and returns a fresh index.
// A chunk whose embedding fails keeps an absent slot at its position.
func (p *Pipeline) BuildIndex(ctx context.Context, sourceName string, chunks []model.Chunk) *model.DocumentIndex {
	embeddings := make([]model.Embedding, len(chunks))
	for i, chunk := range chunks {
		embeddings[i] = p.Embed(ctx, chunk.Text)
		if (i+1)%5 == 0 {
			p.log.Info("Embedding progress", slog.String("source", sourceName), slog.Int("done", i+1), slog.Int("total", len(chunks)))
		}
	}

	index := &model.DocumentIndex{
		ID:         uuid.New(),
		SourceName: sourceName,
		Chunks:     chunks,
		Embeddings: embeddings,
		CreatedAt:  time.Now().UTC(),
	}

	p.log.Info(
		"Built document index",
		slog.String("index_id", index.ID.String()),
		slog.String("source", sourceName),
		slog.Int("chunks", len(chunks)),
		slog.Int("embedded", index.EmbeddedCount()),
	)

	return index
}

// Process splits text and builds its index. A text without any chunk
// is reported as model.ErrDocumentProcessing.
func (p *Pipeline) Process(ctx context.Context, sourceName string, text string) (*model.DocumentIndex, error) {
	chunks, err := p.Split(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, helper.NewError("process "+sourceName, model.ErrDocumentProcessing)
	}

	return p.BuildIndex(ctx, sourceName, chunks), nil
}
