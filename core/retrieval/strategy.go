package retrieval

import (
	"github.com/siherrmann/docqa/model"
)

// Strategy scores the chunks of an index against a query
type Strategy interface {
	Score(index *model.DocumentIndex, query string, queryEmbedding model.Embedding) []*model.RetrievalResult
	Method() model.RetrievalMethod
}

// VectorStrategy scores every chunk by cosine similarity to the query embedding.
// Chunks without an embedding get NoSimilarity.
type VectorStrategy struct{}

// NewVectorStrategy creates a new vector strategy
func NewVectorStrategy() *VectorStrategy {
	return &VectorStrategy{}
}

// Score returns one result per chunk, in index order
func (s *VectorStrategy) Score(index *model.DocumentIndex, query string, queryEmbedding model.Embedding) []*model.RetrievalResult {
	results := make([]*model.RetrievalResult, len(index.Chunks))
	for i, chunk := range index.Chunks {
		score := NoSimilarity
		if i < len(index.Embeddings) && index.Embeddings[i].Present() {
			score = CosineSimilarity(queryEmbedding, index.Embeddings[i])
		}
		results[i] = &model.RetrievalResult{
			ChunkIndex:      i,
			Text:            chunk.Text,
			Score:           score,
			RetrievalMethod: s.Method(),
		}
	}
	return results
}

func (s *VectorStrategy) Method() model.RetrievalMethod {
	return model.RetrievalMethodVector
}

// KeywordStrategy scores chunks by how often the full query occurs in them.
// Chunks that do not contain the query are left out.
type KeywordStrategy struct{}

// NewKeywordStrategy creates a new keyword strategy
func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

// Score returns the matching chunks, in index order
func (s *KeywordStrategy) Score(index *model.DocumentIndex, query string, queryEmbedding model.Embedding) []*model.RetrievalResult {
	var results []*model.RetrievalResult
	for i, chunk := range index.Chunks {
		count := KeywordScore(chunk.Text, query)
		if count == 0 {
			continue
		}
		results = append(results, &model.RetrievalResult{
			ChunkIndex:      i,
			Text:            chunk.Text,
			Score:           float64(count),
			RetrievalMethod: s.Method(),
		})
	}
	return results
}

func (s *KeywordStrategy) Method() model.RetrievalMethod {
	return model.RetrievalMethodKeyword
}

// SelectStrategy uses vector scoring when the query and at least one
// chunk have an embedding, and keyword scoring otherwise.
func SelectStrategy(index *model.DocumentIndex, queryEmbedding model.Embedding) Strategy {
	if queryEmbedding.Present() && index.EmbeddedCount() > 0 {
		return NewVectorStrategy()
	}
	return NewKeywordStrategy()
}
