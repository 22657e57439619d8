package retrieval

import (
	"math"
	"strings"
)

// NoSimilarity is the score of a chunk that cannot be compared to the query:
// its embedding is absent, a vector has zero norm or the dimensions differ.
const NoSimilarity = -1.0

// CosineSimilarity calculates the cosine similarity between two embedding vectors.
// The result lies in [-1, 1]. NoSimilarity is returned for empty vectors,
// vectors of different length and zero norm vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return NoSimilarity
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return NoSimilarity
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, similarity))
}

// KeywordScore counts the non overlapping, case insensitive occurrences
// of the whole query in text. An empty query scores zero.
func KeywordScore(text string, query string) int {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), query)
}
