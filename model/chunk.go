package model

import (
	"encoding/json"
	"strings"
)

// Chunk is one contiguous piece of a document's extracted text.
// Its identity is its position inside the owning DocumentIndex.
type Chunk struct {
	Text string `json:"text"`
}

// Embedding is the vector representation of a text. A nil or empty
// embedding marks the vector as absent, it is never replaced by zeros.
type Embedding []float32

// Present reports whether the embedding carries a vector.
func (e Embedding) Present() bool {
	return len(e) > 0
}

// MarshalJSON writes absent embeddings as null.
func (e Embedding) MarshalJSON() ([]byte, error) {
	if !e.Present() {
		return []byte("null"), nil
	}
	return json.Marshal([]float32(e))
}

// UnmarshalJSON reads null and [] as an absent embedding.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*e = nil
		return nil
	}

	var values []float32
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) == 0 {
		*e = nil
		return nil
	}

	*e = Embedding(values)
	return nil
}
