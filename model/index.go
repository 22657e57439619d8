package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/helper"
)

// DocumentIndex holds the chunks of a single uploaded document together with
// one embedding slot per chunk. It is not modified after creation.
type DocumentIndex struct {
	ID         uuid.UUID
	SourceName string
	Chunks     []Chunk
	Embeddings []Embedding
	CreatedAt  time.Time
}

// indexRecord is the persisted JSON layout of a DocumentIndex.
type indexRecord struct {
	ID          uuid.UUID   `json:"session_id"`
	SourceName  string      `json:"filename"`
	ChunksCount int         `json:"chunks_count"`
	Texts       []string    `json:"texts"`
	Embeddings  []Embedding `json:"embeddings"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Validate checks that every chunk has exactly one embedding slot.
func (d *DocumentIndex) Validate() error {
	if len(d.Chunks) != len(d.Embeddings) {
		return helper.NewError("validate index", fmt.Errorf("%d chunks but %d embeddings", len(d.Chunks), len(d.Embeddings)))
	}
	return nil
}

// EmbeddedCount returns how many chunks carry a present embedding.
func (d *DocumentIndex) EmbeddedCount() int {
	count := 0
	for _, e := range d.Embeddings {
		if e.Present() {
			count++
		}
	}
	return count
}

// Texts returns the chunk texts in index order.
func (d *DocumentIndex) Texts() []string {
	texts := make([]string, len(d.Chunks))
	for i, c := range d.Chunks {
		texts[i] = c.Text
	}
	return texts
}

func (d DocumentIndex) MarshalJSON() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	embeddings := d.Embeddings
	if embeddings == nil {
		embeddings = []Embedding{}
	}

	return json.Marshal(indexRecord{
		ID:          d.ID,
		SourceName:  d.SourceName,
		ChunksCount: len(d.Chunks),
		Texts:       d.Texts(),
		Embeddings:  embeddings,
		CreatedAt:   d.CreatedAt,
	})
}

func (d *DocumentIndex) UnmarshalJSON(data []byte) error {
	var record indexRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	if len(record.Texts) != len(record.Embeddings) {
		return helper.NewError("decode index", fmt.Errorf("%d texts but %d embeddings", len(record.Texts), len(record.Embeddings)))
	}

	chunks := make([]Chunk, len(record.Texts))
	for i, text := range record.Texts {
		chunks[i] = Chunk{Text: text}
	}

	*d = DocumentIndex{
		ID:         record.ID,
		SourceName: record.SourceName,
		Chunks:     chunks,
		Embeddings: record.Embeddings,
		CreatedAt:  record.CreatedAt,
	}
	if d.Embeddings == nil {
		d.Embeddings = []Embedding{}
	}

	return nil
}
