package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an uploaded document can be queried.
const DefaultSessionTTL = 24 * time.Hour

// Session records one uploaded document and where its index is stored.
type Session struct {
	ID          uuid.UUID `json:"session_id"`
	Filename    string    `json:"filename"`
	ChunksCount int       `json:"chunks_count"`
	IndexKey    string    `json:"index_key"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewSession creates the session for a freshly built index.
func NewSession(index *DocumentIndex, indexKey string, ttl time.Duration, metadata Metadata) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Session{
		ID:          index.ID,
		Filename:    index.SourceName,
		ChunksCount: len(index.Chunks),
		IndexKey:    indexKey,
		Metadata:    metadata,
		CreatedAt:   index.CreatedAt,
		ExpiresAt:   index.CreatedAt.Add(ttl),
	}
}

// Expired reports whether the session can no longer be queried at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
