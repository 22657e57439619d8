package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	loadSql "github.com/siherrmann/docqa/sql"
)

// IndexesDBHandlerFunctions defines the interface for document index database operations.
type IndexesDBHandlerFunctions interface {
	StoreIndex(ctx context.Context, index *model.DocumentIndex) (string, error)
	LoadIndex(ctx context.Context, key string) (*model.DocumentIndex, error)
	DeleteIndex(ctx context.Context, key string) error
}

// IndexesDBHandler stores document indexes as one row per index
// and one row per chunk with a nullable vector column.
type IndexesDBHandler struct {
	db *helper.Database
}

// NewIndexesDBHandler creates a new indexes database handler.
// It loads the index SQL functions and creates the tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewIndexesDBHandler(db *helper.Database, force bool) (*IndexesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	indexesDbHandler := &IndexesDBHandler{
		db: db,
	}

	err := loadSql.LoadIndexesSql(indexesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load indexes sql", err)
	}

	err = indexesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized IndexesDBHandler")

	return indexesDbHandler, nil
}

// CreateTable creates the 'document_indexes' and 'index_chunks' tables.
// Existing tables are kept.
func (h *IndexesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_indexes();`)
	if err != nil {
		return helper.NewError("init indexes", err)
	}

	h.db.Logger.Info("Checked/created tables document_indexes and index_chunks")

	return nil
}

// StoreIndex writes the index and all of its chunks in one transaction
// and returns the key to load it with.
func (h *IndexesDBHandler) StoreIndex(ctx context.Context, index *model.DocumentIndex) (string, error) {
	if index == nil || index.ID == uuid.Nil {
		return "", helper.NewError("store index", fmt.Errorf("index without id"))
	}
	if err := index.Validate(); err != nil {
		return "", err
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return "", helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	createdAt := index.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := tx.QueryRowContext(
		ctx,
		`SELECT * FROM insert_document_index($1, $2, $3, $4)`,
		index.ID,
		index.SourceName,
		len(index.Chunks),
		createdAt,
	)

	var id uuid.UUID
	var sourceName string
	var chunksCount int
	err = row.Scan(&id, &sourceName, &chunksCount, &createdAt)
	if err != nil {
		return "", helper.NewError("scan", err)
	}

	for i, chunk := range index.Chunks {
		var embedding *pgvector.Vector
		if index.Embeddings[i].Present() {
			vector := pgvector.NewVector(index.Embeddings[i])
			embedding = &vector
		}

		_, err = tx.ExecContext(
			ctx,
			`SELECT insert_index_chunk($1, $2, $3, $4)`,
			index.ID,
			i,
			chunk.Text,
			embedding,
		)
		if err != nil {
			return "", helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return "", helper.NewError("commit", err)
	}

	h.db.Logger.Info(
		"Stored document index",
		"id", id.String(),
		"chunks", chunksCount,
		"embedded", index.EmbeddedCount(),
	)

	return id.String(), nil
}

// LoadIndex reads the index stored under key with its chunks in order.
// An unknown key returns an error wrapping model.ErrNotFound.
func (h *IndexesDBHandler) LoadIndex(ctx context.Context, key string) (*model.DocumentIndex, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, model.NewNotFoundError("index %q", key)
	}

	index := &model.DocumentIndex{}
	var chunksCount int
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_document_index($1)`, id)
	err = row.Scan(&index.ID, &index.SourceName, &chunksCount, &index.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("index %s", key)
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_index_chunks($1)`, id)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	index.Chunks = make([]model.Chunk, 0, chunksCount)
	index.Embeddings = make([]model.Embedding, 0, chunksCount)
	for rows.Next() {
		var position int
		var content string
		var embedding *pgvector.Vector
		err := rows.Scan(&position, &content, &embedding)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if position != len(index.Chunks) {
			return nil, helper.NewError("load index", fmt.Errorf("chunk %d missing", len(index.Chunks)))
		}

		index.Chunks = append(index.Chunks, model.Chunk{Text: content})
		if embedding != nil {
			index.Embeddings = append(index.Embeddings, model.Embedding(embedding.Slice()))
		} else {
			index.Embeddings = append(index.Embeddings, nil)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows", err)
	}

	if len(index.Chunks) != chunksCount {
		return nil, helper.NewError("load index", fmt.Errorf("expected %d chunks, found %d", chunksCount, len(index.Chunks)))
	}

	return index, nil
}

// DeleteIndex removes the index stored under key together with its chunks.
// An unknown key returns an error wrapping model.ErrNotFound.
func (h *IndexesDBHandler) DeleteIndex(ctx context.Context, key string) error {
	id, err := uuid.Parse(key)
	if err != nil {
		return model.NewNotFoundError("index %q", key)
	}

	var deleted int
	err = h.db.Instance.QueryRowContext(ctx, `SELECT delete_document_index($1)`, id).Scan(&deleted)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if deleted == 0 {
		return model.NewNotFoundError("index %s", key)
	}
	return nil
}
