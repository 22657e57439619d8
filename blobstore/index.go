package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

const indexFolder = "vector_stores"

// IndexStore keeps every document index as a JSON blob under
// <baseURL>/vector_stores/<id>.json on any afs backed storage.
type IndexStore struct {
	fs      afs.Service
	baseURL string
}

// NewIndexStore creates an index store rooted at baseURL
// (file://, mem:// or s3:// when the afsc s3 scheme is registered).
func NewIndexStore(baseURL string) *IndexStore {
	return &IndexStore{
		fs:      afs.New(),
		baseURL: baseURL,
	}
}

// URL returns the location of the blob holding the index with key.
func (s *IndexStore) URL(key string) string {
	return url.Join(s.baseURL, indexFolder+"/"+key+".json")
}

// StoreIndex uploads the index and returns its key.
func (s *IndexStore) StoreIndex(ctx context.Context, index *model.DocumentIndex) (string, error) {
	if index == nil || index.ID == uuid.Nil {
		return "", helper.NewError("store index", fmt.Errorf("index without id"))
	}

	data, err := json.Marshal(index)
	if err != nil {
		return "", helper.NewError("marshal index", err)
	}

	key := index.ID.String()
	if err := s.fs.Upload(ctx, s.URL(key), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", helper.NewError("upload index", err)
	}
	return key, nil
}

// LoadIndex downloads and decodes the index stored under key.
func (s *IndexStore) LoadIndex(ctx context.Context, key string) (*model.DocumentIndex, error) {
	URL := s.URL(key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, helper.NewError("check index", err)
	}
	if !exists {
		return nil, model.NewNotFoundError("index %s", key)
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, helper.NewError("download index", err)
	}

	index := &model.DocumentIndex{}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, helper.NewError("decode index", err)
	}
	return index, nil
}

// DeleteIndex removes the blob of the index stored under key.
func (s *IndexStore) DeleteIndex(ctx context.Context, key string) error {
	URL := s.URL(key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return helper.NewError("check index", err)
	}
	if !exists {
		return model.NewNotFoundError("index %s", key)
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return helper.NewError("delete index", err)
	}
	return nil
}
