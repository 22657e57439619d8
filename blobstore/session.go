package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

const sessionFolder = "sessions"

// SessionStore keeps sessions as JSON blobs under <baseURL>/sessions/<id>.json.
// Expiry is checked when a session is read.
type SessionStore struct {
	fs      afs.Service
	baseURL string
	now     func() time.Time
}

func NewSessionStore(baseURL string) *SessionStore {
	return &SessionStore{
		fs:      afs.New(),
		baseURL: baseURL,
		now:     time.Now,
	}
}

func (s *SessionStore) URL(id uuid.UUID) string {
	return url.Join(s.baseURL, sessionFolder+"/"+id.String()+".json")
}

// InsertSession writes the session, replacing any session with the same id.
func (s *SessionStore) InsertSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return helper.NewError("marshal session", err)
	}
	if err := s.fs.Upload(ctx, s.URL(session.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return helper.NewError("upload session", err)
	}
	return nil
}

// SelectSession reads a session. Unknown and expired sessions return an
// error wrapping model.ErrNotFound. Expired blobs stay until
// DeleteExpiredSessions removes them.
func (s *SessionStore) SelectSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	session, err := s.read(ctx, s.URL(id))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewNotFoundError("session %s", id)
	}

	if session.Expired(s.now()) {
		return nil, model.NewNotFoundError("session %s expired", id)
	}
	return session, nil
}

// DeleteSession deletes a session by ID
func (s *SessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	URL := s.URL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return helper.NewError("check session", err)
	}
	if !exists {
		return model.NewNotFoundError("session %s", id)
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return helper.NewError("delete session", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and returns the
// index keys they pointed to.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) ([]string, error) {
	indexKeys := []string{}
	folder := url.Join(s.baseURL, sessionFolder)
	exists, err := s.fs.Exists(ctx, folder)
	if err != nil {
		return nil, helper.NewError("check sessions", err)
	}
	if !exists {
		return indexKeys, nil
	}

	objects, err := s.fs.List(ctx, folder)
	if err != nil {
		return nil, helper.NewError("list sessions", err)
	}

	now := s.now()
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		session, err := s.read(ctx, object.URL())
		if err != nil {
			return indexKeys, err
		}
		if session == nil || !session.Expired(now) {
			continue
		}
		if err := s.fs.Delete(ctx, object.URL()); err != nil {
			return indexKeys, helper.NewError("delete session", err)
		}
		indexKeys = append(indexKeys, session.IndexKey)
	}
	return indexKeys, nil
}

// read returns nil without error when there is no blob at URL.
func (s *SessionStore) read(ctx context.Context, URL string) (*model.Session, error) {
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, helper.NewError("check session", err)
	}
	if !exists {
		return nil, nil
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, helper.NewError("download session", err)
	}

	session := &model.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, helper.NewError("decode session", err)
	}
	return session, nil
}
