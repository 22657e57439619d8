package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	loadSql "github.com/siherrmann/docqa/sql"
)

// SessionsDBHandlerFunctions defines the interface for Sessions database operations.
type SessionsDBHandlerFunctions interface {
	InsertSession(ctx context.Context, session *model.Session) error
	SelectSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) ([]string, error)
}

// SessionsDBHandler handles session-related database operations
type SessionsDBHandler struct {
	db *helper.Database
}

// NewSessionsDBHandler creates a new sessions database handler.
// It loads the session SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSessionsDBHandler(db *helper.Database, force bool) (*SessionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sessionsDbHandler := &SessionsDBHandler{
		db: db,
	}

	err := loadSql.LoadSessionsSql(sessionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load sessions sql", err)
	}

	err = sessionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SessionsDBHandler")

	return sessionsDbHandler, nil
}

// CreateTable creates the 'sessions' table in the database.
// If the table already exists, it does not create it again.
func (h *SessionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_sessions();`)
	if err != nil {
		return helper.NewError("init sessions", err)
	}

	h.db.Logger.Info("Checked/created table sessions")

	return nil
}

// InsertSession inserts a new session
func (h *SessionsDBHandler) InsertSession(ctx context.Context, session *model.Session) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_session($1, $2, $3, $4, $5, $6, $7)`,
		session.ID,
		session.Filename,
		session.ChunksCount,
		session.IndexKey,
		session.Metadata,
		session.CreatedAt,
		session.ExpiresAt,
	)

	err := scanSession(row, session)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSession retrieves a session that has not expired yet.
// Unknown and expired sessions return an error wrapping model.ErrNotFound.
func (h *SessionsDBHandler) SelectSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_session($1)`,
		id,
	)

	session := &model.Session{}
	err := scanSession(row, session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("session %s", id)
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return session, nil
}

// DeleteSession deletes a session by ID
func (h *SessionsDBHandler) DeleteSession(ctx context.Context, id uuid.UUID) error {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_session($1)`, id).Scan(&deleted)
	if err != nil {
		return helper.NewError("exec", err)
	}
	if deleted == 0 {
		return model.NewNotFoundError("session %s", id)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and returns the
// index keys they pointed to.
func (h *SessionsDBHandler) DeleteExpiredSessions(ctx context.Context) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM delete_expired_sessions()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	indexKeys := []string{}
	for rows.Next() {
		var indexKey string
		if err := rows.Scan(&indexKey); err != nil {
			return nil, helper.NewError("scan", err)
		}
		indexKeys = append(indexKeys, indexKey)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows", err)
	}

	h.db.Logger.Info("Deleted expired sessions", "count", len(indexKeys))

	return indexKeys, nil
}

func scanSession(row *sql.Row, session *model.Session) error {
	return row.Scan(
		&session.ID,
		&session.Filename,
		&session.ChunksCount,
		&session.IndexKey,
		&session.Metadata,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
}
