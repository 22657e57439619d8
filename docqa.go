package docqa

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/blobstore"
	"github.com/siherrmann/docqa/core/generation"
	"github.com/siherrmann/docqa/core/pipeline"
	"github.com/siherrmann/docqa/core/retrieval"
	"github.com/siherrmann/docqa/database"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	loadSql "github.com/siherrmann/docqa/sql"
)

// IndexStore persists document indexes under a key.
type IndexStore interface {
	StoreIndex(ctx context.Context, index *model.DocumentIndex) (string, error)
	LoadIndex(ctx context.Context, key string) (*model.DocumentIndex, error)
	DeleteIndex(ctx context.Context, key string) error
}

// SessionStore persists the sessions pointing at stored indexes.
type SessionStore interface {
	InsertSession(ctx context.Context, session *model.Session) error
	SelectSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	// DeleteExpiredSessions returns the index keys of the deleted sessions.
	DeleteExpiredSessions(ctx context.Context) ([]string, error)
}

// DocQA answers questions about uploaded documents
type DocQA struct {
	DB       *helper.Database // Only set when backed by Postgres
	Indexes  IndexStore
	Sessions SessionStore
	Pipeline *pipeline.Pipeline
	Engine   *retrieval.Engine
	Composer *generation.Composer
	config   model.Config
	closers  []func() error
	// Logging
	log *slog.Logger
}

// New creates a DocQA from its parts. A nil cfg uses model.DefaultConfig,
// a nil logger discards everything. A nil pipe chunks with the configured
// sizes without embeddings, a nil engine ranks with pipe and a nil composer
// has no generators, so every answer is marked as failed.
func New(
	indexes IndexStore,
	sessions SessionStore,
	pipe *pipeline.Pipeline,
	engine *retrieval.Engine,
	composer *generation.Composer,
	cfg *model.Config,
	logger *slog.Logger,
) *DocQA {
	config := model.DefaultConfig()
	if cfg != nil {
		config = *cfg
		config.ApplyDefaults()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if pipe == nil {
		pipe = pipeline.NewPipeline(pipeline.SentenceChunker(config.ChunkSize, config.ChunkOverlap), nil)
	}
	if engine == nil {
		engine = retrieval.NewEngine(pipe)
	}
	if composer == nil {
		composer = generation.NewComposer(nil, nil, config.MaxTokens)
	}

	pipe.SetLogger(logger)
	engine.SetLogger(logger)
	composer.SetLogger(logger)

	return &DocQA{
		Indexes:  indexes,
		Sessions: sessions,
		Pipeline: pipe,
		Engine:   engine,
		Composer: composer,
		config:   config,
		log:      logger,
	}
}

// NewDocQA creates a DocQA with the providers selected in cfg.
// Indexes and sessions are stored in Postgres if dbConfig is set and as
// blobs below cfg.StorageURL otherwise.
func NewDocQA(cfg *model.Config, dbConfig *helper.DatabaseConfiguration) (*DocQA, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stderr, opts))

	config := model.DefaultConfig()
	if cfg != nil {
		config = *cfg
		config.ApplyDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate config", err)
	}

	providers := newProviders(config.Embedder.Region)

	embed, closeEmbedder, err := providers.embedFunc(config.Embedder)
	if err != nil {
		return nil, helper.NewError("create embedder", err)
	}

	primary, err := providers.generator(config.Primary)
	if err != nil {
		return nil, helper.NewError("create primary generator", err)
	}
	secondary, err := providers.generator(config.Secondary)
	if err != nil {
		return nil, helper.NewError("create secondary generator", err)
	}

	pipe := pipeline.NewPipeline(pipeline.SentenceChunker(config.ChunkSize, config.ChunkOverlap), embed)
	composer := generation.NewComposer(primary, secondary, config.MaxTokens)

	var db *helper.Database
	var indexes IndexStore
	var sessions SessionStore
	if dbConfig != nil {
		db = helper.NewDatabase("docqa", dbConfig, logger)
		err := loadSql.Init(db.Instance)
		if err != nil {
			return nil, helper.NewError("initialize database extensions", err)
		}

		// force=false to not reload if functions already exist
		indexesDbHandler, err := database.NewIndexesDBHandler(db, false)
		if err != nil {
			return nil, helper.NewError("create indexes handler", err)
		}
		sessionsDbHandler, err := database.NewSessionsDBHandler(db, false)
		if err != nil {
			return nil, helper.NewError("create sessions handler", err)
		}
		indexes, sessions = indexesDbHandler, sessionsDbHandler
	} else {
		indexes = blobstore.NewIndexStore(config.StorageURL)
		sessions = blobstore.NewSessionStore(config.StorageURL)
	}

	d := New(indexes, sessions, pipe, retrieval.NewEngine(pipe), composer, &config, logger)
	d.DB = db
	if closeEmbedder != nil {
		d.closers = append(d.closers, closeEmbedder)
	}

	logger.Info(
		"Initialized docqa",
		slog.String("embedder", config.Embedder.Type),
		slog.String("primary", config.Primary.Type),
		slog.String("secondary", config.Secondary.Type),
		slog.Bool("postgres", db != nil),
	)

	return d, nil
}

// Close releases the embedder and closes the database connection
func (d *DocQA) Close() error {
	var errs []error
	for _, closer := range d.closers {
		errs = append(errs, closer())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

// Config returns the configuration in use
func (d *DocQA) Config() model.Config {
	return d.config
}

// Upload validates a document, builds its index, stores it and opens a
// session for asking questions about it.
// contentType may be empty, it is then derived from the extension.
func (d *DocQA) Upload(ctx context.Context, filename string, contentType string, data []byte) (*model.Session, error) {
	if contentType == "" {
		contentType = pipeline.ContentTypeFor(filename)
	}

	err := pipeline.ValidateFile(filename, contentType, int64(len(data)), d.config.MaxFileSize)
	if err != nil {
		return nil, err
	}

	text := pipeline.ExtractText(filename, data)
	index, err := d.Pipeline.Process(ctx, filename, text)
	if err != nil {
		return nil, err
	}

	key, err := d.Indexes.StoreIndex(ctx, index)
	if err != nil {
		return nil, helper.NewError("store index", err)
	}

	metadata := model.Metadata{
		"content_type":   pipeline.ContentTypeFor(filename),
		"size":           len(data),
		"embedded_count": index.EmbeddedCount(),
	}
	session := model.NewSession(index, key, d.config.SessionTTL, metadata)
	err = d.Sessions.InsertSession(ctx, session)
	if err != nil {
		if deleteErr := d.Indexes.DeleteIndex(ctx, key); deleteErr != nil {
			d.log.Error("Could not delete index", slog.String("index_key", key), slog.String("error", deleteErr.Error()))
		}
		return nil, helper.NewError("insert session", err)
	}

	d.log.Info(
		"Uploaded document",
		slog.String("session_id", session.ID.String()),
		slog.String("filename", filename),
		slog.Int("chunks", session.ChunksCount),
	)

	return session, nil
}

// UploadFile uploads a local .pdf or .txt file.
func (d *DocQA) UploadFile(ctx context.Context, path string) (*model.Session, error) {
	filename, contentType, data, err := pipeline.ReadDocumentFile(path)
	if err != nil {
		return nil, err
	}
	return d.Upload(ctx, filename, contentType, data)
}

// Search returns the chunks of the session's document that are relevant to question.
func (d *DocQA) Search(ctx context.Context, sessionID uuid.UUID, question string) ([]*model.RetrievalResult, *model.Session, error) {
	question, err := d.validateQuestion(question)
	if err != nil {
		return nil, nil, err
	}

	session, err := d.Sessions.SelectSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	index, err := d.Indexes.LoadIndex(ctx, session.IndexKey)
	if err != nil {
		return nil, nil, err
	}

	results := d.Engine.Rank(ctx, index, question, d.config.QueryConfig())
	return model.Relevant(results), session, nil
}

// Ask answers question from the document of the session. uuid.Nil asks a
// general question without a document.
// Unknown sessions and invalid questions are returned as errors. When no
// answer can be generated the returned answer is marked as failed instead.
func (d *DocQA) Ask(ctx context.Context, sessionID uuid.UUID, question string) (*model.Answer, error) {
	if sessionID == uuid.Nil {
		question, err := d.validateQuestion(question)
		if err != nil {
			return nil, err
		}

		d.log.Info("Answering general question")
		generated, err := d.Composer.Generate(ctx, question)
		return d.answer(generated, err, &model.Answer{})
	}

	results, session, err := d.Search(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}

	answer := &model.Answer{
		UsedDocument: true,
		Filename:     session.Filename,
	}
	if len(results) == 0 {
		d.log.Info("No relevant chunks found", slog.String("session_id", sessionID.String()))
		answer.Text = model.NoGroundingMessage
		return answer, nil
	}

	generated, err := d.Composer.Answer(ctx, model.ResultTexts(results), strings.TrimSpace(question))
	answer.Sources = results
	return d.answer(generated, err, answer)
}

// answer fills answer from a generation result, turning a generation
// failure into a failed answer.
func (d *DocQA) answer(generated *generation.Generation, err error, answer *model.Answer) (*model.Answer, error) {
	if errors.Is(err, model.ErrGenerationFailure) {
		d.log.Warn("Could not generate an answer", slog.String("error", err.Error()))
		answer.Text = model.NoAnswerMessage
		answer.Failed = true
		return answer, nil
	} else if err != nil {
		return nil, err
	}

	answer.Text = generated.Text
	answer.Model = generated.Model
	return answer, nil
}

// DeleteSession ends a session and deletes the index of its document.
// Unknown and expired sessions return an error wrapping model.ErrNotFound.
func (d *DocQA) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := d.Sessions.SelectSession(ctx, sessionID)
	if err != nil {
		return err
	}

	err = d.Sessions.DeleteSession(ctx, sessionID)
	if err != nil {
		return helper.NewError("delete session", err)
	}
	err = d.deleteIndexes(ctx, []string{session.IndexKey})
	if err != nil {
		return err
	}

	d.log.Info("Deleted session", slog.String("session_id", sessionID.String()))
	return nil
}

// Cleanup deletes all expired sessions together with their indexes and
// returns how many sessions were removed.
func (d *DocQA) Cleanup(ctx context.Context) (int, error) {
	indexKeys, err := d.Sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, helper.NewError("delete expired sessions", err)
	}

	err = d.deleteIndexes(ctx, indexKeys)
	d.log.Info("Deleted expired sessions", slog.Int("count", len(indexKeys)))
	return len(indexKeys), err
}

// deleteIndexes deletes every index in indexKeys. Indexes that are already
// gone are skipped.
func (d *DocQA) deleteIndexes(ctx context.Context, indexKeys []string) error {
	var errs []error
	for _, key := range indexKeys {
		err := d.Indexes.DeleteIndex(ctx, key)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			d.log.Error("Could not delete index", slog.String("index_key", key), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return helper.NewError("delete indexes", errors.Join(errs...))
	}
	return nil
}

func (d *DocQA) validateQuestion(question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", model.NewValidationError("question is required")
	}
	if length := utf8.RuneCountInString(question); length > d.config.MaxQuestionLength {
		return "", model.NewValidationError("question is too long (%d characters, limit %d)", length, d.config.MaxQuestionLength)
	}
	return question, nil
}
