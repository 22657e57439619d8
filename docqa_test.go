package docqa

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/blobstore"
	"github.com/siherrmann/docqa/core/generation"
	"github.com/siherrmann/docqa/core/pipeline"
	"github.com/siherrmann/docqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const awsText = "AWS is a cloud platform. It offers many services. Bedrock is a Bedrock feature."

// keywordEmbedder embeds text as counts of a few fixed keywords.
func keywordEmbedder(keywords ...string) pipeline.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		text = strings.ToLower(text)
		embedding := make([]float32, len(keywords))
		for i, keyword := range keywords {
			embedding[i] = float32(strings.Count(text, keyword))
		}
		return embedding, nil
	}
}

// echoGenerator answers with the prompt it was given.
type echoGenerator struct {
	prompts []string
	err     error
}

func (e *echoGenerator) generator(name string) *generation.Generator {
	return &generation.Generator{
		Name: name,
		Generate: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			e.prompts = append(e.prompts, prompt)
			if e.err != nil {
				return "", e.err
			}
			return "answer to: " + prompt, nil
		},
	}
}

func initDocQA(t *testing.T, embed pipeline.EmbedFunc, generator *echoGenerator) *DocQA {
	baseURL := "mem://localhost/docqa-" + uuid.NewString()
	cfg := model.DefaultConfig()
	cfg.ChunkSize = 40
	cfg.ChunkOverlap = 0

	pipe := pipeline.NewPipeline(pipeline.SentenceChunker(cfg.ChunkSize, cfg.ChunkOverlap), embed)
	composer := generation.NewComposer(generator.generator("primary"), nil, cfg.MaxTokens)

	return New(
		blobstore.NewIndexStore(baseURL),
		blobstore.NewSessionStore(baseURL),
		pipe,
		nil,
		composer,
		&cfg,
		nil,
	)
}

func TestNew(t *testing.T) {
	t.Run("Create with defaults", func(t *testing.T) {
		pipe := pipeline.NewPipeline(pipeline.SentenceChunker(800, 0), nil)
		d := New(nil, nil, pipe, nil, generation.NewComposer(nil, nil, 0), nil, nil)

		require.NotNil(t, d)
		assert.NotNil(t, d.Engine, "Expected an engine to be created")
		assert.Equal(t, model.DefaultConfig(), d.Config())
		assert.NoError(t, d.Close())
	})

	t.Run("Create without pipeline and composer", func(t *testing.T) {
		baseURL := "mem://localhost/docqa-" + uuid.NewString()
		cfg := model.DefaultConfig()
		cfg.ChunkSize = 40
		cfg.ChunkOverlap = 0

		d := New(blobstore.NewIndexStore(baseURL), blobstore.NewSessionStore(baseURL), nil, nil, nil, &cfg, nil)
		require.NotNil(t, d.Pipeline)
		require.NotNil(t, d.Composer)

		session, err := d.Upload(context.Background(), "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)
		assert.Equal(t, 3, session.ChunksCount)

		answer, err := d.Ask(context.Background(), session.ID, "Bedrock")
		require.NoError(t, err)
		assert.True(t, answer.Failed, "Expected a failed answer without generators")
	})
}

func TestNewDocQA(t *testing.T) {
	t.Run("Blob stores without providers", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.StorageURL = "mem://localhost/docqa-" + uuid.NewString()
		cfg.Embedder = model.ProviderConfig{Type: model.ProviderNone}
		cfg.Primary = model.ProviderConfig{Type: model.ProviderNone}
		cfg.Secondary = model.ProviderConfig{Type: model.ProviderNone}

		d, err := NewDocQA(&cfg, nil)
		require.NoError(t, err)
		defer d.Close()

		assert.Nil(t, d.DB)
		assert.IsType(t, &blobstore.IndexStore{}, d.Indexes)
		assert.IsType(t, &blobstore.SessionStore{}, d.Sessions)

		session, err := d.Upload(context.Background(), "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(context.Background(), session.ID, "Bedrock")
		require.NoError(t, err)
		assert.True(t, answer.Failed, "Expected a failed answer without generators")
		assert.Equal(t, model.NoAnswerMessage, answer.Text)
		require.NotEmpty(t, answer.Sources)
		assert.Equal(t, model.RetrievalMethodKeyword, answer.Sources[0].RetrievalMethod)
	})

	t.Run("OpenAI and Anthropic providers are wired", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.StorageURL = "mem://localhost/docqa-" + uuid.NewString()
		cfg.Embedder = model.ProviderConfig{Type: model.ProviderOpenAI, APIKey: "key", MaxRetries: 2}
		cfg.Primary = model.ProviderConfig{Type: model.ProviderAnthropic, APIKey: "key"}
		cfg.Secondary = model.ProviderConfig{Type: model.ProviderOpenAI, Model: "gpt-4o", APIKey: "key"}

		d, err := NewDocQA(&cfg, nil)
		require.NoError(t, err)
		defer d.Close()

		assert.NotNil(t, d.Pipeline.Embedder)
		assert.Equal(t, "anthropic:"+generation.DefaultAnthropicModel, d.Composer.Primary.Name)
		assert.Equal(t, "openai:gpt-4o", d.Composer.Secondary.Name)
	})

	t.Run("Unknown provider is an error", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.Embedder = model.ProviderConfig{Type: "carrier-pigeon"}

		_, err := NewDocQA(&cfg, nil)
		assert.Error(t, err)
	})

	t.Run("Overlap not smaller than chunk size is a validation error", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.ChunkSize = 50
		cfg.ChunkOverlap = 60

		_, err := NewDocQA(&cfg, nil)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Anthropic cannot embed", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.Embedder = model.ProviderConfig{Type: model.ProviderAnthropic}

		_, err := NewDocQA(&cfg, nil)
		assert.Error(t, err)
	})
}

// failingSessions rejects every new session.
type failingSessions struct {
	*blobstore.SessionStore
}

func (f failingSessions) InsertSession(ctx context.Context, session *model.Session) error {
	return errors.New("session store unavailable")
}

// recordingIndexes remembers the keys of stored indexes.
type recordingIndexes struct {
	*blobstore.IndexStore
	keys []string
}

func (r *recordingIndexes) StoreIndex(ctx context.Context, index *model.DocumentIndex) (string, error) {
	key, err := r.IndexStore.StoreIndex(ctx, index)
	r.keys = append(r.keys, key)
	return key, err
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("Failed session insert removes the stored index", func(t *testing.T) {
		baseURL := "mem://localhost/docqa-" + uuid.NewString()
		indexes := &recordingIndexes{IndexStore: blobstore.NewIndexStore(baseURL)}
		sessions := failingSessions{SessionStore: blobstore.NewSessionStore(baseURL)}
		d := New(indexes, sessions, nil, nil, nil, nil, nil)

		_, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session store unavailable")

		require.Len(t, indexes.keys, 1)
		_, err = indexes.LoadIndex(ctx, indexes.keys[0])
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Upload text document", func(t *testing.T) {
		d := initDocQA(t, keywordEmbedder("aws", "cloud", "bedrock", "service"), &echoGenerator{})

		session, err := d.Upload(ctx, "aws.txt", "", []byte(awsText))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, session.ID)
		assert.Equal(t, "aws.txt", session.Filename)
		assert.GreaterOrEqual(t, session.ChunksCount, 2)
		assert.Equal(t, model.DefaultSessionTTL, session.ExpiresAt.Sub(session.CreatedAt))
		assert.Equal(t, pipeline.ContentTypeText, session.Metadata.String("content_type"))

		index, err := d.Indexes.LoadIndex(ctx, session.IndexKey)
		require.NoError(t, err)
		assert.Len(t, index.Chunks, session.ChunksCount)
		assert.Equal(t, session.ChunksCount, index.EmbeddedCount())
	})

	t.Run("Unsupported file type is a validation error", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Upload(ctx, "aws.docx", "", []byte(awsText))
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Oversized file is a validation error", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})
		d.config.MaxFileSize = 10

		_, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Document without sentences cannot be processed", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Upload(ctx, "empty.txt", "text/plain", []byte(" ... !!! "))
		assert.ErrorIs(t, err, model.ErrDocumentProcessing)
	})

	t.Run("Unreadable PDF cannot be processed", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Upload(ctx, "broken.pdf", "application/pdf", []byte("%PDF-1.4 this is not a pdf"))
		assert.ErrorIs(t, err, model.ErrDocumentProcessing)
	})

	t.Run("Upload local file", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte(awsText), 0o600))

		session, err := d.UploadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", session.Filename)
	})

	t.Run("Missing local file is an error", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.UploadFile(ctx, filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	})
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("Answers from the most similar chunk", func(t *testing.T) {
		generator := &echoGenerator{}
		d := initDocQA(t, keywordEmbedder("aws", "cloud", "bedrock", "service"), generator)
		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(ctx, session.ID, "What is Bedrock?")
		require.NoError(t, err)
		assert.True(t, answer.UsedDocument)
		assert.False(t, answer.Failed)
		assert.Equal(t, "aws.txt", answer.Filename)
		assert.Equal(t, "primary", answer.Model)
		require.NotEmpty(t, answer.Sources)
		assert.Equal(t, model.RetrievalMethodVector, answer.Sources[0].RetrievalMethod)
		assert.Contains(t, answer.Sources[0].Text, "Bedrock is a Bedrock feature")
		for _, source := range answer.Sources {
			assert.Greater(t, source.Score, 0.0)
		}

		require.Len(t, generator.prompts, 1)
		assert.Contains(t, generator.prompts[0], "Bedrock is a Bedrock feature")
		assert.Contains(t, generator.prompts[0], "Question: What is Bedrock?")
		assert.NotContains(t, generator.prompts[0], "It offers many services")
	})

	t.Run("Falls back to keywords without embeddings", func(t *testing.T) {
		generator := &echoGenerator{}
		d := initDocQA(t, nil, generator)
		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(ctx, session.ID, "Bedrock")
		require.NoError(t, err)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, model.RetrievalMethodKeyword, answer.Sources[0].RetrievalMethod)
		assert.Equal(t, 2.0, answer.Sources[0].Score)
	})

	t.Run("Falls back to keywords when embedding fails", func(t *testing.T) {
		calls := 0
		embed := func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return nil, errors.New("embedding service down")
		}
		d := initDocQA(t, embed, &echoGenerator{})
		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(ctx, session.ID, "cloud platform")
		require.NoError(t, err)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, model.RetrievalMethodKeyword, answer.Sources[0].RetrievalMethod)
		assert.Equal(t, session.ChunksCount, calls, "Expected no query embedding for an index without embeddings")
	})

	t.Run("No relevant chunk skips generation", func(t *testing.T) {
		generator := &echoGenerator{}
		d := initDocQA(t, nil, generator)
		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(ctx, session.ID, "Kubernetes")
		require.NoError(t, err)
		assert.Equal(t, model.NoGroundingMessage, answer.Text)
		assert.True(t, answer.UsedDocument)
		assert.False(t, answer.Failed)
		assert.Empty(t, generator.prompts)
	})

	t.Run("Generation failure is a failed answer", func(t *testing.T) {
		generator := &echoGenerator{err: errors.New("model unavailable")}
		d := initDocQA(t, nil, generator)
		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		answer, err := d.Ask(ctx, session.ID, "Bedrock")
		require.NoError(t, err)
		assert.True(t, answer.Failed)
		assert.Equal(t, model.NoAnswerMessage, answer.Text)
		assert.Equal(t, "aws.txt", answer.Filename)
	})

	t.Run("General question without a session", func(t *testing.T) {
		generator := &echoGenerator{}
		d := initDocQA(t, nil, generator)

		answer, err := d.Ask(ctx, uuid.Nil, "  What is AWS?  ")
		require.NoError(t, err)
		assert.False(t, answer.UsedDocument)
		assert.Equal(t, "answer to: What is AWS?", answer.Text)
		assert.Equal(t, []string{"What is AWS?"}, generator.prompts)
	})

	t.Run("Unknown session is not found", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Ask(ctx, uuid.New(), "Bedrock")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Empty question is a validation error", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Ask(ctx, uuid.Nil, "   ")
		assert.ErrorIs(t, err, model.ErrValidation)
		_, err = d.Ask(ctx, uuid.New(), "")
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Too long question is a validation error", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		_, err := d.Ask(ctx, uuid.Nil, strings.Repeat("ä", d.Config().MaxQuestionLength+1))
		assert.ErrorIs(t, err, model.ErrValidation)

		_, err = d.Ask(ctx, uuid.Nil, strings.Repeat("ä", d.Config().MaxQuestionLength))
		assert.NoError(t, err)
	})
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes only expired sessions", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		live, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		expired := &model.Session{
			ID:        uuid.New(),
			Filename:  "old.txt",
			IndexKey:  uuid.NewString(),
			CreatedAt: time.Now().Add(-48 * time.Hour),
			ExpiresAt: time.Now().Add(-24 * time.Hour),
		}
		require.NoError(t, d.Sessions.InsertSession(ctx, expired))

		deleted, err := d.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = d.Sessions.SelectSession(ctx, live.ID)
		assert.NoError(t, err, "Expected live session to survive cleanup")
		_, err = d.Indexes.LoadIndex(ctx, live.IndexKey)
		assert.NoError(t, err, "Expected index of live session to survive cleanup")
	})

	t.Run("Deletes the index of an expired session", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		session.ExpiresAt = time.Now().Add(-time.Hour)
		require.NoError(t, d.Sessions.InsertSession(ctx, session))

		deleted, err := d.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = d.Indexes.LoadIndex(ctx, session.IndexKey)
		assert.ErrorIs(t, err, model.ErrNotFound)

		deleted, err = d.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes session and index", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		require.NoError(t, d.DeleteSession(ctx, session.ID))

		_, err = d.Sessions.SelectSession(ctx, session.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = d.Indexes.LoadIndex(ctx, session.IndexKey)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Unknown session is not found", func(t *testing.T) {
		d := initDocQA(t, nil, &echoGenerator{})

		assert.ErrorIs(t, d.DeleteSession(ctx, uuid.New()), model.ErrNotFound)
	})
}
