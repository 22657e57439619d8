package docqa

import (
	"context"
	"testing"

	"github.com/siherrmann/docqa/database"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocQAWithPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	teardown, dbPort, err := helper.MustStartPostgresContainer()
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if teardown != nil {
			_ = teardown(context.Background())
		}
	})

	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	cfg := model.DefaultConfig()
	cfg.ChunkSize = 40
	cfg.ChunkOverlap = 0
	cfg.Embedder = model.ProviderConfig{Type: model.ProviderNone}
	cfg.Primary = model.ProviderConfig{Type: model.ProviderNone}
	cfg.Secondary = model.ProviderConfig{Type: model.ProviderNone}

	d, err := NewDocQA(&cfg, dbConfig)
	require.NoError(t, err, "Expected NewDocQA to not return an error")
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})

	t.Run("Uses the database handlers", func(t *testing.T) {
		require.NotNil(t, d.DB)
		assert.IsType(t, &database.IndexesDBHandler{}, d.Indexes)
		assert.IsType(t, &database.SessionsDBHandler{}, d.Sessions)
	})

	t.Run("Upload and search", func(t *testing.T) {
		ctx := context.Background()
		d.Pipeline.Embedder = keywordEmbedder("aws", "cloud", "bedrock", "service")

		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		results, selected, err := d.Search(ctx, session.ID, "What is Bedrock?")
		require.NoError(t, err)
		assert.Equal(t, session.ID, selected.ID)
		require.Len(t, results, 1)
		assert.Equal(t, "Bedrock is a Bedrock feature.", results[0].Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	})

	t.Run("Cleanup removes expired sessions with their indexes", func(t *testing.T) {
		ctx := context.Background()

		session, err := d.Upload(ctx, "aws.txt", "text/plain", []byte(awsText))
		require.NoError(t, err)

		_, err = d.DB.Instance.Exec(`UPDATE sessions SET expires_at = CURRENT_TIMESTAMP - INTERVAL '1 hour' WHERE id = $1`, session.ID)
		require.NoError(t, err)

		deleted, err := d.Cleanup(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, 1)

		_, err = d.Indexes.LoadIndex(ctx, session.IndexKey)
		assert.ErrorIs(t, err, model.ErrNotFound)

		var chunks int
		err = d.DB.Instance.QueryRow(`SELECT COUNT(*) FROM index_chunks WHERE index_id = $1`, session.IndexKey).Scan(&chunks)
		require.NoError(t, err)
		assert.Equal(t, 0, chunks)
	})
}
