package survey

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectpulse/pulsebot/pkg/models"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(BackendSQLite, filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ABC", QuestionStage, "phase 2"))
	require.NoError(t, store.Save(ctx, "ABC", QuestionProblems, "none so far"))

	record, err := store.Load(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, models.SurveyRecord{
		"stage":    "phase 2",
		"problems": "none so far",
	}, record)
}

func TestSQLStoreUpsertOverwrites(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ABC", QuestionStage, "phase 1"))
	require.NoError(t, store.Save(ctx, "ABC", QuestionStage, "phase 2"))

	record, err := store.Load(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, models.SurveyRecord{"stage": "phase 2"}, record)
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, q, rebind(q, false))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", rebind(q, true))
}
