package badgerdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/curriculum/curriculumtest"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestRepo_UpsertLoadDelete(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	older := curriculumtest.NewLecture()
	older.ID = "z-lecture"
	newer := curriculumtest.NewLecture()
	newer.ID = "a-lecture"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	require.NoError(t, r.Upsert(ctx, "user-1", newer))
	require.NoError(t, r.Upsert(ctx, "user-1", older))
	require.NoError(t, r.Upsert(ctx, "user-2", curriculumtest.NewLecture()))

	got, err := r.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z-lecture", got[0].ID, "lectures load in creation order")
	assert.Equal(t, curriculum.SchemaVersion, got[0].SchemaVersion)

	require.NoError(t, r.Delete(ctx, "user-1", "z-lecture"))
	require.NoError(t, r.Delete(ctx, "user-1", "z-lecture"))

	got, err = r.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a-lecture", got[0].ID)

	others, err := r.LoadAll(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestRepo_UpsertReplaces(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	lec := curriculumtest.NewLecture()
	require.NoError(t, r.Upsert(ctx, "user-1", lec))
	curriculumtest.Materialize(lec, "ch-2", "ch-2-1", 3)
	require.NoError(t, r.Upsert(ctx, "user-1", lec))

	got, err := r.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, sub, err := got[0].Subchapter("ch-2", "ch-2-1")
	require.NoError(t, err)
	assert.Len(t, sub.Sections, 3)
}

func TestRepo_CanceledContext(t *testing.T) {
	r := openTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Upsert(ctx, "user-1", curriculumtest.NewLecture()), context.Canceled)
}
