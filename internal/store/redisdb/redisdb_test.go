package redisdb

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lectern/internal/curriculum/curriculumtest"
)

// openTestRepo connects to LECTERN_TEST_REDIS_ADDR and skips otherwise.
func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	addr := os.Getenv("LECTERN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LECTERN_TEST_REDIS_ADDR not set")
	}
	r, err := Open(context.Background(), Config{Addr: addr, KeyPrefix: "lectern-test-" + uuid.NewString()})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestUserKey(t *testing.T) {
	r := New(nil, "")
	assert.Equal(t, "lectern:lectures:user-1", r.userKey("user-1"))
}

func TestRepo_UpsertLoadDelete(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	t.Cleanup(func() { r.client.Del(context.Background(), r.userKey("user-1")) })

	lec := curriculumtest.NewLecture()
	require.NoError(t, r.Upsert(ctx, "user-1", lec))
	require.NoError(t, r.Upsert(ctx, "user-1", lec))

	got, err := r.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lec-1", got[0].ID)

	require.NoError(t, r.Delete(ctx, "user-1", "lec-1"))
	require.NoError(t, r.Delete(ctx, "user-1", "lec-1"))

	got, err = r.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
