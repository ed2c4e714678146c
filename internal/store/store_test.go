package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/curriculum/curriculumtest"
	"github.com/abhisek/lectern/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"lectures", "llm_usage_events", "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestLectureRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.Lectures()
	ctx := context.Background()

	lec := curriculumtest.NewLecture()
	curriculumtest.Materialize(lec, "ch-1", "ch-1-1", 2)
	require.NoError(t, repo.Upsert(ctx, "user-1", lec))

	got, err := repo.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	loaded := got[0]
	assert.Equal(t, "lec-1", loaded.ID)
	assert.Equal(t, curriculum.SchemaVersion, loaded.SchemaVersion)
	_, sub, err := loaded.Subchapter("ch-1", "ch-1-1")
	require.NoError(t, err)
	assert.Len(t, sub.Sections, 2)
	assert.Len(t, sub.Quiz, 1)

	other, err := repo.LoadAll(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLectureUpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	repo := s.Lectures()
	ctx := context.Background()

	lec := curriculumtest.NewLecture()
	require.NoError(t, repo.Upsert(ctx, "user-1", lec))

	require.NoError(t, lec.Mutate(func(l *curriculum.Lecture) error {
		l.Title = "Dynamic Programming, revised"
		return nil
	}))
	require.NoError(t, repo.Upsert(ctx, "user-1", lec))
	require.NoError(t, repo.Upsert(ctx, "user-1", lec))

	got, err := repo.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dynamic Programming, revised", got[0].Title)
}

func TestLectureDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	repo := s.Lectures()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "user-1", curriculumtest.NewLecture()))
	require.NoError(t, repo.Delete(ctx, "user-1", "lec-1"))
	require.NoError(t, repo.Delete(ctx, "user-1", "lec-1"))
	require.NoError(t, repo.Delete(ctx, "user-1", "missing"))

	got, err := repo.LoadAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadAllSkipsUndecodableDocuments(t *testing.T) {
	s := openTestStore(t)
	repo := s.Lectures()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "user-1", curriculumtest.NewLecture()))
	_, err := s.DB().Exec(
		`INSERT INTO lectures (user_id, lecture_id, title, topic, schema_version, document, updated_at)
		 VALUES ('user-1', 'future', '', '', 'v9.0.0', ?, ?)`,
		[]byte(`{"id":"future","schema_version":"v9.0.0"}`), time.Now().UTC(),
	)
	require.NoError(t, err)

	got, err := repo.LoadAll(ctx, "user-1")
	require.Error(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lec-1", got[0].ID)
}

func TestUsageRecordAndTotals(t *testing.T) {
	s := openTestStore(t)
	repo := s.Usage()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	events := []llm.UsageEvent{
		{Purpose: "learning-sections", Model: "m1", InputTokens: 100, OutputTokens: 50, Success: true, CostUSD: 0.5, At: base},
		{Purpose: "learning-sections", Model: "m1", InputTokens: 10, Success: false, ErrorMessage: "timeout", At: base.Add(time.Minute)},
		{Purpose: "section-exercise", Model: "m1", InputTokens: 20, OutputTokens: 5, Success: true, CostUSD: 0.25, At: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		require.NoError(t, repo.RecordUsage(ctx, ev))
	}

	recs, err := repo.Events(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, int64(i+1), rec.Sequence)
	}
	assert.Equal(t, "timeout", recs[1].ErrorMessage)
	assert.False(t, recs[1].Success)

	after, err := repo.Events(ctx, QueryOpts{After: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(2), after[0].Sequence)

	totals, err := repo.Totals(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, totals, 2)

	sections := totals[0]
	assert.Equal(t, "learning-sections", sections.Purpose)
	assert.Equal(t, 2, sections.Calls)
	assert.Equal(t, 1, sections.Failures)
	assert.Equal(t, 110, sections.InputTokens)
	assert.InDelta(t, 0.5, sections.CostUSD, 1e-9)
	assert.Equal(t, "section-exercise", totals[1].Purpose)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestDefaultDBPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LECTERN_DB", dir+"/nested/lectern.db")

	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, dir+"/nested/lectern.db", p)
	assert.DirExists(t, dir+"/nested")
}
