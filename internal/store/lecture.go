package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lectern/internal/curriculum"
)

// lectureRepo implements LectureRepo with one row per lecture document.
type lectureRepo struct {
	db *sql.DB
}

func (r *lectureRepo) LoadAll(ctx context.Context, userID string) ([]*curriculum.Lecture, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("document").
		From(entsql.Table(lecturesTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Asc("id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lectures: %w", err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan lecture: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lectures: %w", err)
	}
	return DecodeAll(docs)
}

func (r *lectureRepo) Upsert(ctx context.Context, userID string, lec *curriculum.Lecture) error {
	doc, title, topic, err := EncodeLecture(lec)
	if err != nil {
		return err
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(lecturesTable).
		Columns("user_id", "lecture_id", "title", "topic", "schema_version", "document", "updated_at").
		Values(userID, lec.ID, title, topic, curriculum.SchemaVersion, doc, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("user_id", "lecture_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert lecture %s: %w", lec.ID, err)
	}
	return nil
}

func (r *lectureRepo) Delete(ctx context.Context, userID, lectureID string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(lecturesTable).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("lecture_id", lectureID),
		)).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete lecture %s: %w", lectureID, err)
	}
	return nil
}
