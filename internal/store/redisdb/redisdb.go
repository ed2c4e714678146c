// Package redisdb stores lecture documents in Redis. Each user has a hash of
// lecture documents keyed by lecture ID.
package redisdb

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/store"
)

// Config holds connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Repo implements store.LectureRepo.
type Repo struct {
	client *redis.Client
	prefix string
}

var _ store.LectureRepo = (*Repo)(nil)

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Repo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return New(client, cfg.KeyPrefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Repo {
	if prefix == "" {
		prefix = "lectern"
	}
	return &Repo{client: client, prefix: prefix}
}

// Close closes the client.
func (r *Repo) Close() error {
	return r.client.Close()
}

func (r *Repo) userKey(userID string) string {
	return r.prefix + ":lectures:" + userID
}

// LoadAll returns the user's lectures in creation order.
func (r *Repo) LoadAll(ctx context.Context, userID string) ([]*curriculum.Lecture, error) {
	values, err := r.client.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load lectures: %w", err)
	}

	docs := make([][]byte, 0, len(values))
	for _, v := range values {
		docs = append(docs, []byte(v))
	}
	lectures, err := store.DecodeAll(docs)
	store.SortByCreation(lectures)
	return lectures, err
}

// Upsert stores the lecture document.
func (r *Repo) Upsert(ctx context.Context, userID string, lec *curriculum.Lecture) error {
	doc, _, _, err := store.EncodeLecture(lec)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.userKey(userID), lec.ID, doc).Err(); err != nil {
		return fmt.Errorf("upsert lecture %s: %w", lec.ID, err)
	}
	return nil
}

// Delete removes the lecture. Missing fields are ignored.
func (r *Repo) Delete(ctx context.Context, userID, lectureID string) error {
	if err := r.client.HDel(ctx, r.userKey(userID), lectureID).Err(); err != nil {
		return fmt.Errorf("delete lecture %s: %w", lectureID, err)
	}
	return nil
}
