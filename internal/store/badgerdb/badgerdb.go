// Package badgerdb stores lecture documents in an embedded BadgerDB.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/store"
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *logging.Logger
}

// badgerLogger adapts logging.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	log *logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Repo implements store.LectureRepo. Keys are "lecture/<user>/<lecture>".
type Repo struct {
	db *badger.DB
}

var _ store.LectureRepo = (*Repo)(nil)

// Open opens the database described by cfg.
func Open(cfg Config) (*Repo, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger.Named("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.db.Close()
}

func userPrefix(userID string) []byte {
	return []byte("lecture/" + userID + "/")
}

func lectureKey(userID, lectureID string) []byte {
	return append(userPrefix(userID), lectureID...)
}

// LoadAll returns the user's lectures in creation order.
func (r *Repo) LoadAll(ctx context.Context, userID string) ([]*curriculum.Lecture, error) {
	var docs [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := userPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan lectures: %w", err)
	}

	lectures, err := store.DecodeAll(docs)
	store.SortByCreation(lectures)
	return lectures, err
}

// Upsert stores the lecture document.
func (r *Repo) Upsert(ctx context.Context, userID string, lec *curriculum.Lecture) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, _, _, err := store.EncodeLecture(lec)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lectureKey(userID, lec.ID), doc)
	})
	if err != nil {
		return fmt.Errorf("upsert lecture %s: %w", lec.ID, err)
	}
	return nil
}

// Delete removes the lecture. Missing keys are ignored.
func (r *Repo) Delete(ctx context.Context, userID, lectureID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(lectureKey(userID, lectureID))
	})
	if err != nil {
		return fmt.Errorf("delete lecture %s: %w", lectureID, err)
	}
	return nil
}
