package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LectureRepo persists whole lecture documents per user.
type LectureRepo interface {
	// LoadAll returns every lecture owned by userID in creation order.
	// Documents that fail to decode are skipped and reported in the
	// returned error alongside the lectures that did load.
	LoadAll(ctx context.Context, userID string) ([]*curriculum.Lecture, error)

	// Upsert stores the lecture, replacing any previous version.
	Upsert(ctx context.Context, userID string, lec *curriculum.Lecture) error

	// Delete removes the lecture. Deleting a missing lecture is not an error.
	Delete(ctx context.Context, userID, lectureID string) error
}

// UsageRecord is one persisted collaborator call.
type UsageRecord struct {
	Sequence int64
	llm.UsageEvent
}

// UsageTotal aggregates usage for one purpose and model.
type UsageTotal struct {
	Purpose      string
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// UsageRepo is the collaborator usage log.
type UsageRepo interface {
	llm.UsageRecorder

	// Events returns usage records in sequence order.
	Events(ctx context.Context, opts QueryOpts) ([]UsageRecord, error)

	// Totals aggregates usage by purpose and model.
	Totals(ctx context.Context, opts QueryOpts) ([]UsageTotal, error)
}

// DecodeAll decodes persisted lecture documents, collecting decode failures
// instead of stopping at the first one.
func DecodeAll(docs [][]byte) ([]*curriculum.Lecture, error) {
	var (
		lectures []*curriculum.Lecture
		errs     []error
	)
	for i, doc := range docs {
		lec, err := curriculum.DecodeLecture(doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		lectures = append(lectures, lec)
	}
	return lectures, errors.Join(errs...)
}

// EncodeLecture returns the lecture document and its title and topic for
// indexing.
func EncodeLecture(lec *curriculum.Lecture) (doc []byte, title, topic string, err error) {
	lec.Read(func(l *curriculum.Lecture) {
		title, topic = l.Title, l.Topic
	})
	doc, err = lec.Encode()
	if err != nil {
		return nil, "", "", fmt.Errorf("encode lecture: %w", err)
	}
	return doc, title, topic, nil
}

// SortByCreation orders freshly decoded lectures by creation time. Key-value
// backends iterate in key order, so they sort after loading.
func SortByCreation(lectures []*curriculum.Lecture) {
	slices.SortStableFunc(lectures, func(a, b *curriculum.Lecture) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
