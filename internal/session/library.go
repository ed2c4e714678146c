package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/abhisek/lectern/internal/concepts"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/logging"
)

// Library holds one learner's lectures.
type Library struct {
	userID string
	svc    Services
	log    *logging.Logger

	mu       sync.RWMutex
	lectures map[string]*Context
	order    []string
}

// NewLibrary creates an empty library for userID.
func NewLibrary(userID string, svc Services) *Library {
	return &Library{
		userID:   userID,
		svc:      svc,
		log:      logging.OrNop(svc.Log).Named("library").With("user_id", userID),
		lectures: make(map[string]*Context),
	}
}

// Load reads the learner's lectures from the repo, restores materialization
// state and reapplies the unlock policy. Lectures that fail to decode are
// skipped; the returned error wraps curriculum.ErrPersistenceFailed.
func (lib *Library) Load(ctx context.Context) error {
	if lib.svc.Repo == nil {
		return nil
	}
	lectures, loadErr := lib.svc.Repo.LoadAll(ctx, lib.userID)

	for _, lec := range lectures {
		restored := lib.svc.Materializer.Restore(lec)
		if _, err := lib.svc.Progress.Init(lec); err != nil {
			lib.log.Warn("skipping lecture with invalid unlock policy", "lecture_id", lec.ID, "error", err.Error())
			continue
		}
		lib.add(newContext(lib.userID, lec, lib.svc))
		lib.log.Debug("lecture loaded", "lecture_id", lec.ID, "materialized", restored)
	}

	if loadErr != nil {
		lib.log.Warn("some lectures could not be loaded", "error", loadErr.Error())
		return curriculum.Fail(curriculum.ErrPersistenceFailed, lib.userID, loadErr)
	}
	return nil
}

func (lib *Library) add(c *Context) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if _, ok := lib.lectures[c.ID()]; !ok {
		lib.order = append(lib.order, c.ID())
	}
	lib.lectures[c.ID()] = c
}

// Plan generates a new lecture and adds it to the library. A persistence
// failure is returned together with the usable Context.
func (lib *Library) Plan(ctx context.Context, in concepts.PlanInput) (*Context, error) {
	in.UserID = lib.userID
	lec, err := lib.svc.Planner.Plan(ctx, in)
	if err != nil {
		return nil, err
	}
	if _, err := lib.svc.Progress.Init(lec); err != nil {
		return nil, curriculum.Fail(curriculum.ErrPlanGenerationFailed, lec.ID, err)
	}

	c := newContext(lib.userID, lec, lib.svc)
	lib.add(c)
	return c, c.Save(ctx)
}

// Open returns a lecture by ID. A unique ID prefix is accepted.
func (lib *Library) Open(lectureID string) (*Context, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if c, ok := lib.lectures[lectureID]; ok {
		return c, nil
	}

	var match *Context
	for _, id := range lib.order {
		if lectureID != "" && strings.HasPrefix(id, lectureID) {
			if match != nil {
				return nil, fmt.Errorf("lecture prefix %q is ambiguous: %w", lectureID, curriculum.ErrInvalidInput)
			}
			match = lib.lectures[id]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("lecture %s: %w", lectureID, curriculum.ErrNotFound)
	}
	return match, nil
}

// Lectures returns the library's lectures in load and creation order.
func (lib *Library) Lectures() []*Context {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	out := make([]*Context, 0, len(lib.order))
	for _, id := range lib.order {
		out = append(out, lib.lectures[id])
	}
	return out
}

// Delete removes a lecture from memory and from the repo.
func (lib *Library) Delete(ctx context.Context, lectureID string) error {
	c, err := lib.Open(lectureID)
	if err != nil {
		return err
	}
	id := c.ID()

	lib.mu.Lock()
	delete(lib.lectures, id)
	for i, o := range lib.order {
		if o == id {
			lib.order = append(lib.order[:i], lib.order[i+1:]...)
			break
		}
	}
	lib.mu.Unlock()

	if lib.svc.Repo == nil {
		return nil
	}
	if err := lib.svc.Repo.Delete(ctx, lib.userID, id); err != nil {
		return curriculum.Fail(curriculum.ErrPersistenceFailed, id, err)
	}
	lib.log.Info("lecture deleted", "lecture_id", id)
	return nil
}
