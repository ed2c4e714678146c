// Package inflight tracks per-key generation requests so that a key has at
// most one outstanding collaborator call and late responses from superseded
// requests are discarded.
package inflight

import "sync"

// State is the tracked state of a key.
type State int

const (
	Idle State = iota
	Pending
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// Token identifies one issued request. Tokens increase monotonically across
// the tracker, so a superseded request never matches a newer entry.
type Token uint64

type entry struct {
	state State
	token Token
}

// Tracker is a concurrency-safe map of key to {pending, done}. Each instance
// is owned by one component; there is no package-level state.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entry
	next    Token
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]entry)}
}

// Begin claims key. When the key is idle it becomes pending and a fresh token
// is returned with prior state Idle. Otherwise the zero token and the current
// state are returned and the caller must not issue a call.
func (t *Tracker) Begin(key string) (Token, State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		return 0, e.state
	}
	t.next++
	t.entries[key] = entry{state: Pending, token: t.next}
	return t.next, Idle
}

// Complete applies a successful result and marks the key done, but only if
// tok is still the current token for a pending key. apply runs under the
// tracker lock; if it fails the key is released so the request can be retried.
// The returned bool reports whether the result was current.
func (t *Tracker) Complete(key string, tok Token, apply func() error) (bool, error) {
	return t.finish(key, tok, apply, true)
}

// Release is Complete for results that do not make the key done; the key
// returns to idle after apply. Enrichment uses it, since the lecture itself
// holds the cached value.
func (t *Tracker) Release(key string, tok Token, apply func() error) (bool, error) {
	return t.finish(key, tok, apply, false)
}

// Fail clears a pending key if tok is current. It reports whether it did.
func (t *Tracker) Fail(key string, tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || e.state != Pending || e.token != tok {
		return false
	}
	delete(t.entries, key)
	return true
}

// Invalidate forgets key whatever its state. A request still in flight for
// it will find its token superseded and its result discarded.
func (t *Tracker) Invalidate(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// MarkDone records key as done without a request, e.g. for content restored
// from storage. It does not override a pending request.
func (t *Tracker) MarkDone(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok && e.state == Pending {
		return false
	}
	t.next++
	t.entries[key] = entry{state: Done, token: t.next}
	return true
}

// State returns the current state of key.
func (t *Tracker) State(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[key].state
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) finish(key string, tok Token, apply func() error, done bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || e.state != Pending || e.token != tok {
		return false, nil
	}

	if apply != nil {
		if err := apply(); err != nil {
			delete(t.entries, key)
			return true, err
		}
	}

	if done {
		t.entries[key] = entry{state: Done, token: tok}
	} else {
		delete(t.entries, key)
	}
	return true, nil
}
