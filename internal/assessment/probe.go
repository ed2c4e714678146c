// Package assessment runs the swipe-style knowledge probe and derives a
// knowledge level per skill from it.
package assessment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/lectern/internal/curriculum"
)

// State is the probe lifecycle state.
type State string

const (
	StateReady     State = "ready"
	StateAnswering State = "answering"
	StateCompleted State = "completed"
)

// ErrProbeCompleted is returned when answering a completed probe.
var ErrProbeCompleted = errors.New("probe already completed")

// Item is one statement the learner swipes on.
type Item struct {
	SkillID   string `json:"skill_id"`
	Statement string `json:"statement"`
}

// Probe walks the learner through items in order. It is safe for concurrent
// use; a retake is a new Probe.
type Probe struct {
	mu          sync.Mutex
	items       []Item
	answers     []bool
	state       State
	results     []curriculum.AssessmentResult
	completedAt time.Time
	now         func() time.Time
}

// NewProbe creates a probe over items.
func NewProbe(items []Item) (*Probe, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("probe needs at least one item: %w", curriculum.ErrInvalidInput)
	}
	for i, it := range items {
		if it.SkillID == "" || it.Statement == "" {
			return nil, fmt.Errorf("item %d is incomplete: %w", i+1, curriculum.ErrInvalidInput)
		}
	}
	return &Probe{
		items: append([]Item(nil), items...),
		state: StateReady,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// State returns the current lifecycle state.
func (p *Probe) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the next unanswered item.
func (p *Probe) Current() (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompleted {
		return Item{}, false
	}
	return p.items[len(p.answers)], true
}

// Progress returns how many items were answered out of the total.
func (p *Probe) Progress() (answered, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.answers), len(p.items)
}

// Answer records whether the learner knows the current item. Answering the
// last item computes the results and completes the probe.
func (p *Probe) Answer(knows bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateCompleted {
		return ErrProbeCompleted
	}
	p.state = StateAnswering
	p.answers = append(p.answers, knows)

	if len(p.answers) == len(p.items) {
		p.results = Score(p.items, p.answers)
		p.completedAt = p.now()
		p.state = StateCompleted
	}
	return nil
}

// Results returns the per-skill results, or nil before completion.
func (p *Probe) Results() []curriculum.AssessmentResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]curriculum.AssessmentResult(nil), p.results...)
}

// Summary returns the assessment summary of a completed probe.
func (p *Probe) Summary() (*curriculum.AssessmentSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateCompleted {
		return nil, fmt.Errorf("probe is %s: %w", p.state, curriculum.ErrInvalidState)
	}
	return &curriculum.AssessmentSummary{
		Results:     append([]curriculum.AssessmentResult(nil), p.results...),
		CompletedAt: p.completedAt,
	}, nil
}

// Score derives per-skill results from answers to items[:len(answers)].
// Skills appear in first-seen order; skills with no answers are omitted.
func Score(items []Item, answers []bool) []curriculum.AssessmentResult {
	var order []string
	byskill := make(map[string]*curriculum.AssessmentResult)
	for i, knows := range answers {
		if i >= len(items) {
			break
		}
		id := items[i].SkillID
		r, ok := byskill[id]
		if !ok {
			r = &curriculum.AssessmentResult{SkillID: id}
			byskill[id] = r
			order = append(order, id)
		}
		r.QuestionsAnswered++
		if knows {
			r.QuestionsKnown++
		}
	}

	results := make([]curriculum.AssessmentResult, 0, len(order))
	for _, id := range order {
		r := byskill[id]
		r.Score = float64(r.QuestionsKnown) / float64(r.QuestionsAnswered)
		r.Level = Band(r.Score)
		results = append(results, *r)
	}
	return results
}

// Band maps a score in [0,1] to a knowledge level: advanced from 0.67,
// intermediate from 0.34, beginner below that.
func Band(score float64) curriculum.KnowledgeLevel {
	switch {
	case score >= 0.67:
		return curriculum.LevelAdvanced
	case score >= 0.34:
		return curriculum.LevelIntermediate
	default:
		return curriculum.LevelBeginner
	}
}
