// Package materialize generates the learning sections of a subchapter at most
// once, however many times navigation asks for them.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/inflight"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/metrics"
)

// Outcome reports what EnsureMaterialized did.
type Outcome string

const (
	OutcomeMaterialized        Outcome = "materialized"
	OutcomeAlreadyMaterialized Outcome = "already_materialized"
	OutcomeInFlight            Outcome = "in_flight"
	OutcomeStale               Outcome = "stale"
	OutcomeFailed              Outcome = "failed"
)

// Materializer owns the in-flight tracker for subchapter content.
type Materializer struct {
	provider llm.Provider
	cfg      Config
	tracker  *inflight.Tracker
	log      *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a Materializer. m may be nil.
func New(provider llm.Provider, cfg Config, log *logging.Logger, m *metrics.Metrics) *Materializer {
	if cfg.PrefetchConcurrency <= 0 {
		cfg.PrefetchConcurrency = 1
	}
	return &Materializer{
		provider: provider,
		cfg:      cfg,
		tracker:  inflight.New(),
		log:      logging.OrNop(log).Named("materialize"),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// sectionInput is the request context gathered from the lecture.
type sectionInput struct {
	LectureTitle    string
	Goal            string
	ChapterTitle    string
	SubchapterID    string
	SubchapterTitle string
	Objective       string
	ConceptOutline  []string
	TaughtElsewhere []string
	KnowledgeLevels []curriculum.AssessmentResult
}

// EnsureMaterialized makes sure the subchapter has learning sections. Only the
// first of any number of concurrent callers issues a collaborator call; the
// rest get OutcomeInFlight.
func (m *Materializer) EnsureMaterialized(ctx context.Context, lec *curriculum.Lecture, chapterID, subchapterID string) (Outcome, error) {
	key := lec.Key(chapterID, subchapterID).String()

	tok, prior := m.tracker.Begin(key)
	switch prior {
	case inflight.Done:
		return m.outcome(OutcomeAlreadyMaterialized), nil
	case inflight.Pending:
		m.log.Debug("materialization already in flight", "key", key)
		return m.outcome(OutcomeInFlight), nil
	}

	in, stored, err := m.prepare(lec, chapterID, subchapterID)
	if err != nil {
		m.tracker.Fail(key, tok)
		return m.outcome(OutcomeFailed), curriculum.Fail(curriculum.ErrMaterializationFailed, key, err)
	}
	if stored {
		m.tracker.Complete(key, tok, nil)
		return m.outcome(OutcomeAlreadyMaterialized), nil
	}

	res, err := m.generate(ctx, in)
	if err != nil {
		m.tracker.Fail(key, tok)
		m.log.Warn("materialization failed", "key", key, "error", err.Error())
		return m.outcome(OutcomeFailed), curriculum.Fail(curriculum.ErrMaterializationFailed, key, err)
	}

	current, err := m.tracker.Complete(key, tok, func() error {
		return lec.Mutate(func(l *curriculum.Lecture) error {
			_, sub, err := l.Subchapter(chapterID, subchapterID)
			if err != nil {
				return err
			}
			sub.Sections = res.sections
			sub.Quiz = res.quiz
			sub.Personalization = res.summary
			sub.MaterializedAt = m.now()
			return nil
		})
	})
	if !current {
		m.log.Info("discarded superseded sections", "key", key)
		return m.outcome(OutcomeStale), nil
	}
	if err != nil {
		return m.outcome(OutcomeFailed), curriculum.Fail(curriculum.ErrMaterializationFailed, key, err)
	}

	m.log.Info("materialized subchapter",
		"key", key,
		"sections", len(res.sections),
		"quiz", len(res.quiz),
		"enhanced", res.enhanced,
	)
	return m.outcome(OutcomeMaterialized), nil
}

// Invalidate supersedes any request for the subchapter and forgets that it
// was materialized. A late response for the old request is discarded.
func (m *Materializer) Invalidate(key curriculum.SubchapterKey) {
	m.tracker.Invalidate(key.String())
}

// State returns the tracker state for a subchapter.
func (m *Materializer) State(key curriculum.SubchapterKey) inflight.State {
	return m.tracker.State(key.String())
}

// Restore marks every subchapter of lec whose stored sections validate as
// done, so a reloaded lecture does not regenerate content.
func (m *Materializer) Restore(lec *curriculum.Lecture) int {
	var keys []string
	lec.Read(func(l *curriculum.Lecture) {
		for _, ch := range l.Chapters {
			for _, sub := range ch.Subchapters {
				if sub.Materialized() && len(curriculum.ValidateSections(sub.Sections)) == 0 {
					keys = append(keys, l.Key(ch.ID, sub.ID).String())
				}
			}
		}
	})
	n := 0
	for _, k := range keys {
		if m.tracker.MarkDone(k) {
			n++
		}
	}
	return n
}

// PrefetchResult is the outcome for one subchapter of a prefetch.
type PrefetchResult struct {
	SubchapterID string
	Outcome      Outcome
	Err          error
}

// PrefetchChapter materializes every subchapter of a chapter with bounded
// concurrency. Results are in subchapter order; the returned error joins the
// individual failures.
func (m *Materializer) PrefetchChapter(ctx context.Context, lec *curriculum.Lecture, chapterID string) ([]PrefetchResult, error) {
	var subIDs []string
	var lookupErr error
	lec.Read(func(l *curriculum.Lecture) {
		ch, _ := l.Chapter(chapterID)
		if ch == nil {
			lookupErr = fmt.Errorf("chapter %s: %w", chapterID, curriculum.ErrNotFound)
			return
		}
		for _, sub := range ch.Subchapters {
			subIDs = append(subIDs, sub.ID)
		}
	})
	if lookupErr != nil {
		return nil, curriculum.Fail(curriculum.ErrMaterializationFailed, chapterID, lookupErr)
	}

	results := make([]PrefetchResult, len(subIDs))
	var g errgroup.Group
	g.SetLimit(m.cfg.PrefetchConcurrency)
	for i, id := range subIDs {
		g.Go(func() error {
			out, err := m.EnsureMaterialized(ctx, lec, chapterID, id)
			results[i] = PrefetchResult{SubchapterID: id, Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (m *Materializer) outcome(o Outcome) Outcome {
	m.metrics.Outcome("materialize", string(o))
	return o
}

// prepare gathers the request context. stored reports that the subchapter
// already holds valid sections.
func (m *Materializer) prepare(lec *curriculum.Lecture, chapterID, subchapterID string) (sectionInput, bool, error) {
	var (
		in     sectionInput
		stored bool
		err    error
	)
	lec.Read(func(l *curriculum.Lecture) {
		var ch *curriculum.Chapter
		var sub *curriculum.Subchapter
		ch, sub, err = l.Subchapter(chapterID, subchapterID)
		if err != nil {
			return
		}
		if sub.Materialized() && len(curriculum.ValidateSections(sub.Sections)) == 0 {
			stored = true
			return
		}

		in = sectionInput{
			LectureTitle:    l.Title,
			Goal:            l.Goal,
			ChapterTitle:    ch.Title,
			SubchapterID:    sub.ID,
			SubchapterTitle: sub.Title,
			Objective:       sub.Objective,
			ConceptOutline:  append([]string(nil), sub.ConceptOutline...),
			TaughtElsewhere: taughtElsewhere(l, sub),
		}
		if l.Assessment != nil {
			in.KnowledgeLevels = append([]curriculum.AssessmentResult(nil), l.Assessment.Results...)
		}
	})
	return in, stored, err
}

// taughtElsewhere lists every concept owned by another subchapter of the
// lecture, in lecture order.
func taughtElsewhere(l *curriculum.Lecture, target *curriculum.Subchapter) []string {
	own := make(map[string]bool, len(target.ConceptOutline))
	for _, c := range target.ConceptOutline {
		own[curriculum.ConceptKey(c)] = true
	}
	var out []string
	for _, ch := range l.Chapters {
		for _, sub := range ch.Subchapters {
			if sub == target {
				continue
			}
			for _, c := range sub.ConceptOutline {
				if !own[curriculum.ConceptKey(c)] {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

type sectionsOutput struct {
	Sections               []sectionOutput `json:"sections"`
	Quiz                   []quizOutput    `json:"quiz"`
	PersonalizationSummary string          `json:"personalization_summary"`
}

type sectionOutput struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Format            *string                   `json:"format"`
	HasExerciseButton *bool                     `json:"has_exercise_button"`
	Personalized      *bool                     `json:"personalized"`
	Content           curriculum.SectionContent `json:"content"`
}

type quizOutput struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation"`
}

type sectionsResult struct {
	sections []*curriculum.LearningSection
	quiz     []*curriculum.Exercise
	summary  *curriculum.PersonalizationSummary
	enhanced bool
}

// generate issues the sections call and, if the shape check fails, one
// corrective call.
func (m *Materializer) generate(ctx context.Context, in sectionInput) (*sectionsResult, error) {
	req := llm.NewRequest(sectionsSystemPrompt, buildSectionsUserMessage(in), SectionsSchema, m.cfg.Sections)
	resp, err := m.provider.Generate(llm.WithPurpose(ctx, llm.PurposeSections), req)
	if err != nil {
		return nil, err
	}
	var out sectionsOutput
	if err := llm.Decode(resp, &out); err != nil {
		return nil, err
	}

	res, issues := convert(in, out)
	if len(issues) == 0 {
		return res, nil
	}

	m.log.Info("requesting section enhancement", "subchapter", in.SubchapterID, "issues", len(issues))
	req = llm.NewRequest(enhanceSystemPrompt, buildEnhanceUserMessage(in, resp.Content, issues), EnhanceSchema, m.cfg.Enhance)
	resp, err = m.provider.Generate(llm.WithPurpose(ctx, llm.PurposeEnhance), req)
	if err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}
	out = sectionsOutput{}
	if err := llm.Decode(resp, &out); err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}

	res, issues = convert(in, out)
	if len(issues) > 0 {
		return nil, fmt.Errorf("sections still malformed after enhancement: %s", joinIssues(issues))
	}
	res.enhanced = true
	return res, nil
}

// convert maps the collaborator output to sections and runs the shape check.
func convert(in sectionInput, out sectionsOutput) (*sectionsResult, []curriculum.ShapeIssue) {
	var issues []curriculum.ShapeIssue
	personalizing := len(in.KnowledgeLevels) > 0

	res := &sectionsResult{}
	for i, so := range out.Sections {
		sec := &curriculum.LearningSection{
			ID:      fmt.Sprintf("%s-s%d", in.SubchapterID, i+1),
			Title:   strings.TrimSpace(so.Title),
			Content: so.Content,
		}
		if so.Format == nil {
			issues = append(issues, curriculum.ShapeIssue{SectionID: sec.ID, Field: "format", Problem: "is missing"})
		} else {
			sec.Format = curriculum.SectionFormat(strings.ToLower(strings.TrimSpace(*so.Format)))
		}
		if so.HasExerciseButton == nil {
			issues = append(issues, curriculum.ShapeIssue{SectionID: sec.ID, Field: "has_exercise_button", Problem: "is missing"})
		} else {
			sec.HasExerciseButton = *so.HasExerciseButton
		}
		sec.Personalization.WasPersonalized = personalizing && so.Personalized != nil && *so.Personalized
		if so.Format != nil {
			issues = append(issues, curriculum.ValidateSection(sec)...)
		}
		res.sections = append(res.sections, sec)
	}
	if len(res.sections) == 0 {
		issues = append(issues, curriculum.ValidateSections(nil)...)
	}

	for i, qo := range out.Quiz {
		id := fmt.Sprintf("%s-q%d", in.SubchapterID, i+1)
		if qo.CorrectOption < 0 || qo.CorrectOption >= len(qo.Options) {
			issues = append(issues, curriculum.ShapeIssue{SectionID: id, Field: "correct_option", Problem: "is out of range"})
			continue
		}
		correct := qo.CorrectOption
		res.quiz = append(res.quiz, &curriculum.Exercise{
			ID:            id,
			Kind:          curriculum.KindQuiz,
			Prompt:        strings.TrimSpace(qo.Prompt),
			Options:       qo.Options,
			CorrectOption: &correct,
			Explanation:   qo.Explanation,
		})
	}

	if personalizing {
		res.summary = &curriculum.PersonalizationSummary{
			Summary: strings.TrimSpace(out.PersonalizationSummary),
		}
		for _, r := range in.KnowledgeLevels {
			res.summary.Levels = append(res.summary.Levels, fmt.Sprintf("%s:%s", r.SkillID, r.Level))
		}
	}
	return res, issues
}

func joinIssues(issues []curriculum.ShapeIssue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}
