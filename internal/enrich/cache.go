// Package enrich layers cheap, on-demand content onto materialized
// subchapters: practice exercises, gap material, explanations of highlighted
// text and follow-up answers. Every enrichment is stored on the lecture, which
// doubles as the cache, and each key has at most one outstanding call.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/inflight"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/metrics"
)

// ErrEnrichmentInFlight is returned to a duplicate request while the first
// one is still waiting on the collaborator.
var ErrEnrichmentInFlight = fmt.Errorf("request already in flight: %w", curriculum.ErrEnrichmentFailed)

var errSuperseded = errors.New("result superseded")

// Cache owns the in-flight markers for enrichment keys.
type Cache struct {
	provider llm.Provider
	cfg      Config
	tracker  *inflight.Tracker
	log      *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a Cache. m may be nil.
func New(provider llm.Provider, cfg Config, log *logging.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		provider: provider,
		cfg:      cfg,
		tracker:  inflight.New(),
		log:      logging.OrNop(log).Named("enrich"),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// op describes one enrichment run. lookup reports a stored value; call asks
// the collaborator; store writes the result into the lecture.
type op[T any] struct {
	name   string
	kind   error
	key    string
	lookup func() (T, bool, error)
	call   func(ctx context.Context) (T, error)
	store  func(T) error
}

func run[T any](ctx context.Context, c *Cache, o op[T]) (T, error) {
	var zero T
	component := "enrich_" + o.name

	tok, prior := c.tracker.Begin(o.key)
	if prior != inflight.Idle {
		c.metrics.Outcome(component, "in_flight")
		return zero, curriculum.Fail(o.kind, o.key, ErrEnrichmentInFlight)
	}

	if o.lookup != nil {
		v, ok, err := o.lookup()
		if err != nil {
			c.tracker.Fail(o.key, tok)
			c.metrics.Outcome(component, "failed")
			return zero, curriculum.Fail(o.kind, o.key, err)
		}
		if ok {
			c.tracker.Release(o.key, tok, nil)
			c.metrics.Outcome(component, "cached")
			return v, nil
		}
	}

	v, err := o.call(ctx)
	if err != nil {
		c.tracker.Fail(o.key, tok)
		c.metrics.Outcome(component, "failed")
		c.log.Warn("enrichment failed", "op", o.name, "key", o.key, "error", err.Error())
		return zero, curriculum.Fail(o.kind, o.key, err)
	}

	current, err := c.tracker.Release(o.key, tok, func() error { return o.store(v) })
	if !current {
		err = errSuperseded
	}
	if err != nil {
		c.metrics.Outcome(component, "failed")
		return zero, curriculum.Fail(o.kind, o.key, err)
	}
	c.metrics.Outcome(component, "generated")
	return v, nil
}

type exerciseOutput struct {
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectOption  *int     `json:"correct_option"`
	ExpectedAnswer string   `json:"expected_answer"`
	Explanation    string   `json:"explanation"`
}

// GenerateExercise returns the section's practice exercise, generating it on
// first use. The request carries the section and those before it only.
func (c *Cache) GenerateExercise(ctx context.Context, lec *curriculum.Lecture, ref curriculum.SectionRef) (*curriculum.Exercise, error) {
	var (
		subTitle string
		seen     []sectionView
	)
	return run(ctx, c, op[*curriculum.Exercise]{
		name: "exercise",
		kind: curriculum.ErrEnrichmentFailed,
		key:  "exercise/" + lec.ID + "/" + ref.String(),
		lookup: func() (*curriculum.Exercise, bool, error) {
			var (
				ex  *curriculum.Exercise
				err error
			)
			lec.Read(func(l *curriculum.Lecture) {
				var sub *curriculum.Subchapter
				var sec *curriculum.LearningSection
				var idx int
				sub, sec, idx, err = l.Section(ref)
				if err != nil {
					return
				}
				if sec.Exercise != nil {
					ex = cloneExercise(sec.Exercise)
					return
				}
				if !sec.HasExerciseButton {
					err = fmt.Errorf("section %s offers no exercise: %w", ref, curriculum.ErrInvalidInput)
					return
				}
				subTitle = sub.Title
				seen = exerciseContext(sub.Sections, idx)
			})
			return ex, ex != nil, err
		},
		call: func(ctx context.Context) (*curriculum.Exercise, error) {
			req := llm.NewRequest(exerciseSystemPrompt, buildExerciseUserMessage(subTitle, seen), ExerciseSchema, c.cfg.Exercise)
			resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeExercise), req)
			if err != nil {
				return nil, err
			}
			var out exerciseOutput
			if err := llm.Decode(resp, &out); err != nil {
				return nil, err
			}
			ex := &curriculum.Exercise{
				ID:             ref.SectionID + "-ex",
				SectionID:      ref.SectionID,
				Kind:           curriculum.KindPractice,
				Prompt:         strings.TrimSpace(out.Prompt),
				ExpectedAnswer: out.ExpectedAnswer,
				Explanation:    out.Explanation,
			}
			if len(out.Options) >= 2 && out.CorrectOption != nil &&
				*out.CorrectOption >= 0 && *out.CorrectOption < len(out.Options) {
				correct := *out.CorrectOption
				ex.Options = out.Options
				ex.CorrectOption = &correct
			}
			return ex, nil
		},
		store: func(ex *curriculum.Exercise) error {
			return lec.Mutate(func(l *curriculum.Lecture) error {
				_, sec, _, err := l.Section(ref)
				if err != nil {
					return err
				}
				sec.Exercise = cloneExercise(ex)
				return nil
			})
		},
	})
}

// exerciseContext returns the sections up to and including idx in display
// order.
func exerciseContext(sections []*curriculum.LearningSection, idx int) []sectionView {
	out := make([]sectionView, 0, idx+1)
	for _, s := range sections[:idx+1] {
		out = append(out, viewOf(s))
	}
	return out
}

type gapOutput struct {
	Material string `json:"material"`
}

// GenerateGapMaterial returns material closing a knowledge gap for a section
// or a quiz exercise, generating it on first use.
func (c *Cache) GenerateGapMaterial(ctx context.Context, lec *curriculum.Lecture, key curriculum.GapKey, gap string) (string, error) {
	var (
		section  *sectionView
		exercise *exerciseView
	)
	gap = strings.TrimSpace(gap)
	return run(ctx, c, op[string]{
		name: "gap",
		kind: curriculum.ErrEnrichmentFailed,
		key:  "gap/" + lec.ID + "/" + key.String(),
		lookup: func() (string, bool, error) {
			var (
				material string
				err      error
			)
			lec.Read(func(l *curriculum.Lecture) {
				switch {
				case key.Section != nil:
					var sec *curriculum.LearningSection
					_, sec, _, err = l.Section(*key.Section)
					if err != nil {
						return
					}
					material = sec.GapMaterial
					v := viewOf(sec)
					section = &v
				case key.Quiz != nil:
					var ex *curriculum.Exercise
					_, _, ex, err = l.Exercise(*key.Quiz)
					if err != nil {
						return
					}
					material = l.GapMaterials[key.String()]
					exercise = &exerciseView{Prompt: ex.Prompt, Options: ex.Options, ExpectedAnswer: ex.ExpectedAnswer}
				default:
					err = fmt.Errorf("gap key names no entity: %w", curriculum.ErrInvalidInput)
				}
			})
			if err == nil && material == "" && gap == "" {
				err = fmt.Errorf("gap description is required: %w", curriculum.ErrInvalidInput)
			}
			return material, material != "", err
		},
		call: func(ctx context.Context) (string, error) {
			req := llm.NewRequest(gapSystemPrompt, buildGapUserMessage(section, exercise, gap), GapMaterialSchema, c.cfg.GapMaterial)
			resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeGapMaterial), req)
			if err != nil {
				return "", err
			}
			var out gapOutput
			if err := llm.Decode(resp, &out); err != nil {
				return "", err
			}
			if strings.TrimSpace(out.Material) == "" {
				return "", &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("empty material")}
			}
			return out.Material, nil
		},
		store: func(material string) error {
			return lec.Mutate(func(l *curriculum.Lecture) error {
				if key.Section != nil {
					_, sec, _, err := l.Section(*key.Section)
					if err != nil {
						return err
					}
					sec.GapMaterial = material
					return nil
				}
				if l.GapMaterials == nil {
					l.GapMaterials = map[string]string{}
				}
				l.GapMaterials[key.String()] = material
				return nil
			})
		},
	})
}

type explainOutput struct {
	Explanation string `json:"explanation"`
}

// ExplainSelection explains text highlighted in a section. Explanations are
// cached per section and case-insensitive text and kept as highlights.
func (c *Cache) ExplainSelection(ctx context.Context, lec *curriculum.Lecture, ref curriculum.SectionRef, text string) (curriculum.Highlight, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	key := "explain/" + lec.ID + "/" + ref.String() + "/" + lower
	if text == "" {
		return curriculum.Highlight{}, curriculum.Fail(curriculum.ErrEnrichmentFailed, key,
			fmt.Errorf("selected text is required: %w", curriculum.ErrInvalidInput))
	}

	var section sectionView
	return run(ctx, c, op[curriculum.Highlight]{
		name: "explain",
		kind: curriculum.ErrEnrichmentFailed,
		key:  key,
		lookup: func() (curriculum.Highlight, bool, error) {
			var (
				found curriculum.Highlight
				ok    bool
				err   error
			)
			lec.Read(func(l *curriculum.Lecture) {
				var sub *curriculum.Subchapter
				var sec *curriculum.LearningSection
				sub, sec, _, err = l.Section(ref)
				if err != nil {
					return
				}
				for _, h := range sub.Highlights {
					if h.SectionID == ref.SectionID && strings.ToLower(h.Text) == lower {
						found, ok = h, true
						return
					}
				}
				section = viewOf(sec)
			})
			return found, ok, err
		},
		call: func(ctx context.Context) (curriculum.Highlight, error) {
			req := llm.NewRequest(explainSystemPrompt, buildExplainUserMessage(section, text), ExplainSchema, c.cfg.Explain)
			resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeExplain), req)
			if err != nil {
				return curriculum.Highlight{}, err
			}
			var out explainOutput
			if err := llm.Decode(resp, &out); err != nil {
				return curriculum.Highlight{}, err
			}
			return curriculum.Highlight{
				ID:          uuid.NewString(),
				SectionID:   ref.SectionID,
				Text:        text,
				Explanation: out.Explanation,
				CreatedAt:   c.now(),
			}, nil
		},
		store: func(h curriculum.Highlight) error {
			return lec.Mutate(func(l *curriculum.Lecture) error {
				sub, _, _, err := l.Section(ref)
				if err != nil {
					return err
				}
				sub.Highlights = append(sub.Highlights, h)
				return nil
			})
		},
	})
}

type followUpOutput struct {
	Answer string `json:"answer"`
	Intent string `json:"intent"`
}

// AnswerFollowUp answers a question about an exercise. Answers are never
// cached; each one is appended to the exercise's follow-ups.
func (c *Cache) AnswerFollowUp(ctx context.Context, lec *curriculum.Lecture, ref curriculum.ExerciseRef, question string) (curriculum.FollowUp, error) {
	question = strings.TrimSpace(question)
	key := "followup/" + lec.ID + "/" + ref.String()
	if question == "" {
		return curriculum.FollowUp{}, curriculum.Fail(curriculum.ErrEnrichmentFailed, key,
			fmt.Errorf("question is required: %w", curriculum.ErrInvalidInput))
	}

	var view exerciseView
	return run(ctx, c, op[curriculum.FollowUp]{
		name: "followup",
		kind: curriculum.ErrEnrichmentFailed,
		key:  key,
		lookup: func() (curriculum.FollowUp, bool, error) {
			var err error
			lec.Read(func(l *curriculum.Lecture) {
				var ex *curriculum.Exercise
				_, _, ex, err = l.Exercise(ref)
				if err != nil {
					return
				}
				view = viewOfExercise(l, ref, ex)
			})
			return curriculum.FollowUp{}, false, err
		},
		call: func(ctx context.Context) (curriculum.FollowUp, error) {
			req := llm.NewRequest(followUpSystemPrompt, buildFollowUpUserMessage(view, question), FollowUpSchema, c.cfg.FollowUp)
			resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeFollowUp), req)
			if err != nil {
				return curriculum.FollowUp{}, err
			}
			var out followUpOutput
			if err := llm.Decode(resp, &out); err != nil {
				return curriculum.FollowUp{}, err
			}
			return curriculum.FollowUp{
				Question: question,
				Answer:   out.Answer,
				Intent:   curriculum.FollowUpIntent(out.Intent),
				At:       c.now(),
			}, nil
		},
		store: func(f curriculum.FollowUp) error {
			return lec.Mutate(func(l *curriculum.Lecture) error {
				_, _, ex, err := l.Exercise(ref)
				if err != nil {
					return err
				}
				ex.FollowUps = append(ex.FollowUps, f)
				return nil
			})
		},
	})
}

// viewOfExercise copies an exercise together with the learner's latest answer
// to it. Must be called inside Read or Mutate.
func viewOfExercise(l *curriculum.Lecture, ref curriculum.ExerciseRef, ex *curriculum.Exercise) exerciseView {
	v := exerciseView{
		Prompt:         ex.Prompt,
		Options:        slices.Clone(ex.Options),
		ExpectedAnswer: ex.ExpectedAnswer,
		FollowUps:      slices.Clone(ex.FollowUps),
	}
	for i := len(l.ExerciseHistory) - 1; i >= 0; i-- {
		a := l.ExerciseHistory[i]
		if a.ExerciseID == ref.ExerciseID && a.ChapterID == ref.ChapterID && a.SubchapterID == ref.SubchapterID {
			v.LastAnswer = a.Answer
			break
		}
	}
	return v
}

func cloneExercise(e *curriculum.Exercise) *curriculum.Exercise {
	out := *e
	out.Options = slices.Clone(e.Options)
	out.FollowUps = slices.Clone(e.FollowUps)
	if e.CorrectOption != nil {
		c := *e.CorrectOption
		out.CorrectOption = &c
	}
	return &out
}
