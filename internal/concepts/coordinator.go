// Package concepts plans lectures and owns the concept-to-chapter
// assignment that keeps concepts from being taught twice.
package concepts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
)

// PlanInput is what the learner provides to start a lecture.
type PlanInput struct {
	UserID           string
	Topic            string
	Goal             string
	MaterialsSummary string
}

// Coordinator turns a topic into a lecture with a validated concept map.
type Coordinator struct {
	provider llm.Provider
	cfg      Config
	log      *logging.Logger
	now      func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(provider llm.Provider, cfg Config, log *logging.Logger) *Coordinator {
	return &Coordinator{
		provider: provider,
		cfg:      cfg,
		log:      logging.OrNop(log).Named("concepts"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type planOutput struct {
	LectureTitle string          `json:"lecture_title"`
	AllConcepts  []string        `json:"all_concepts"`
	Chapters     []chapterOutput `json:"chapters"`
}

type chapterOutput struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Concepts    []string           `json:"concepts"`
	Subchapters []subchapterOutput `json:"subchapters"`
}

type subchapterOutput struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Objective      string   `json:"objective"`
	ConceptOutline []string `json:"concept_outline"`
}

// Plan generates a lecture. Either a fully valid lecture is returned or an
// error wrapping curriculum.ErrPlanGenerationFailed.
func (c *Coordinator) Plan(ctx context.Context, in PlanInput) (*curriculum.Lecture, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Topic == "" {
		return nil, curriculum.Fail(curriculum.ErrPlanGenerationFailed, "", fmt.Errorf("topic is required: %w", curriculum.ErrInvalidInput))
	}

	ctx = llm.WithPurpose(ctx, llm.PurposePlan)
	req := llm.NewRequest(planSystemPrompt, buildPlanUserMessage(in), PlanSchema, c.cfg.Generation)

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, curriculum.Fail(curriculum.ErrPlanGenerationFailed, in.Topic, err)
	}

	var out planOutput
	if err := llm.Decode(resp, &out); err != nil {
		return nil, curriculum.Fail(curriculum.ErrPlanGenerationFailed, in.Topic, err)
	}

	lec, err := c.build(in, out)
	if err != nil {
		c.log.Warn("rejected lecture plan", "topic", in.Topic, "error", err.Error())
		return nil, curriculum.Fail(curriculum.ErrPlanGenerationFailed, in.Topic, err)
	}

	c.log.Info("planned lecture",
		"lecture_id", lec.ID,
		"chapters", len(lec.Chapters),
		"concepts", len(lec.Concepts.AllConcepts()),
	)
	return lec, nil
}

func (c *Coordinator) build(in PlanInput, out planOutput) (*curriculum.Lecture, error) {
	if len(out.Chapters) == 0 {
		return nil, errors.New("plan has no chapters")
	}

	chapters := make([]*curriculum.Chapter, len(out.Chapters))
	chapterIDs := newIDSet()
	subIDs := newIDSet()
	for i, co := range out.Chapters {
		if strings.TrimSpace(co.Title) == "" {
			return nil, fmt.Errorf("chapter %d has no title", i+1)
		}
		if len(co.Subchapters) == 0 {
			return nil, fmt.Errorf("chapter %q has no subchapters", co.Title)
		}
		ch := &curriculum.Chapter{
			ID:    chapterIDs.claim(co.ID, fmt.Sprintf("ch-%d", i+1)),
			Title: strings.TrimSpace(co.Title),
		}
		for j, so := range co.Subchapters {
			if strings.TrimSpace(so.Title) == "" {
				return nil, fmt.Errorf("subchapter %d of %q has no title", j+1, co.Title)
			}
			ch.Subchapters = append(ch.Subchapters, &curriculum.Subchapter{
				ID:        subIDs.claim(so.ID, fmt.Sprintf("ch-%d-%d", i+1, j+1)),
				Title:     strings.TrimSpace(so.Title),
				Objective: strings.TrimSpace(so.Objective),
			})
		}
		chapters[i] = ch
	}

	all, distribution := resolveDistribution(out, chapters)

	for i, ch := range chapters {
		outlines := make([][]string, len(out.Chapters[i].Subchapters))
		for j, so := range out.Chapters[i].Subchapters {
			outlines[j] = so.ConceptOutline
		}
		resolved, err := resolveOutlines(distribution[ch.ID], outlines)
		if err != nil {
			return nil, fmt.Errorf("chapter %s: %w", ch.ID, err)
		}
		for j, sub := range ch.Subchapters {
			sub.ConceptOutline = resolved[j]
		}
	}

	cm, err := curriculum.NewConceptMap(all, distribution)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(out.LectureTitle)
	if title == "" {
		title = in.Topic
	}
	now := c.now()
	return &curriculum.Lecture{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Topic:        in.Topic,
		Title:        title,
		Goal:         in.Goal,
		Chapters:     chapters,
		Concepts:     cm,
		UnlockPolicy: c.cfg.UnlockPolicy,
		Current: curriculum.Position{
			ChapterID:    chapters[0].ID,
			SubchapterID: chapters[0].Subchapters[0].ID,
		},
		GapMaterials:  map[string]string{},
		SchemaVersion: curriculum.SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// resolveDistribution normalizes concepts and keeps each one in the first
// chapter, in chapter order, that lists it. Concepts distributed but missing
// from all_concepts are appended in first-seen order.
func resolveDistribution(out planOutput, chapters []*curriculum.Chapter) ([]string, map[string][]string) {
	var all []string
	inAll := make(map[string]bool)
	addToAll := func(c string) {
		k := curriculum.ConceptKey(c)
		if !inAll[k] {
			inAll[k] = true
			all = append(all, c)
		}
	}
	for _, c := range normalize(out.AllConcepts) {
		addToAll(c)
	}

	owner := make(map[string]string)
	distribution := make(map[string][]string, len(chapters))
	for i, co := range out.Chapters {
		chID := chapters[i].ID
		distribution[chID] = []string{}
		for _, c := range normalize(co.Concepts) {
			k := curriculum.ConceptKey(c)
			if _, taken := owner[k]; taken {
				continue
			}
			owner[k] = chID
			distribution[chID] = append(distribution[chID], c)
			addToAll(c)
		}
	}
	return all, distribution
}

// resolveOutlines restricts each subchapter outline to the chapter's concepts
// and makes outlines mutually exclusive, first subchapter winning. Empty
// outlines then receive the chapter's unassigned concepts round-robin.
func resolveOutlines(chapterConcepts []string, outlines [][]string) ([][]string, error) {
	canonical := make(map[string]string, len(chapterConcepts))
	for _, c := range chapterConcepts {
		canonical[curriculum.ConceptKey(c)] = c
	}

	assigned := make(map[string]bool)
	resolved := make([][]string, len(outlines))
	for j, outline := range outlines {
		resolved[j] = []string{}
		for _, c := range normalize(outline) {
			k := curriculum.ConceptKey(c)
			canon, ok := canonical[k]
			if !ok || assigned[k] {
				continue
			}
			assigned[k] = true
			resolved[j] = append(resolved[j], canon)
		}
	}

	unassigned := lo.Filter(chapterConcepts, func(c string, _ int) bool {
		return !assigned[curriculum.ConceptKey(c)]
	})
	var empty []int
	for j, o := range resolved {
		if len(o) == 0 {
			empty = append(empty, j)
		}
	}
	if len(empty) > 0 {
		for i, c := range unassigned {
			j := empty[i%len(empty)]
			resolved[j] = append(resolved[j], c)
		}
		for _, j := range empty {
			if len(resolved[j]) == 0 {
				return nil, fmt.Errorf("subchapter %d has no concepts left to teach", j+1)
			}
		}
	}
	return resolved, nil
}

// normalize trims concepts and drops empties and case-insensitive repeats.
func normalize(concepts []string) []string {
	trimmed := lo.FilterMap(concepts, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	})
	return lo.UniqBy(trimmed, curriculum.ConceptKey)
}

// idSet hands out unique IDs, preferring the collaborator's when usable.
type idSet map[string]bool

func newIDSet() idSet { return make(idSet) }

func (s idSet) claim(preferred, fallback string) string {
	id := strings.TrimSpace(preferred)
	if id == "" || s[id] || strings.Contains(id, "/") {
		id = fallback
	}
	for s[id] {
		id += "x"
	}
	s[id] = true
	return id
}
