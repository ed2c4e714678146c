package assessment

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
)

// Generator builds probes for a lecture through the collaborator.
type Generator struct {
	provider llm.Provider
	cfg      Config
	log      *logging.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, cfg Config, log *logging.Logger) *Generator {
	if cfg.MaxSkills <= 0 {
		cfg.MaxSkills = DefaultConfig().MaxSkills
	}
	return &Generator{provider: provider, cfg: cfg, log: logging.OrNop(log).Named("assessment")}
}

type probeOutput struct {
	Skills []struct {
		Skill      string   `json:"skill"`
		Statements []string `json:"statements"`
	} `json:"skills"`
}

// GenerateProbe asks for 2-3 statements per skill, where skills are the
// lecture's concepts taken round-robin across chapters.
func (g *Generator) GenerateProbe(ctx context.Context, lec *curriculum.Lecture) (*Probe, error) {
	var topic, goal string
	var skills []string
	lec.Read(func(l *curriculum.Lecture) {
		topic, goal = l.Topic, l.Goal
		skills = pickSkills(l, g.cfg.MaxSkills)
	})
	if len(skills) == 0 {
		return nil, curriculum.Fail(curriculum.ErrEnrichmentFailed, lec.ID, errors.New("lecture has no concepts to assess"))
	}

	req := llm.NewRequest(probeSystemPrompt, buildProbeUserMessage(topic, goal, skills), ProbeSchema, g.cfg.Generation)
	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeProbe), req)
	if err != nil {
		return nil, curriculum.Fail(curriculum.ErrEnrichmentFailed, lec.ID, err)
	}
	var out probeOutput
	if err := llm.Decode(resp, &out); err != nil {
		return nil, curriculum.Fail(curriculum.ErrEnrichmentFailed, lec.ID, err)
	}

	known := lo.SliceToMap(skills, func(s string) (string, string) {
		return curriculum.ConceptKey(s), s
	})
	var items []Item
	seen := make(map[string]bool)
	for _, so := range out.Skills {
		k := curriculum.ConceptKey(so.Skill)
		skill, ok := known[k]
		if !ok || seen[k] {
			g.log.Debug("dropping probe skill", "skill", so.Skill)
			continue
		}
		seen[k] = true
		statements := lo.Filter(so.Statements, func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
		for _, s := range lo.Subset(statements, 0, 3) {
			items = append(items, Item{SkillID: skill, Statement: strings.TrimSpace(s)})
		}
	}

	p, err := NewProbe(items)
	if err != nil {
		return nil, curriculum.Fail(curriculum.ErrEnrichmentFailed, lec.ID, err)
	}
	g.log.Info("generated probe", "lecture_id", lec.ID, "skills", len(seen), "items", len(items))
	return p, nil
}

// pickSkills takes concepts round-robin across chapters so that a capped
// probe still covers every chapter. Must be called inside Read.
func pickSkills(l *curriculum.Lecture, max int) []string {
	if l.Concepts == nil {
		return nil
	}
	perChapter := make([][]string, len(l.Chapters))
	for i, ch := range l.Chapters {
		perChapter[i] = l.Concepts.ChapterConcepts(ch.ID)
	}
	var out []string
	for round := 0; len(out) < max; round++ {
		added := false
		for _, cs := range perChapter {
			if round < len(cs) && len(out) < max {
				out = append(out, cs[round])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}
