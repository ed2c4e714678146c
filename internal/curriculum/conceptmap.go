package curriculum

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ConceptMap assigns every concept of a lecture to at most one chapter. It is
// built once at plan time and exposes copies only.
type ConceptMap struct {
	all          []string
	distribution map[string][]string
	owner        map[string]string
}

// NewConceptMap validates and builds a ConceptMap. It fails if a concept is
// assigned to two chapters or a distributed concept is missing from all.
// Concept identity is case-insensitive.
func NewConceptMap(all []string, distribution map[string][]string) (*ConceptMap, error) {
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[ConceptKey(c)] = true
	}

	owner := make(map[string]string)
	dist := make(map[string][]string, len(distribution))
	for chID, concepts := range distribution {
		for _, c := range concepts {
			k := ConceptKey(c)
			if !known[k] {
				return nil, fmt.Errorf("concept %q in chapter %s is not in the concept set", c, chID)
			}
			if prev, ok := owner[k]; ok && prev != chID {
				return nil, fmt.Errorf("concept %q assigned to both %s and %s", c, prev, chID)
			}
			owner[k] = chID
		}
		dist[chID] = slices.Clone(concepts)
	}

	return &ConceptMap{all: slices.Clone(all), distribution: dist, owner: owner}, nil
}

// ConceptKey is the identity used for concept comparison.
func ConceptKey(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// AllConcepts returns the ordered concept set.
func (m *ConceptMap) AllConcepts() []string {
	return slices.Clone(m.all)
}

// ChapterConcepts returns the concepts assigned to a chapter.
func (m *ConceptMap) ChapterConcepts(chapterID string) []string {
	return slices.Clone(m.distribution[chapterID])
}

// ChapterIDs returns the chapters present in the distribution, sorted.
func (m *ConceptMap) ChapterIDs() []string {
	ids := make([]string, 0, len(m.distribution))
	for id := range m.distribution {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Owner returns the chapter a concept is assigned to.
func (m *ConceptMap) Owner(concept string) (string, bool) {
	ch, ok := m.owner[ConceptKey(concept)]
	return ch, ok
}

type conceptMapDoc struct {
	AllConcepts         []string            `json:"all_concepts"`
	ChapterDistribution map[string][]string `json:"chapter_distribution"`
}

func (m *ConceptMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(conceptMapDoc{AllConcepts: m.all, ChapterDistribution: m.distribution})
}

func (m *ConceptMap) UnmarshalJSON(data []byte) error {
	var doc conceptMapDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	built, err := NewConceptMap(doc.AllConcepts, doc.ChapterDistribution)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}
