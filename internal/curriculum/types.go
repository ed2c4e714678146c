// Package curriculum holds the lecture data model shared by every
// orchestration component.
package curriculum

import "time"

// SchemaVersion is written into every persisted lecture document.
const SchemaVersion = "v1.2.0"

// UnlockPolicy selects how chapters become available.
type UnlockPolicy string

const (
	// UnlockOpen unlocks every chapter when the lecture is created.
	UnlockOpen UnlockPolicy = "open"

	// UnlockProgressive unlocks the first chapter, then each next chapter once
	// the previous one is completed or its chapter test is passed.
	UnlockProgressive UnlockPolicy = "progressive"
)

// KnowledgeLevel is a banded mastery level.
type KnowledgeLevel string

const (
	LevelBeginner     KnowledgeLevel = "beginner"
	LevelIntermediate KnowledgeLevel = "intermediate"
	LevelAdvanced     KnowledgeLevel = "advanced"
)

// Rank orders levels from weakest (0) to strongest (2). Unknown levels rank
// as beginner.
func (l KnowledgeLevel) Rank() int {
	switch l {
	case LevelAdvanced:
		return 2
	case LevelIntermediate:
		return 1
	default:
		return 0
	}
}

// Position is the learner's navigation focus.
type Position struct {
	ChapterID    string `json:"chapter_id"`
	SubchapterID string `json:"subchapter_id"`
}

// Chapter is an ordered group of subchapters.
type Chapter struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Subchapters []*Subchapter `json:"subchapters"`

	// Unlocked never reverts to false once set.
	Unlocked bool `json:"unlocked"`
}

// Subchapter is the unit of materialization and completion.
type Subchapter struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Objective      string   `json:"objective"`
	ConceptOutline []string `json:"concept_outline"`

	// Sections and Quiz are empty until the subchapter is materialized.
	Sections []*LearningSection `json:"sections,omitempty"`
	Quiz     []*Exercise        `json:"quiz,omitempty"`

	Started   bool `json:"started"`
	Completed bool `json:"completed"`

	Highlights      []Highlight             `json:"highlights,omitempty"`
	Personalization *PersonalizationSummary `json:"personalization,omitempty"`
	MaterializedAt  time.Time               `json:"materialized_at,omitzero"`
}

// Materialized reports whether the subchapter has learning sections.
func (s *Subchapter) Materialized() bool {
	return len(s.Sections) > 0
}

// SectionIndex returns the display index of a section, or -1.
func (s *Subchapter) SectionIndex(sectionID string) int {
	for i, sec := range s.Sections {
		if sec.ID == sectionID {
			return i
		}
	}
	return -1
}

// PersonalizationSummary is the collaborator's note on how assessment data
// shaped a subchapter.
type PersonalizationSummary struct {
	Summary string   `json:"summary"`
	Levels  []string `json:"levels,omitempty"`
}

// SectionFormat is the discriminator of a learning section's content shape.
type SectionFormat string

const (
	FormatProcess    SectionFormat = "process"
	FormatFramework  SectionFormat = "framework"
	FormatMethod     SectionFormat = "method"
	FormatConcept    SectionFormat = "concept"
	FormatComparison SectionFormat = "comparison"
)

// Formats lists every valid section format.
var Formats = []SectionFormat{FormatProcess, FormatFramework, FormatMethod, FormatConcept, FormatComparison}

// LearningSection is one block of subchapter content.
type LearningSection struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Format            SectionFormat  `json:"format"`
	Content           SectionContent `json:"content"`
	HasExerciseButton bool           `json:"has_exercise_button"`

	// Exercise and GapMaterial are populated at most once, on demand.
	Exercise    *Exercise `json:"exercise,omitempty"`
	GapMaterial string    `json:"gap_material,omitempty"`

	Personalization Personalization `json:"personalization"`
}

// SectionContent carries the format-specific payload of a section.
type SectionContent struct {
	Explanation      string            `json:"explanation"`
	Steps            []string          `json:"steps,omitempty"`
	Components       []Component       `json:"components,omitempty"`
	ComparisonPoints []ComparisonPoint `json:"comparison_points,omitempty"`
	Example          string            `json:"example,omitempty"`
}

// Component is a named part of a framework.
type Component struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ComparisonPoint contrasts the compared items along one aspect.
type ComparisonPoint struct {
	Aspect   string `json:"aspect"`
	Contrast string `json:"contrast"`
}

// Personalization records whether assessment data shaped a section.
type Personalization struct {
	WasPersonalized bool `json:"was_personalized"`
}

// ExerciseKind distinguishes practice exercises from completion quizzes.
type ExerciseKind string

const (
	KindPractice ExerciseKind = "practice"
	KindQuiz     ExerciseKind = "quiz"
)

// Exercise is either a section practice exercise or a subchapter quiz item.
type Exercise struct {
	ID        string       `json:"id"`
	SectionID string       `json:"section_id,omitempty"`
	Kind      ExerciseKind `json:"kind"`
	Prompt    string       `json:"prompt"`

	// Options and CorrectOption are set for multiple-choice exercises.
	// CorrectOption is a zero-based index into Options.
	Options       []string `json:"options,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`

	ExpectedAnswer string `json:"expected_answer,omitempty"`
	Explanation    string `json:"explanation,omitempty"`

	FollowUps []FollowUp `json:"follow_ups,omitempty"`
}

// IsMultipleChoice reports whether the exercise can be graded locally.
func (e *Exercise) IsMultipleChoice() bool {
	return len(e.Options) > 0 && e.CorrectOption != nil &&
		*e.CorrectOption >= 0 && *e.CorrectOption < len(e.Options)
}

// FollowUpIntent classifies a follow-up question.
type FollowUpIntent string

const (
	IntentScenarioExtension  FollowUpIntent = "scenario-extension"
	IntentFactualExplanation FollowUpIntent = "factual-explanation"
)

// FollowUp is a question asked about an exercise and its answer.
type FollowUp struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Intent   FollowUpIntent `json:"intent"`
	At       time.Time      `json:"at"`
}

// Highlight is an explained text selection inside a section.
type Highlight struct {
	ID          string    `json:"id"`
	SectionID   string    `json:"section_id"`
	Text        string    `json:"text"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExerciseAttempt is one evaluated answer in the lecture's history.
type ExerciseAttempt struct {
	ExerciseID   string       `json:"exercise_id"`
	ChapterID    string       `json:"chapter_id"`
	SubchapterID string       `json:"subchapter_id"`
	SectionID    string       `json:"section_id,omitempty"`
	Kind         ExerciseKind `json:"kind"`
	Answer       string       `json:"answer"`
	IsCorrect    bool         `json:"is_correct"`
	Feedback     string       `json:"feedback,omitempty"`
	KnowledgeGap string       `json:"knowledge_gap,omitempty"`
	At           time.Time    `json:"at"`
}

// AssessmentResult is the derived score for one skill.
type AssessmentResult struct {
	SkillID           string         `json:"skill_id"`
	Score             float64        `json:"score"`
	Level             KnowledgeLevel `json:"level"`
	QuestionsAnswered int            `json:"questions_answered"`
	QuestionsKnown    int            `json:"questions_known"`
}

// AssessmentSummary is the outcome of a completed probe.
type AssessmentSummary struct {
	Results     []AssessmentResult `json:"results"`
	CompletedAt time.Time          `json:"completed_at"`
}
