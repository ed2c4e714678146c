package curriculum

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/mod/semver"
)

// Lecture is the root aggregate owned by one learner. All access goes through
// Read and Mutate, which serialize on an internal lock.
type Lecture struct {
	mu sync.RWMutex

	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Topic  string `json:"topic"`
	Title  string `json:"title"`
	Goal   string `json:"goal"`

	Chapters []*Chapter  `json:"chapters"`
	Concepts *ConceptMap `json:"concept_map,omitempty"`

	Assessment   *AssessmentSummary `json:"assessment,omitempty"`
	Current      Position           `json:"current"`
	UnlockPolicy UnlockPolicy       `json:"unlock_policy"`

	ExerciseHistory []ExerciseAttempt `json:"exercise_history,omitempty"`

	// GapMaterials holds gap material keyed by synthetic quiz keys.
	GapMaterials map[string]string `json:"gap_materials,omitempty"`

	ChapterTests []*ChapterTest `json:"chapter_tests,omitempty"`

	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Read runs fn under the read lock. fn must not retain pointers into the
// lecture past its return.
func (l *Lecture) Read(fn func(*Lecture)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(l)
}

// Mutate runs fn under the write lock and bumps UpdatedAt when fn succeeds.
func (l *Lecture) Mutate(fn func(*Lecture) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(l); err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Key builds the materialization key for a subchapter of this lecture.
func (l *Lecture) Key(chapterID, subchapterID string) SubchapterKey {
	return SubchapterKey{LectureID: l.ID, ChapterID: chapterID, SubchapterID: subchapterID}
}

// The lookup helpers below must be called from inside Read or Mutate.

// Chapter returns the chapter and its index.
func (l *Lecture) Chapter(chapterID string) (*Chapter, int) {
	for i, ch := range l.Chapters {
		if ch.ID == chapterID {
			return ch, i
		}
	}
	return nil, -1
}

// Subchapter returns the addressed subchapter and its chapter.
func (l *Lecture) Subchapter(chapterID, subchapterID string) (*Chapter, *Subchapter, error) {
	ch, _ := l.Chapter(chapterID)
	if ch == nil {
		return nil, nil, fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
	}
	for _, sub := range ch.Subchapters {
		if sub.ID == subchapterID {
			return ch, sub, nil
		}
	}
	return nil, nil, fmt.Errorf("subchapter %s/%s: %w", chapterID, subchapterID, ErrNotFound)
}

// Section returns the addressed section, its subchapter and display index.
func (l *Lecture) Section(ref SectionRef) (*Subchapter, *LearningSection, int, error) {
	_, sub, err := l.Subchapter(ref.ChapterID, ref.SubchapterID)
	if err != nil {
		return nil, nil, -1, err
	}
	idx := sub.SectionIndex(ref.SectionID)
	if idx < 0 {
		return nil, nil, -1, fmt.Errorf("section %s: %w", ref, ErrNotFound)
	}
	return sub, sub.Sections[idx], idx, nil
}

// Exercise finds a practice exercise or quiz item and the section it belongs
// to. The section is nil for quiz items.
func (l *Lecture) Exercise(ref ExerciseRef) (*Subchapter, *LearningSection, *Exercise, error) {
	_, sub, err := l.Subchapter(ref.ChapterID, ref.SubchapterID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, sec := range sub.Sections {
		if sec.Exercise != nil && sec.Exercise.ID == ref.ExerciseID {
			return sub, sec, sec.Exercise, nil
		}
	}
	for _, q := range sub.Quiz {
		if q.ID == ref.ExerciseID {
			return sub, nil, q, nil
		}
	}
	return nil, nil, nil, fmt.Errorf("exercise %s: %w", ref, ErrNotFound)
}

// ChapterAfter returns the chapter following chapterID, or nil.
func (l *Lecture) ChapterAfter(chapterID string) *Chapter {
	_, i := l.Chapter(chapterID)
	if i < 0 || i+1 >= len(l.Chapters) {
		return nil
	}
	return l.Chapters[i+1]
}

// lectureDoc shares Lecture's field layout without its methods, so encoding
// does not recurse into the lock-taking helpers.
type lectureDoc Lecture

// Encode serializes the lecture, stamping the current schema version.
func (l *Lecture) Encode() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SchemaVersion != SchemaVersion {
		l.SchemaVersion = SchemaVersion
	}
	return json.Marshal((*lectureDoc)(l))
}

// DecodeLecture parses a persisted lecture. Documents written by a newer
// major schema version are rejected.
func DecodeLecture(data []byte) (*Lecture, error) {
	var doc lectureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lecture: %w", err)
	}
	if err := CheckSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, fmt.Errorf("lecture %s: %w", doc.ID, err)
	}
	lec := (*Lecture)(&doc)
	if lec.GapMaterials == nil {
		lec.GapMaterials = make(map[string]string)
	}
	return lec, nil
}

// CheckSchemaVersion accepts documents with no version (pre-versioning) or a
// major version not newer than SchemaVersion.
func CheckSchemaVersion(v string) error {
	if v == "" {
		return nil
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid schema version %q", v)
	}
	if semver.Compare(semver.Major(v), semver.Major(SchemaVersion)) > 0 {
		return fmt.Errorf("schema version %s is newer than supported %s", v, SchemaVersion)
	}
	return nil
}
