package curriculum

import "strings"

// SubchapterKey identifies a subchapter across lectures.
type SubchapterKey struct {
	LectureID    string
	ChapterID    string
	SubchapterID string
}

func (k SubchapterKey) String() string {
	return k.LectureID + "/" + k.ChapterID + "/" + k.SubchapterID
}

// SectionRef addresses a learning section inside a lecture.
type SectionRef struct {
	ChapterID    string
	SubchapterID string
	SectionID    string
}

func (r SectionRef) String() string {
	return r.ChapterID + "/" + r.SubchapterID + "/" + r.SectionID
}

// ExerciseRef addresses a practice exercise or quiz item inside a lecture.
type ExerciseRef struct {
	ChapterID    string
	SubchapterID string
	ExerciseID   string
}

func (r ExerciseRef) String() string {
	return r.ChapterID + "/" + r.SubchapterID + "/" + r.ExerciseID
}

// GapKey identifies the entity gap material is attached to: a learning
// section, or a quiz exercise through a synthetic key.
type GapKey struct {
	Section *SectionRef
	Quiz    *ExerciseRef
}

// SectionGap keys gap material on a learning section.
func SectionGap(ref SectionRef) GapKey {
	return GapKey{Section: &ref}
}

// QuizGap keys gap material on a quiz exercise.
func QuizGap(ref ExerciseRef) GapKey {
	return GapKey{Quiz: &ref}
}

// String returns the storage key. Quiz keys are the synthetic entries of
// Lecture.GapMaterials.
func (k GapKey) String() string {
	switch {
	case k.Section != nil:
		return "section:" + k.Section.String()
	case k.Quiz != nil:
		return "quiz:" + k.Quiz.String()
	}
	return ""
}

// ParseRef splits "chapter/subchapter/id" into its parts.
func ParseRef(s string) (chapterID, subchapterID, id string, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}
