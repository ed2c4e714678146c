package llm

import "context"

type contextKey string

const purposeKey contextKey = "llm_purpose"

// Purpose labels used by the curriculum components. They end up on usage
// events, trace spans and metrics.
const (
	PurposePlan        = "lecture-plan"
	PurposeSections    = "learning-sections"
	PurposeEnhance     = "learning-sections-enhance"
	PurposeExercise    = "section-exercise"
	PurposeGapMaterial = "gap-material"
	PurposeExplain     = "selection-explanation"
	PurposeFollowUp    = "follow-up-answer"
	PurposeEvaluate    = "exercise-evaluation"
	PurposeProbe       = "assessment-probe"
	PurposeTestGen     = "chapter-test"
	PurposeTestEval    = "chapter-test-evaluation"
	PurposeMaterials   = "materials-summary"
)

// WithPurpose attaches a purpose label to the context.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
