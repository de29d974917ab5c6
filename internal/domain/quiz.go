package domain

import "time"

// GeneratedQuiz is the pipeline output. The pipeline never returns a nil quiz.
type GeneratedQuiz struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// GenerationRequest describes one quiz generation.
type GenerationRequest struct {
	Title         string `validate:"required,max=300"`
	QuestionCount int    `validate:"min=1,max=50"`
	Content       string
	CourseID      string
	LearnerID     string
}

// QuizOutcome tells a generated quiz apart from a fallback one.
type QuizOutcome string

const (
	QuizOutcomeGenerated QuizOutcome = "generated"
	QuizOutcomeDegraded  QuizOutcome = "degraded"
)

// GenerationStats counts questions through the pipeline stages.
type GenerationStats struct {
	Requested int `json:"requested"`
	Parsed    int `json:"parsed"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Fragments int `json:"fragments"`
}

// QuizResult is returned by the safe entry points.
type QuizResult struct {
	Quiz     *GeneratedQuiz
	Outcome  QuizOutcome
	Cause    error
	Stats    GenerationStats
	Duration time.Duration
}

// Degraded reports whether the fallback generator produced the quiz.
func (r *QuizResult) Degraded() bool {
	return r != nil && r.Outcome == QuizOutcomeDegraded
}

// CauseMessage returns the degradation cause as text, or "".
func (r *QuizResult) CauseMessage() string {
	if r == nil || r.Cause == nil {
		return ""
	}
	return r.Cause.Error()
}
