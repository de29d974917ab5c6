package domain

import "strings"

// QuestionType enumerates the supported question shapes.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeOpenEnded      QuestionType = "OPEN_ENDED"
)

// Canonical TRUE_FALSE options.
const (
	TrueLabel  = "Vrai"
	FalseLabel = "Faux"
)

// AnswerSeparator joins the members of a MULTIPLE_CHOICE answer.
const AnswerSeparator = ","

// Question is immutable once produced by the normalizer or the fallback generator.
type Question struct {
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
}

// TrueFalseOptions returns a fresh copy of the canonical boolean pair.
func TrueFalseOptions() []string {
	return []string{TrueLabel, FalseLabel}
}

func IsValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeOpenEnded:
		return true
	}
	return false
}

// RequiresOptions reports whether the type needs at least two options.
func (t QuestionType) RequiresOptions() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

// AnswerSet splits a MULTIPLE_CHOICE answer into its members.
func (q Question) AnswerSet() []string {
	var out []string
	for _, part := range strings.Split(q.CorrectAnswer, AnswerSeparator) {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// HasOption reports whether v is exactly one of the options.
func (q Question) HasOption(v string) bool {
	for _, opt := range q.Options {
		if opt == v {
			return true
		}
	}
	return false
}
