package quiz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
)

var (
	errEmptyText          = errors.New("empty question text")
	errTooFewOptions      = errors.New("fewer than two options")
	errEmptyAnswer        = errors.New("empty correct answer")
	errAnswerNotOption    = errors.New("correct answer is not one of the options")
	errAnswerNotBoolean   = errors.New("true/false answer is not Vrai or Faux")
	errCopiedPlaceholder  = errors.New("question repeats a schema placeholder")
	errCopiedExample      = errors.New("question repeats the worked example")
	errUnknownType        = errors.New("unknown question type")
	errAnswerMemberNotOpt = errors.New("multiple choice answer member is not an option")
)

// Validator is the quality gate between normalization and output.
type Validator struct {
	threshold float64
}

func NewValidator(p config.Pipeline) *Validator {
	threshold := p.AcceptanceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	return &Validator{threshold: threshold}
}

// Report is the outcome of gating one batch.
type Report struct {
	Valid   []domain.Question
	Invalid int
	Total   int
	Reasons []string
}

// Check returns the first rule q breaks, or nil.
func (v *Validator) Check(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return errEmptyText
	}
	if ContainsPlaceholder(q.Text) || ContainsPlaceholder(q.CorrectAnswer) {
		return errCopiedPlaceholder
	}
	for _, opt := range q.Options {
		if ContainsPlaceholder(opt) {
			return errCopiedPlaceholder
		}
	}
	if IsCopiedExample(q) {
		return errCopiedExample
	}
	if !domain.IsValidQuestionType(q.Type) {
		return errUnknownType
	}
	if q.Type.RequiresOptions() && len(q.Options) < 2 {
		return errTooFewOptions
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return errEmptyAnswer
	}

	switch q.Type {
	case domain.QuestionTypeSingleChoice:
		if !q.HasOption(q.CorrectAnswer) {
			return errAnswerNotOption
		}
	case domain.QuestionTypeMultipleChoice:
		for _, member := range q.AnswerSet() {
			if !q.HasOption(member) {
				return errAnswerMemberNotOpt
			}
		}
	case domain.QuestionTypeTrueFalse:
		if q.CorrectAnswer != domain.TrueLabel && q.CorrectAnswer != domain.FalseLabel {
			return errAnswerNotBoolean
		}
	}
	return nil
}

// Validate gates a batch. dropped counts raw elements the parser or normalizer already
// rejected; they count as invalid. The batch fails with *domain.ValidationError when
// invalid questions exceed the acceptance threshold. Valid questions are capped at requested.
func (v *Validator) Validate(questions []domain.Question, dropped, requested int) (*Report, error) {
	report := &Report{
		Total:   len(questions) + dropped,
		Invalid: dropped,
	}

	for i, q := range questions {
		if err := v.Check(q); err != nil {
			report.Invalid++
			report.Reasons = append(report.Reasons, fmt.Sprintf("question %d: %v", i, err))
			continue
		}
		report.Valid = append(report.Valid, q)
	}

	if report.Total == 0 || len(report.Valid) == 0 || float64(report.Invalid) > v.threshold*float64(report.Total) {
		return report, &domain.ValidationError{
			Invalid: report.Invalid,
			Total:   report.Total,
			Reasons: report.Reasons,
		}
	}

	if requested > 0 && len(report.Valid) > requested {
		report.Valid = report.Valid[:requested]
	}
	return report, nil
}
