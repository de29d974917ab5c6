package quiz

import (
	"fmt"

	"github.com/cloo-solutions/quizforge/internal/domain"
)

const (
	minFallbackQuestions = 1
	maxFallbackQuestions = 50
)

// Fallback builds the deterministic quiz returned when generation fails.
func Fallback(title string, count int) *domain.GeneratedQuiz {
	if count < minFallbackQuestions {
		count = minFallbackQuestions
	}
	if count > maxFallbackQuestions {
		count = maxFallbackQuestions
	}

	questions := make([]domain.Question, count)
	for i := range questions {
		questions[i] = domain.Question{
			Text: fmt.Sprintf("Question %d: the quiz generator is in degraded mode. Review the course material on %s.",
				i+1, title),
			Type:          domain.QuestionTypeTrueFalse,
			Options:       domain.TrueFalseOptions(),
			CorrectAnswer: domain.TrueLabel,
		}
	}

	return &domain.GeneratedQuiz{
		Title:       title,
		Description: "Automatic quiz generation is temporarily unavailable. These placeholder questions point back to the course material.",
		Questions:   questions,
	}
}
