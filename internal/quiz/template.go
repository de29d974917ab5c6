package quiz

import (
	"strings"

	"github.com/cloo-solutions/quizforge/internal/domain"
)

// Output schema placeholders shown to the model.
const (
	PlaceholderTitle       = "<QUIZ_TITLE>"
	PlaceholderDescription = "<QUIZ_DESCRIPTION>"
	PlaceholderQuestion    = "<QUESTION_TEXT>"
	PlaceholderType        = "<QUESTION_TYPE>"
	PlaceholderOptionA     = "<OPTION_A>"
	PlaceholderOptionB     = "<OPTION_B>"
	PlaceholderOptionC     = "<OPTION_C>"
	PlaceholderOptionD     = "<OPTION_D>"
	PlaceholderAnswer      = "<CORRECT_ANSWER>"
	PlaceholderExplanation = "<EXPLANATION>"
)

var placeholders = []string{
	PlaceholderTitle, PlaceholderDescription, PlaceholderQuestion, PlaceholderType,
	PlaceholderOptionA, PlaceholderOptionB, PlaceholderOptionC, PlaceholderOptionD,
	PlaceholderAnswer, PlaceholderExplanation,
}

// OutputSchema is the exact JSON shape the model must return.
const OutputSchema = `{
  "title": "` + PlaceholderTitle + `",
  "description": "` + PlaceholderDescription + `",
  "questions": [
    {
      "text": "` + PlaceholderQuestion + `",
      "type": "` + PlaceholderType + `",
      "options": ["` + PlaceholderOptionA + `", "` + PlaceholderOptionB + `", "` + PlaceholderOptionC + `", "` + PlaceholderOptionD + `"],
      "correctAnswer": "` + PlaceholderAnswer + `",
      "explanation": "` + PlaceholderExplanation + `"
    }
  ]
}`

// ExampleQuestion is the worked example included in every prompt.
var ExampleQuestion = domain.Question{
	Text:          "Which organelle carries out photosynthesis in plant cells?",
	Type:          domain.QuestionTypeSingleChoice,
	Options:       []string{"Chloroplast", "Mitochondrion", "Ribosome", "Nucleus"},
	CorrectAnswer: "Chloroplast",
	Explanation:   "Chloroplasts hold the chlorophyll that captures light energy.",
}

// ContainsPlaceholder reports whether s still carries a schema placeholder.
func ContainsPlaceholder(s string) bool {
	for _, p := range placeholders {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsCopiedExample reports whether q repeats the worked example text.
func IsCopiedExample(q domain.Question) bool {
	return fold(q.Text) == fold(ExampleQuestion.Text)
}
