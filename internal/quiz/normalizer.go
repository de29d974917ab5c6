package quiz

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
)

var (
	textKeys        = []string{"text", "question", "questionText", "question_text", "enonce", "prompt"}
	typeKeys        = []string{"type", "questionType", "question_type", "kind"}
	optionKeys      = []string{"options", "choices", "answers", "propositions"}
	answerKeys      = []string{"correctAnswer", "correct_answer", "answer", "reponse", "solution"}
	explanationKeys = []string{"explanation", "explication", "rationale", "justification"}
)

var (
	trueWords  = map[string]bool{"true": true, "vrai": true, "yes": true, "oui": true}
	falseWords = map[string]bool{"false": true, "faux": true, "no": true, "non": true}
)

// Normalizer maps loosely shaped question objects onto domain.Question.
type Normalizer struct {
	minChars int
}

func NewNormalizer(p config.Pipeline) *Normalizer {
	minChars := p.MinQuestionChars
	if minChars <= 0 {
		minChars = 1
	}
	return &Normalizer{minChars: minChars}
}

// NormalizeAll normalizes every raw question, skipping rejected ones.
func (n *Normalizer) NormalizeAll(raws []map[string]any) ([]domain.Question, []Diagnostic) {
	out := make([]domain.Question, 0, len(raws))
	var diags []Diagnostic
	for i, raw := range raws {
		q, d, ok := n.Normalize(i, raw)
		diags = append(diags, d...)
		if ok {
			out = append(out, q)
		}
	}
	return out, diags
}

// Normalize returns ok=false when the question has no usable text.
func (n *Normalizer) Normalize(index int, raw map[string]any) (domain.Question, []Diagnostic, bool) {
	var diags []Diagnostic
	report := func(field, format string, args ...any) {
		diags = append(diags, Diagnostic{Index: index, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	text, _ := firstString(raw, textKeys)
	if text == "" {
		report("text", "missing question text")
		return domain.Question{}, diags, false
	}
	if utf8.RuneCountInString(text) < n.minChars {
		report("text", "shorter than %d characters", n.minChars)
		return domain.Question{}, diags, false
	}

	rawOptions, optionKey := firstValue(raw, optionKeys)
	options, err := ReadOptions(rawOptions)
	if err != nil {
		report(optionKey, "%v", err)
	}

	qtype := domain.QuestionType("")
	if declared, ok := firstString(raw, typeKeys); ok {
		qtype = matchType(declared)
	}
	if qtype == "" {
		qtype = inferType(options.Values)
	}

	rawAnswer, answerKey := firstValue(raw, answerKeys)
	answer, err := ReadAnswer(rawAnswer)
	if err != nil {
		report(answerKey, "%v", err)
	}

	q := domain.Question{Text: text, Type: qtype}
	q.Explanation, _ = firstString(raw, explanationKeys)

	switch qtype {
	case domain.QuestionTypeTrueFalse:
		q.Options = domain.TrueFalseOptions()
		q.CorrectAnswer = trueFalseAnswer(answer)
	case domain.QuestionTypeMultipleChoice:
		q.Options = options.Values
		q.CorrectAnswer = joinAnswerSet(resolveMembers(answerMembers(answer, q.Options), q.Options))
	case domain.QuestionTypeOpenEnded:
		q.Options = []string{}
		q.CorrectAnswer, _ = answer.Single()
	default:
		q.Options = options.Values
		single, ok := answer.Single()
		if !ok && answer.Kind == AnswerList {
			report(answerKey, "expected one answer, got %d", len(answer.List))
		}
		q.CorrectAnswer = resolveSingle(single, q.Options)
	}

	if q.Options == nil {
		q.Options = []string{}
	}
	if q.CorrectAnswer == "" && len(q.Options) > 0 && q.Type != domain.QuestionTypeOpenEnded {
		q.CorrectAnswer = q.Options[0]
	}

	return q, diags, true
}

// matchType maps a declared type by loose containment, in priority order.
func matchType(declared string) domain.QuestionType {
	t := fold(declared)
	switch {
	case strings.Contains(t, "multiple"):
		return domain.QuestionTypeMultipleChoice
	case containsAny(t, "true", "false", "vrai", "faux", "boolean"):
		return domain.QuestionTypeTrueFalse
	case containsAny(t, "open", "short", "libre", "ouverte"):
		return domain.QuestionTypeOpenEnded
	case containsAny(t, "single", "choice", "unique"):
		return domain.QuestionTypeSingleChoice
	}
	return ""
}

func inferType(options []string) domain.QuestionType {
	if len(options) == 2 && isBooleanPair(options[0], options[1]) {
		return domain.QuestionTypeTrueFalse
	}
	return domain.QuestionTypeSingleChoice
}

func isBooleanPair(a, b string) bool {
	fa, fb := fold(a), fold(b)
	return (trueWords[fa] && falseWords[fb]) || (falseWords[fa] && trueWords[fb])
}

func trueFalseAnswer(answer AnswerVariant) string {
	single, ok := answer.Single()
	if !ok {
		return domain.TrueLabel
	}
	switch f := fold(single); {
	case trueWords[f]:
		return domain.TrueLabel
	case falseWords[f]:
		return domain.FalseLabel
	}
	return single
}

// answerMembers splits a text answer on AnswerSeparator when every part is an option,
// so canonical answers whose options contain other delimiters read back unchanged.
func answerMembers(answer AnswerVariant, options []string) []string {
	if answer.Kind != AnswerText {
		return answer.Members()
	}
	if parts := strings.Split(answer.Text, domain.AnswerSeparator); allOptions(parts, options) {
		return parts
	}
	if allOptions([]string{answer.Text}, options) {
		return []string{answer.Text}
	}
	return answer.Members()
}

func allOptions(members, options []string) bool {
	for _, m := range members {
		if !slices.Contains(options, strings.TrimSpace(m)) {
			return false
		}
	}
	return len(members) > 0
}

func resolveMembers(members, options []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, resolveSingle(m, options))
	}
	return out
}

// joinAnswerSet trims and deduplicates members, keeping first-appearance order.
func joinAnswerSet(members []string) string {
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return strings.Join(out, domain.AnswerSeparator)
}

// resolveSingle maps a letter or 1-based index to the option at that position
// when the answer is not already an exact option.
func resolveSingle(answer string, options []string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	for _, opt := range options {
		if opt == answer {
			return answer
		}
	}

	if idx, ok := letterIndex(answer); ok && idx < len(options) {
		return options[idx]
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}

	folded := fold(answer)
	for _, opt := range options {
		if fold(opt) == folded {
			return opt
		}
	}
	return answer
}

// letterIndex accepts "B", "b", "B)" and "B." as the second option.
func letterIndex(s string) (int, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), ").:")
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ToRaw converts q back into the raw shape accepted by Normalize.
func ToRaw(q domain.Question) map[string]any {
	options := make([]any, len(q.Options))
	for i, o := range q.Options {
		options[i] = o
	}
	raw := map[string]any{
		"text":          q.Text,
		"type":          string(q.Type),
		"options":       options,
		"correctAnswer": q.CorrectAnswer,
	}
	if q.Explanation != "" {
		raw["explanation"] = q.Explanation
	}
	return raw
}
