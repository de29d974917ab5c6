package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/quiz"
)

const truncatedMarker = "[truncated]"

// PromptInput is everything the prompt is built from.
type PromptInput struct {
	Title         string
	CourseID      string
	QuestionCount int
	Profile       *domain.LearnerProfile
	Fragments     []domain.ScoredFragment
}

// TypeTargets is the number of questions requested per type.
type TypeTargets struct {
	SingleChoice   int
	MultipleChoice int
	TrueFalse      int
}

type PromptBuilder struct {
	pipeline config.Pipeline
}

func NewPromptBuilder(pipeline config.Pipeline) *PromptBuilder {
	return &PromptBuilder{pipeline: pipeline}
}

// Build renders the grounding prompt.
func (b *PromptBuilder) Build(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant that writes quiz questions for a course.\n")
	sb.WriteString("Use ONLY the course excerpts below. Do not use outside knowledge. ")
	sb.WriteString("Every question and every correct answer must be supported by the excerpts. ")
	sb.WriteString("If the excerpts do not cover a point, do not ask about it.\n\n")

	sb.WriteString("## Context\n")
	fmt.Fprintf(&sb, "Topic: %s\n", in.Title)
	if in.CourseID != "" {
		fmt.Fprintf(&sb, "Course: %s\n", in.CourseID)
	}
	level := domain.ProficiencyBeginner
	if in.Profile != nil && domain.IsValidProficiencyLevel(in.Profile.ProficiencyLevel) {
		level = in.Profile.ProficiencyLevel
	}
	fmt.Fprintf(&sb, "Learner level: %s\n", level.Describe())
	if in.Profile != nil && len(in.Profile.Interests) > 0 {
		fmt.Fprintf(&sb, "Learner interests: %s\n", strings.Join(in.Profile.Interests, ", "))
	}
	if in.Profile != nil && len(in.Profile.Weaknesses) > 0 {
		fmt.Fprintf(&sb, "Topics the learner struggles with: %s\n", strings.Join(in.Profile.Weaknesses, ", "))
	}

	sb.WriteString("\n## Course excerpts\n")
	for i, sf := range in.Fragments {
		f := sf.Fragment
		source := f.SourceTitle
		if source == "" {
			source = in.Title
		}
		content, cut := truncateRunes(f.Content, b.pipeline.FragmentMaxChars)
		if cut {
			content += " " + truncatedMarker
		}
		fmt.Fprintf(&sb, "### Excerpt %d (source: %s)\n%s\n\n", i+1, source, content)
	}

	targets := b.Targets(in.QuestionCount)
	sb.WriteString("## Questions to write\n")
	fmt.Fprintf(&sb, "Write exactly %d questions:\n", in.QuestionCount)
	fmt.Fprintf(&sb, "- %d of type %s (one correct option among four)\n", targets.SingleChoice, domain.QuestionTypeSingleChoice)
	if targets.MultipleChoice > 0 {
		fmt.Fprintf(&sb, "- %d of type %s (correctAnswer lists every correct option, comma separated)\n", targets.MultipleChoice, domain.QuestionTypeMultipleChoice)
	}
	if targets.TrueFalse > 0 {
		fmt.Fprintf(&sb, "- %d of type %s (options are exactly \"%s\" and \"%s\")\n", targets.TrueFalse, domain.QuestionTypeTrueFalse, domain.TrueLabel, domain.FalseLabel)
	}
	sb.WriteString("The correctAnswer of a single choice question must repeat one option word for word.\n\n")

	sb.WriteString("## Example of one finished question\n")
	example, _ := json.MarshalIndent(quiz.ExampleQuestion, "", "  ")
	sb.Write(example)
	sb.WriteString("\nDo not reuse this example. Write new questions from the excerpts.\n\n")

	sb.WriteString("## Output format\n")
	sb.WriteString("Answer with a single JSON object and nothing else. Replace every <PLACEHOLDER> with real content:\n")
	sb.WriteString(quiz.OutputSchema)
	sb.WriteString("\n")

	return sb.String()
}

// Targets splits n questions by the configured distribution. Multiple choice and
// true/false shares round down; single choice takes the remainder and at least one.
func (b *PromptBuilder) Targets(n int) TypeTargets {
	if n < 1 {
		n = 1
	}
	dist := b.pipeline.Distribution
	t := TypeTargets{
		MultipleChoice: int(math.Floor(float64(n) * dist.MultipleChoice)),
		TrueFalse:      int(math.Floor(float64(n) * dist.TrueFalse)),
	}
	t.SingleChoice = n - t.MultipleChoice - t.TrueFalse
	for t.SingleChoice < 1 {
		if t.MultipleChoice >= t.TrueFalse && t.MultipleChoice > 0 {
			t.MultipleChoice--
		} else {
			t.TrueFalse--
		}
		t.SingleChoice++
	}
	return t
}
