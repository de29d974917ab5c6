package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Question mirrors a generated question in API responses.
type Question struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// GenerationStats mirrors the per-stage question counts.
type GenerationStats struct {
	Requested int `json:"requested"`
	Parsed    int `json:"parsed"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Fragments int `json:"fragments"`
}

// QuizResponse is the body of every quiz generation endpoint.
type QuizResponse struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []Question       `json:"questions"`
	Outcome     string           `json:"outcome"`
	Cause       string           `json:"cause,omitempty"`
	Stats       *GenerationStats `json:"stats,omitempty"`
	DurationMS  int64            `json:"duration_ms,omitempty"`
}

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func decodeData(resp *APIResponse, v any) error {
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printQuiz(w io.Writer, q *QuizResponse) {
	fmt.Fprintf(w, "%s\n", q.Title)
	if q.Description != "" {
		fmt.Fprintf(w, "%s\n", q.Description)
	}
	if q.Outcome == "degraded" {
		fmt.Fprintf(w, "\nWarning: generation failed, fallback questions returned (%s)\n", q.Cause)
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))

	for i, question := range q.Questions {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, question.Type, question.Text)
		for _, opt := range question.Options {
			fmt.Fprintf(w, "   - %s\n", opt)
		}
		fmt.Fprintf(w, "   Answer: %s\n", question.CorrectAnswer)
		if question.Explanation != "" {
			fmt.Fprintf(w, "   %s\n", question.Explanation)
		}
	}

	if q.Stats != nil {
		fmt.Fprintf(w, "\n%d questions (%d parsed, %d invalid) from %d fragments in %dms\n",
			len(q.Questions), q.Stats.Parsed, q.Stats.Invalid, q.Stats.Fragments, q.DurationMS)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
