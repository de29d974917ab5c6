package client

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

type generateQuizRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Count   int    `json:"count,omitempty"`
}

// GenerateCmd creates the generate command.
func GenerateCmd() *cobra.Command {
	var (
		file  string
		text  string
		title string
		count int
		safe  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz from a document or text",
		Long: `Generates a quiz from an uploaded document (--file) or pasted text (--text, "-" reads stdin).

With --safe a failed generation returns fallback questions instead of an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (text == "") {
				return errors.New("exactly one of --file or --text is required")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp *APIResponse
			if file != "" {
				fields := map[string]string{"safe": strconv.FormatBool(safe)}
				if count > 0 {
					fields["count"] = strconv.Itoa(count)
				}
				resp, err = api.PostFile("/quizzes/generate/file", file, fields)
			} else {
				if title == "" {
					return errors.New("--title is required with --text")
				}
				content, readErr := readText(cmd.InOrStdin(), text)
				if readErr != nil {
					return readErr
				}
				path := "/quizzes/generate"
				if safe {
					path += "/safe"
				}
				resp, err = api.Post(path, generateQuizRequest{Title: title, Content: content, Count: count})
			}
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			var quiz QuizResponse
			if err := decodeData(resp, &quiz); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), quiz)
			}
			printQuiz(cmd.OutOrStdout(), &quiz)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to generate from (PDF, spreadsheet or text)")
	cmd.Flags().StringVar(&text, "text", "", "Text to generate from, or - for stdin")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Quiz title and topic")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of questions (server default when 0)")
	cmd.Flags().BoolVar(&safe, "safe", false, "Return fallback questions instead of failing")

	return cmd
}

func readText(stdin io.Reader, text string) (string, error) {
	if text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("stdin is empty")
	}
	return string(data), nil
}

