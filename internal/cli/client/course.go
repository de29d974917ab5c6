package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type courseQuizRequest struct {
	Title     string `json:"title"`
	Count     int    `json:"count,omitempty"`
	LearnerID string `json:"learner_id,omitempty"`
	Safe      bool   `json:"safe,omitempty"`
}

// CourseFile mirrors an ingested course document.
type CourseFile struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	StorageKey string `json:"storage_key"`
	Degraded   bool   `json:"degraded"`
	Fragments  int    `json:"fragments"`
	CreatedAt  string `json:"created_at"`
}

// Fragment mirrors a stored course fragment.
type Fragment struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	SourceTitle string   `json:"source_title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	UsageCount  int      `json:"usage_count"`
	Embedded    bool     `json:"embedded"`
	Score       float64  `json:"score,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type FragmentPage struct {
	Items   []Fragment `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// CourseCmd creates the course parent command.
func CourseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Work with course material",
		Long:  "Upload course documents, list their fragments and generate quizzes from them",
	}

	cmd.AddCommand(courseGenerateCmd())
	cmd.AddCommand(courseUploadCmd())
	cmd.AddCommand(courseFragmentsCmd())

	return cmd
}

func courseGenerateCmd() *cobra.Command {
	var req courseQuizRequest

	cmd := &cobra.Command{
		Use:   "generate <courseID>",
		Short: "Generate a quiz from a course's material",
		Long: `Generates a quiz from a course's material.

Without --learner the learner saved by "quizforge auth login --learner" is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := ResolveConnection(cmd)
			if err != nil {
				return err
			}
			if req.LearnerID == "" {
				req.LearnerID = conn.Learner
			}
			api := NewAPIClientWithConfig(conn.APIKey, conn.APIURL)

			resp, err := api.Post("/courses/"+url.PathEscape(args[0])+"/quizzes/generate", req)
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

	cmd.Flags().StringVarP(&req.Title, "title", "t", "", "Quiz title and topic (required)")
	cmd.Flags().IntVarP(&req.Count, "count", "n", 0, "Number of questions (server default when 0)")
	cmd.Flags().StringVar(&req.LearnerID, "learner", "", "Personalize for this learner")
	cmd.Flags().BoolVar(&req.Safe, "safe", false, "Return fallback questions instead of failing")
	cmd.MarkFlagRequired("title")

	return cmd
}

func courseUploadCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "upload <courseID> <file>",
		Short: "Upload a document into a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			fields := map[string]string{}
			if len(tags) > 0 {
				fields["tags"] = strings.Join(tags, ",")
			}

			resp, err := api.PostFile("/courses/"+url.PathEscape(args[0])+"/files", args[1], fields)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			var file CourseFile
			if err := decodeData(resp, &file); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), file)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s (%d bytes)\n", file.Filename, file.SizeBytes)
			fmt.Fprintf(out, "File ID: %s\n", file.ID)
			fmt.Fprintf(out, "Fragments: %d\n", file.Fragments)
			if file.Degraded {
				fmt.Fprintln(out, "Warning: text could not be extracted, a placeholder was stored")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag applied to every fragment (repeatable)")

	return cmd
}

func courseFragmentsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "fragments <courseID>",
		Short: "List a course's fragments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			path := "/courses/" + url.PathEscape(args[0]) + "/fragments"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var page FragmentPage
			if err := decodeData(resp, &page); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), page)
			}

			out := cmd.OutOrStdout()
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No fragments found.")
				return nil
			}
			for _, f := range page.Items {
				state := "pending"
				if f.Embedded {
					state = "embedded"
				}
				fmt.Fprintf(out, "%s  %-8s  %s\n", f.ID, state, truncate(f.Content, 80))
			}
			if page.HasMore && page.Cursor != "" {
				fmt.Fprintf(out, "\nMore fragments available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Page size (server default when 0)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}
