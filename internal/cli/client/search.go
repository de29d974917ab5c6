package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query     string `json:"query"`
	CourseID  string `json:"course_id,omitempty"`
	LearnerID string `json:"learner_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []Fragment `json:"results"`
	Count   int        `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var req SearchRequest

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search course fragments",
		Long:  "Runs the hybrid keyword and vector retrieval used to ground quiz generation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = args[0]

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/fragments/search", req)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var searchResp SearchResponse
			if err := decodeData(resp, &searchResp); err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), searchResp)
			}

			out := cmd.OutOrStdout()
			if len(searchResp.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}

			fmt.Fprintf(out, "Found %d results:\n\n", len(searchResp.Results))
			for i, result := range searchResp.Results {
				fmt.Fprintf(out, "%d. %s (%.2f)\n", i+1, result.SourceTitle, result.Score)
				fmt.Fprintf(out, "   %s\n", truncate(result.Content, 100))
				if len(result.Tags) > 0 {
					fmt.Fprintf(out, "   Tags: %s\n", strings.Join(result.Tags, ", "))
				}
				fmt.Fprintf(out, "   ID: %s\n", result.ID)
				if i < len(searchResp.Results)-1 {
					fmt.Fprintln(out, strings.Repeat("-", 40))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.CourseID, "course", "c", "", "Restrict to one course")
	cmd.Flags().StringVar(&req.LearnerID, "learner", "", "Boost the learner's interests")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 0, "Maximum number of results")

	return cmd
}
