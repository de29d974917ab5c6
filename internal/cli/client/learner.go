package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// LearnerProfile mirrors the learner endpoints' response.
type LearnerProfile struct {
	UserID     string   `json:"user_id"`
	Level      string   `json:"level"`
	Interests  []string `json:"interests"`
	Weaknesses []string `json:"weaknesses"`
	UpdatedAt  string   `json:"updated_at"`
}

// LearnerCmd creates the learner parent command.
func LearnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learner",
		Short: "Inspect and update learner profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <learnerID>",
		Short: "Show a learner profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return learnerCall(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Get(learnerPath(args[0], ""))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "level <learnerID> <level>",
		Short: "Set the proficiency level (beginner, intermediate, advanced, expert)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return learnerCall(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Put(learnerPath(args[0], "/level"), map[string]string{"level": args[1]})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "weakness <learnerID> <topic>",
		Short: "Record a topic the learner struggles with",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return learnerCall(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Post(learnerPath(args[0], "/weaknesses"), map[string]string{"topic": args[1]})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "interest <learnerID> <topic>",
		Short: "Record a topic the learner engaged with",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return learnerCall(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Post(learnerPath(args[0], "/interests"), map[string]string{"topic": args[1]})
			})
		},
	})

	return cmd
}

func learnerPath(learnerID, suffix string) string {
	return "/learners/" + url.PathEscape(learnerID) + suffix
}

func learnerCall(cmd *cobra.Command, call func(api *APIClient) (*APIResponse, error)) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := call(api)
	if err != nil {
		return fmt.Errorf("learner request failed: %w", err)
	}

	var profile LearnerProfile
	if err := decodeData(resp, &profile); err != nil {
		return err
	}
	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), profile)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Learner: %s\n", profile.UserID)
	fmt.Fprintf(out, "Level: %s\n", profile.Level)
	fmt.Fprintf(out, "Interests: %s\n", joinOrNone(profile.Interests))
	fmt.Fprintf(out, "Weaknesses: %s\n", joinOrNone(profile.Weaknesses))
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
