package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/quizforge/internal/cli"
	"github.com/cloo-solutions/quizforge/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizforge",
		Short: "Quizforge CLI - Quiz generation from course material",
		Long: `Quizforge CLI generates quizzes from documents and course material.

Environment variables:
  QUIZFORGE_API_KEY     API key for authentication
  QUIZFORGE_API_URL     API base URL (default: http://localhost:8080)
  QUIZFORGE_CONFIG_DIR  Directory holding profile.json (default: user config dir)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.GenerateCmd())
	rootCmd.AddCommand(client.CourseCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.LearnerCmd())
	rootCmd.AddCommand(client.AuthCmd())

	if target, ok := cli.HelpJSONTarget(rootCmd, os.Args[1:]); ok {
		if err := cli.WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
