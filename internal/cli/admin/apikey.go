package admin

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/spf13/cobra"
)

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Generate bearer keys for QUIZFORGE_API_KEYS",
	}

	cmd.AddCommand(APIKeyGenerateCmd())

	return cmd
}

func APIKeyGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key",
		Long:  "Print a fresh random API key. Add it to QUIZFORGE_API_KEYS to enable it.",
		RunE:  runAPIKeyGenerate,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyGenerate(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")

	token, err := service.GenerateAPIToken()
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		data := map[string]string{"token": token}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(out, "Token: %s\n", token)
	fmt.Fprintln(out, "\nAppend it to QUIZFORGE_API_KEYS (comma-separated) and restart the server.")
	return nil
}
