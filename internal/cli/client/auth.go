package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd groups the commands that manage the saved profile.
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the saved server profile",
		Long: `Save, clear, and inspect the server address, API key and default learner
used by the other commands. Flags and QUIZFORGE_API_KEY/QUIZFORGE_API_URL
take precedence over the saved profile.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	var profile Profile

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the server address and API key",
		Long: `Saves the profile to $QUIZFORGE_CONFIG_DIR/profile.json (or the user config directory).

The key is read from stdin when --key is omitted. Use --anonymous for servers
running without QUIZFORGE_API_KEYS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			anonymous, _ := cmd.Flags().GetBool("anonymous")
			if !anonymous && profile.APIKey == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				key, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				profile.APIKey = key
			}
			return runAuthLogin(cmd.OutOrStdout(), profile, anonymous)
		},
	}

	cmd.Flags().StringVar(&profile.APIKey, "key", "", "API key listed in the server's QUIZFORGE_API_KEYS")
	cmd.Flags().StringVar(&profile.APIURL, "url", defaultAPIURL, "Server base URL")
	cmd.Flags().StringVar(&profile.Learner, "learner", "", "Default learner for course generation")
	cmd.Flags().Bool("anonymous", false, "Save no key")

	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteProfile(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile removed")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which server and key the CLI will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := ResolveConnection(cmd)
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), newAuthStatus(conn))
			}
			printAuthStatus(cmd.OutOrStdout(), conn)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogin(w io.Writer, profile Profile, anonymous bool) error {
	profile.APIKey = strings.TrimSpace(profile.APIKey)
	profile.APIURL = strings.TrimRight(strings.TrimSpace(profile.APIURL), "/")
	profile.Learner = strings.TrimSpace(profile.Learner)

	if profile.APIURL == "" {
		return fmt.Errorf("--url cannot be empty")
	}
	if anonymous {
		profile.APIKey = ""
	} else if err := validateAPIKey(profile.APIKey); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}

	if err := SaveProfile(&profile); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved profile for %s\n", profile.APIURL)
	return nil
}

type authStatus struct {
	APIURL    string `json:"api_url"`
	URLSource Source `json:"url_source"`
	APIKey    string `json:"api_key,omitempty"`
	KeySource Source `json:"key_source"`
	Anonymous bool   `json:"anonymous"`
	Learner   string `json:"learner,omitempty"`
}

func newAuthStatus(conn Connection) authStatus {
	return authStatus{
		APIURL:    conn.APIURL,
		URLSource: conn.URLSource,
		APIKey:    maskAPIKey(conn.APIKey),
		KeySource: conn.KeySource,
		Anonymous: conn.APIKey == "",
		Learner:   conn.Learner,
	}
}

func printAuthStatus(w io.Writer, conn Connection) {
	fmt.Fprintf(w, "Server:  %s (%s)\n", conn.APIURL, conn.URLSource)
	if conn.APIKey == "" {
		fmt.Fprintln(w, "API key: none, requests are anonymous")
	} else {
		fmt.Fprintf(w, "API key: %s (%s)\n", maskAPIKey(conn.APIKey), conn.KeySource)
	}
	if conn.Learner != "" {
		fmt.Fprintf(w, "Learner: %s\n", conn.Learner)
	}
}

// maskAPIKey keeps at most four characters at each end, and only for keys long enough to hide the rest.
func maskAPIKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) < 12:
		return "***"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
