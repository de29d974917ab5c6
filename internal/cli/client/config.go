package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIKey    = "QUIZFORGE_API_KEY"
	envAPIURL    = "QUIZFORGE_API_URL"
	envConfigDir = "QUIZFORGE_CONFIG_DIR"

	defaultAPIURL = "http://localhost:8080"
	profileFile   = "profile.json"
)

// Profile is what `quizforge auth login` persists between runs.
type Profile struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key,omitempty"`
	// Learner personalizes course generation when --learner is not given.
	Learner string `json:"learner,omitempty"`
}

// ProfilePath honours QUIZFORGE_CONFIG_DIR, falling back to the user config directory.
func ProfilePath() (string, error) {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return filepath.Join(dir, profileFile), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "quizforge", profileFile), nil
}

// LoadProfile returns nil without error when no profile has been saved.
func LoadProfile() (*Profile, error) {
	path, err := ProfilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// SaveProfile writes the profile readable by the owner only, since it may hold a key.
func SaveProfile(p *Profile) error {
	if p == nil {
		return errors.New("profile cannot be nil")
	}
	path, err := ProfilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// DeleteProfile is a no-op when nothing is saved.
func DeleteProfile() error {
	path, err := ProfilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// validateAPIKey mirrors what the server can accept: QUIZFORGE_API_KEYS is a
// comma separated list of trimmed keys sent back as a bearer header.
func validateAPIKey(key string) error {
	switch {
	case key == "":
		return errors.New("API key is empty")
	case key != strings.TrimSpace(key):
		return errors.New("API key has surrounding whitespace")
	case strings.ContainsRune(key, ','):
		return errors.New("API key cannot contain a comma")
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		return errors.New("API key contains control characters")
	}
	return nil
}

// Source says where a connection setting came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceProfile Source = "profile"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Connection is the resolved server address and key. Each setting is looked
// up on its own: flag, then environment (.env included), then profile.
type Connection struct {
	APIURL    string
	URLSource Source
	APIKey    string
	KeySource Source
	Learner   string
}

// ResolveConnection reads --api-key/--api-url from cmd when it is non-nil.
func ResolveConnection(cmd *cobra.Command) (Connection, error) {
	_ = godotenv.Load()

	conn := Connection{URLSource: SourceNone, KeySource: SourceNone}
	if cmd != nil {
		if v, err := cmd.Flags().GetString("api-key"); err == nil && v != "" {
			conn.APIKey, conn.KeySource = v, SourceFlag
		}
		if v, err := cmd.Flags().GetString("api-url"); err == nil && v != "" {
			conn.APIURL, conn.URLSource = v, SourceFlag
		}
	}
	if conn.APIKey == "" {
		if v := os.Getenv(envAPIKey); v != "" {
			conn.APIKey, conn.KeySource = v, SourceEnv
		}
	}
	if conn.APIURL == "" {
		if v := os.Getenv(envAPIURL); v != "" {
			conn.APIURL, conn.URLSource = v, SourceEnv
		}
	}

	profile, err := LoadProfile()
	if err != nil {
		return Connection{}, err
	}
	if profile != nil {
		if conn.APIKey == "" && profile.APIKey != "" {
			conn.APIKey, conn.KeySource = profile.APIKey, SourceProfile
		}
		if conn.APIURL == "" && profile.APIURL != "" {
			conn.APIURL, conn.URLSource = profile.APIURL, SourceProfile
		}
		conn.Learner = profile.Learner
	}

	// Servers without QUIZFORGE_API_KEYS accept anonymous calls, so only the URL gets a default.
	if conn.APIURL == "" {
		conn.APIURL, conn.URLSource = defaultAPIURL, SourceDefault
	}
	return conn, nil
}
