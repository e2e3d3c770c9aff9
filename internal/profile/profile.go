// Package profile manages the user's persistent proofread profile.
// The profile is stored at ~/.config/proofread/profile.json and is created
// once via the interactive setup flow, then referenced on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Profile holds user-level preferences set during setup.
type Profile struct {
	Name          string `json:"name"`
	Model         string `json:"model"`
	APIKeyEnv     string `json:"api_key_env"`    // variable the key is read from
	DefaultFormat string `json:"default_format"` // "text" | "markdown" | "json" | "yaml"
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// ConfigDir returns the proofread config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "proofread"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found — run 'proofread setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard over in/out.
// If existing is non-nil, it is used as the default for each prompt (edit mode).
// The API key itself is never stored; only the variable it is read from.
func RunSetup(in io.Reader, out io.Writer, existing *Profile) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	prof := &Profile{
		APIKeyEnv:     "GEMINI_API_KEY",
		DefaultFormat: "text",
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   proofread — setup             │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	prof.Name, err = ask("  Your name (shown in reports)", prof.Name)
	if err != nil {
		return nil, err
	}

	prof.Model, err = ask("  Oracle model (blank for default)", prof.Model)
	if err != nil {
		return nil, err
	}

	prof.APIKeyEnv, err = ask("  Environment variable holding the API key", prof.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	format, err := ask("  Default output format (text/markdown/json/yaml)", prof.DefaultFormat)
	if err != nil {
		return nil, err
	}
	switch format {
	case "markdown", "json", "yaml":
		prof.DefaultFormat = format
	default:
		prof.DefaultFormat = "text"
	}

	if _, ok := os.LookupEnv(prof.APIKeyEnv); !ok {
		fmt.Fprintf(out, "\n  Note: %s is not set in this shell; export it before running 'proofread check'.\n", prof.APIKeyEnv)
	}

	fmt.Fprintln(out)
	return prof, nil
}
