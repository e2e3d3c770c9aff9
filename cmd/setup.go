package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/profile"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure proofread (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before profile exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runSetup runs the interactive setup wizard and saves the profile.
func runSetup(in io.Reader, out io.Writer) error {
	// Load existing profile as defaults if present.
	var existing *profile.Profile
	if profile.Exists() {
		p, err := profile.Load()
		if err == nil {
			existing = p
		}
	}

	prof, err := profile.RunSetup(in, out, existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := profile.Save(prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Fprintln(out, "  ✓ Profile saved.")
	fmt.Fprintln(out, "  Setup complete. Run 'proofread check <file>' or 'proofread edit' to begin.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
