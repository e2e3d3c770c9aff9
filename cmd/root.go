package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/analysis"
	"github.com/fakeyudi/proofread/internal/config"
	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/oracle"
	"github.com/fakeyudi/proofread/internal/profile"
	"github.com/fakeyudi/proofread/internal/session"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// logger is the command-wide structured logger.
var logger = slog.Default()

var (
	verbose      bool
	providerFlag string
)

var rootCmd = &cobra.Command{
	Use:          "proofread",
	Short:        "Check text with an analysis oracle and review highlighted corrections",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to proofread! Looks like this is your first time.")
			if err := runSetup(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
		}
		return loadSettings(cmd.ErrOrStderr())
	},
}

// loadSettings merges config files and the profile and sets up logging.
func loadSettings(logOut io.Writer) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	activeProfile = nil
	if profile.Exists() {
		p, err := profile.Load()
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		activeProfile = p
	}

	global, err := config.LoadGlobal()
	if err != nil {
		return mapError(fmt.Errorf("loading global config: %w", err))
	}
	project, err := config.LoadProject()
	if err != nil {
		return mapError(fmt.Errorf("loading project config: %w", err))
	}
	cfg = config.Merge(global, project)

	// Profile values fill in config gaps.
	defaults := config.Defaults()
	if activeProfile != nil {
		if cfg.Model == defaults.Model && activeProfile.Model != "" {
			cfg.Model = activeProfile.Model
		}
		if cfg.APIKeyEnv == defaults.APIKeyEnv && activeProfile.APIKeyEnv != "" {
			cfg.APIKeyEnv = activeProfile.APIKeyEnv
		}
		if cfg.DefaultFormat == defaults.DefaultFormat && activeProfile.DefaultFormat != "" {
			cfg.DefaultFormat = activeProfile.DefaultFormat
		}
	}
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	logger.Debug("configuration loaded", "provider", cfg.Provider, "model", cfg.Model, "stale_threshold", cfg.Threshold())
	return nil
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ce *CLIError
		if errors.As(err, &ce) && ce.Hint != "" {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", ce.Hint)
		}
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// GetProfile returns the active user profile.
func GetProfile() *profile.Profile {
	return activeProfile
}

func policy() session.Policy {
	return session.Policy{StaleThreshold: cfg.Threshold()}
}

// credentials returns the key source for the configured provider; nil when
// the provider needs none.
func credentials() oracle.CredentialSource {
	if cfg.Provider == "mock" {
		return nil
	}
	return oracle.EnvCredential(cfg.APIKeyEnv)
}

func newProvider() (oracle.Provider, error) {
	creds := credentials()
	var p oracle.Provider
	if cfg.Endpoint != "" && (cfg.Provider == "gemini" || cfg.Provider == "") {
		p = oracle.NewGeminiProviderWithClient(cfg.Model, creds, cfg.Endpoint, nil)
	} else {
		var err error
		p, err = oracle.NewProvider(cfg.Provider, cfg.Model, creds)
		if err != nil {
			return nil, err
		}
	}
	return oracle.NewResilientProvider(p, oracle.ResilienceConfig{
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.Timeout(),
	}), nil
}

// openHistory loads the persisted history.
func openHistory(l *slog.Logger) (*history.Store, error) {
	backend, err := history.NewDiskBackend(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	store := history.NewStore(backend, l)
	store.Load()
	return store, nil
}

func newOrchestrator(hist *history.Store, l *slog.Logger) (*analysis.Orchestrator, error) {
	p, err := newProvider()
	if err != nil {
		return nil, mapError(err)
	}
	return analysis.New(p, credentials(), hist, l), nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "oracle provider (gemini, mock)")
}
