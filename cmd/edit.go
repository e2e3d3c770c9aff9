package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/session"
	"github.com/fakeyudi/proofread/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open the interactive editor with live highlighting",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
			return NewCLIError("edit needs an interactive terminal", "Use 'proofread check' for pipes and scripts", nil)
		}

		var path, text string
		if len(args) == 1 {
			path = args[0]
			data, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			text = string(data)
		}

		// The terminal belongs to the editor; logs go to a file.
		l, closeLog, err := fileLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		hist, err := openHistory(l)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(hist, l)
		if err != nil {
			return err
		}
		sess := session.New(text, policy())
		return tui.Run(tui.New(sess, orch, hist, tui.Options{Path: path, Logger: l}))
	},
}

// fileLogger returns a logger writing to proofread.log in the data directory.
func fileLogger() (*slog.Logger, func(), error) {
	dir, err := history.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "proofread.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), func() { f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(editCmd)
}
