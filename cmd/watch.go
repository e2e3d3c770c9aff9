package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/analysis"
	"github.com/fakeyudi/proofread/internal/report"
	"github.com/fakeyudi/proofread/internal/session"
	"github.com/fakeyudi/proofread/internal/watch"
)

var watchReanalyze bool

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Analyze a file, then re-render its highlights on every save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(hist, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := cmd.OutOrStdout()
		r := &report.TextRenderer{Color: term.IsTerminal(os.Stdout.Fd())}
		sess := session.New(string(data), policy())
		if err := analyzeAndPrint(ctx, w, sess, orch, path, r); err != nil {
			var ae *analysis.Error
			if errors.As(err, &ae) && ae.NeedsSetup() {
				return mapError(err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "analysis failed: %v\n", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (ctrl+c to stop)…\n", path)

		return watch.Watch(ctx, path, sess, func(c watch.Change) {
			if c.Dropped && watchReanalyze {
				if err := analyzeAndPrint(ctx, w, sess, orch, path, r); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "analysis failed: %v\n", err)
				}
				return
			}
			if c.Dropped {
				fmt.Fprintln(cmd.ErrOrStderr(), "Text changed; corrections cleared.")
			}
			printSession(w, sess, path, r)
		}, logger)
	},
}

func analyzeAndPrint(ctx context.Context, w io.Writer, sess *session.Session, orch *analysis.Orchestrator, path string, r report.Renderer) error {
	if _, err := orch.Run(ctx, sess); err != nil {
		return err
	}
	printSession(w, sess, path, r)
	return nil
}

// printSession renders the session's current buffer and open corrections.
func printSession(w io.Writer, sess *session.Session, path string, r report.Renderer) {
	fmt.Fprintln(w, "──────────")
	res, ok := sess.Result()
	if !ok {
		fmt.Fprintln(w, sess.Buffer())
		fmt.Fprintln(w, "(no open analysis)")
		return
	}
	rep := report.New(path, sess.Buffer(), res, time.Now())
	data, err := r.Render(rep)
	if err != nil {
		logger.Warn("failed to render watched file", "file", path, "error", err)
		return
	}
	w.Write(data)
}

func init() {
	watchCmd.Flags().BoolVar(&watchReanalyze, "reanalyze", false, "run a new analysis whenever an edit clears the corrections")
	rootCmd.AddCommand(watchCmd)
}
