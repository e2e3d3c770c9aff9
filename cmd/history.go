package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/report"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show or clear past analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListCmd.RunE(cmd, args)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past analyses, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		entries := hist.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No analyses recorded yet.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tCORRECTIONS\tTEXT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
				shortID(e.ID),
				e.Time().Format("2006-01-02 15:04"),
				len(e.Result.Corrections),
				snippet(e.SourceText, 48),
			)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one past analysis with its corrections highlighted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		e, ok := hist.Find(args[0])
		if !ok {
			return NewCLIError("history entry not found: "+args[0], "Run 'proofread history' to list entries", nil)
		}

		format := historyFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		renderer, err := report.NewRenderer(format, false)
		if err != nil {
			return mapError(err)
		}
		text, res := history.Select(e)
		rep := report.New("history:"+shortID(e.ID), text, res, e.Time())
		rep.EntryID = e.ID
		data, err := renderer.Render(rep)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		n := hist.Len()
		if err := hist.Save(hist.Clear()); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d entr%s.\n", n, plural(n, "y", "ies"))
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// snippet shortens s to n runes on a single line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "output format: text, markdown, json or yaml")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
