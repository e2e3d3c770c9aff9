package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/atomicfile"
	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/report"
	"github.com/fakeyudi/proofread/internal/session"
)

var (
	applyFile   string
	applyEntry  string
	applyReport string
)

var applyCmd = &cobra.Command{
	Use:   "apply <index>",
	Short: "Apply one correction from a past analysis to a file",
	Long: `Apply correction <index> (1-based, as listed by 'proofread check') to --file.
Corrections come from the most recent history entry, the entry named by
--entry, or a report written by 'proofread check --output'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 1 {
			return NewCLIError("invalid correction index "+strconv.Quote(args[0]), "Use the number shown next to the correction, starting at 1", nil)
		}
		if applyFile == "" {
			return NewCLIError("no file given", "Pass the file to edit with --file", nil)
		}
		data, err := os.ReadFile(applyFile)
		if err != nil {
			return err
		}
		text := string(data)

		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		source, res, err := loadCorrections(hist)
		if err != nil {
			return err
		}
		if source != text {
			logger.Warn("file changed since it was analyzed; stale spans will be skipped", "file", applyFile)
		}

		sess := session.New(text, policy())
		sess.Restore(text, res)
		out, ok := sess.ApplySingle(idx - 1)
		if !ok {
			return NewCLIError(fmt.Sprintf("no correction #%d", idx),
				fmt.Sprintf("The analysis has %d correction(s)", len(res.Corrections)), nil)
		}
		c := res.Corrections[idx-1]

		w := cmd.OutOrStdout()
		if out.Stale() {
			fmt.Fprintf(w, "%q is no longer in %s; correction dismissed.\n", c.OriginalSpan, applyFile)
		} else {
			if err := atomicfile.Write(applyFile, []byte(sess.Buffer())); err != nil {
				return fmt.Errorf("write %s: %w", applyFile, err)
			}
			fmt.Fprintf(w, "✓ Replaced %d occurrence(s) of %q with %q in %s\n", out.Replaced, c.OriginalSpan, c.SuggestedSpan, applyFile)
		}

		// The narrowed set becomes the latest entry, so the numbers printed
		// below are the ones the next apply resolves against.
		_, snap := hist.Record(sess.Buffer(), out.Result)
		if err := hist.Save(snap); err != nil {
			logger.Warn("remaining corrections not saved", "error", err)
		}
		printCorrections(w, sess.Corrections())
		return nil
	},
}

// loadCorrections returns the analyzed text and result to apply from.
func loadCorrections(hist *history.Store) (string, correction.Result, error) {
	if applyReport != "" {
		data, err := os.ReadFile(applyReport)
		if err != nil {
			return "", correction.Result{}, err
		}
		rep, err := report.ParserFor(applyReport, data).Parse(data)
		if err != nil {
			return "", correction.Result{}, err
		}
		return rep.Text, rep.Result, nil
	}

	var e history.Entry
	if applyEntry != "" {
		found, ok := hist.Find(applyEntry)
		if !ok {
			return "", correction.Result{}, NewCLIError("history entry not found: "+applyEntry, "Run 'proofread history' to list entries", nil)
		}
		e = found
	} else {
		entries := hist.Entries()
		if len(entries) == 0 {
			return "", correction.Result{}, NewCLIError("no analyses in history", "Run 'proofread check <file>' first", nil)
		}
		e = entries[0]
	}
	text, res := history.Select(e)
	return text, res, nil
}

// printCorrections lists the open corrections, numbered from 1.
func printCorrections(w io.Writer, set correction.Set) {
	if len(set) == 0 {
		fmt.Fprintln(w, "No corrections left.")
		return
	}
	fmt.Fprintf(w, "%d correction(s) left:\n", len(set))
	for i, c := range set {
		fmt.Fprintf(w, "  %d. [%s] %q → %q\n", i+1, c.DisplayLabel(), c.OriginalSpan, c.SuggestedSpan)
	}
}

func init() {
	applyCmd.Flags().StringVar(&applyFile, "file", "", "file to apply the correction to")
	applyCmd.Flags().StringVar(&applyEntry, "entry", "", "history entry id (prefix) to take corrections from")
	applyCmd.Flags().StringVar(&applyReport, "report", "", "report file (markdown, json or yaml) to take corrections from")
	rootCmd.AddCommand(applyCmd)
}
