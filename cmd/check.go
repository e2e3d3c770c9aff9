package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/proofread/internal/analysis"
	"github.com/fakeyudi/proofread/internal/atomicfile"
	"github.com/fakeyudi/proofread/internal/report"
	"github.com/fakeyudi/proofread/internal/session"
)

var (
	checkFormat   string
	checkOutput   string
	checkApplyAll bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file|-]",
	Short: "Analyze text and print it with corrections highlighted",
	Long: `Analyze a file, or stdin when the argument is "-" or missing, and print the
text with every correction span marked followed by the list of corrections.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, text, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if checkApplyAll && source == "-" {
			return NewCLIError("--apply-all needs a file", "Pass a file path instead of reading stdin", nil)
		}

		format := checkFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		color := (format == "" || format == "text") && checkOutput == "" && term.IsTerminal(os.Stdout.Fd())
		renderer, err := report.NewRenderer(format, color)
		if err != nil {
			return mapError(err)
		}

		hist, err := openHistory(logger)
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(hist, logger)
		if err != nil {
			return err
		}

		sess := session.New(text, policy())
		out, err := orch.Run(cmd.Context(), sess)
		if err != nil {
			return mapError(err)
		}

		rep := newReport(source, text, out, orch)
		data, err := renderer.Render(rep)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if checkOutput != "" {
			if err := atomicfile.Write(checkOutput, data); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s\n", checkOutput)
		} else {
			cmd.OutOrStdout().Write(data)
		}

		if checkApplyAll {
			n := len(sess.Corrections())
			if !sess.ApplyAll() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Nothing to apply.")
				return nil
			}
			if err := atomicfile.Write(source, []byte(sess.Buffer())); err != nil {
				return fmt.Errorf("write %s: %w", source, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Applied %d correction(s) to %s\n", n, source)
		}
		return nil
	},
}

// readInput returns the source name and text for a file argument, or for
// stdin when the argument is "-" or absent.
func readInput(stdin io.Reader, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "-", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("file not found: %s", args[0])
		}
		return "", "", err
	}
	return args[0], string(data), nil
}

func newReport(source, text string, out analysis.Outcome, orch *analysis.Orchestrator) *report.Report {
	rep := report.New(source, text, out.Result, time.Now())
	rep.Provider = orch.ProviderID()
	rep.EntryID = out.Entry.ID
	if p := GetProfile(); p != nil {
		rep.Author = p.Name
	}
	return rep
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "output format: text, markdown, json or yaml (default from config)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "write the report to a file instead of stdout")
	checkCmd.Flags().BoolVar(&checkApplyAll, "apply-all", false, "write the fully corrected text back to the file")
	rootCmd.AddCommand(checkCmd)
}
