package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"optimg/internal/transcoder"
	"optimg/internal/tui"
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Print the summary of a JSON report written with --report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := transcoder.ReadReport(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s (%s → %s)\n", report.RunID, report.SourceRoot, report.OutputRoot)
		fmt.Fprintf(out, "Finished %s in %s\n",
			report.FinishedAt.Format("2006-01-02 15:04:05"),
			report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		)
		fmt.Fprintln(out, tui.RenderSummary(tui.ReportRows(report)))
		if failures := tui.RenderFailures(report); failures != "" {
			fmt.Fprintln(out, failures)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
