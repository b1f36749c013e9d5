package cmd

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"optimg/internal/transcoder"
	"optimg/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan [source] [output]",
	Short: "Show what optimize would write, plus metadata the conversion drops",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		rootsFromArgs(args, &cfg.Source, &cfg.Output)
		cfg.Normalize()
		if err := validate(cfg); err != nil {
			return err
		}

		plan, err := transcoder.Plan(cfg.Source, cfg.Output, transcoder.OptionsFromConfig(cfg))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, job := range plan.Jobs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s %s\n",
				scanFileStyle.Render(job.RelPath),
				scanDimStyle.Render("→"),
				scanValueStyle.Render(job.OutRel),
			)

			kind, findings, err := transcoder.Inspect(job.Source)
			if err != nil {
				fmt.Fprintf(out, "  %s %s\n", scanBulletStyle.Render("-"), scanWarnStyle.Render("unreadable: "+err.Error()))
				continue
			}
			if !kind.Raster() {
				fmt.Fprintf(out, "  %s %s\n", scanBulletStyle.Render("-"), scanWarnStyle.Render("not a JPEG or PNG ("+kind.String()+")"))
				continue
			}
			cats := findings.Categories()
			if findings.Orientation > 1 {
				cats = append(cats, fmt.Sprintf("Orientation %d (applied to pixels)", findings.Orientation))
			}
			if len(cats) == 0 {
				fmt.Fprintf(out, "  %s %s\n", scanBulletStyle.Render("-"), scanDimStyle.Render("no metadata"))
				continue
			}
			fmt.Fprintf(out, "  %s\n", scanCategoryStyle.Render("dropped on conversion:"))
			for _, c := range cats {
				fmt.Fprintf(out, "    %s %s\n", scanBulletStyle.Render("-"), scanValueStyle.Render(c))
			}
		}

		if len(plan.Collisions) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, scanWarnStyle.Render("Collisions:"))
			outputs := make([]string, 0, len(plan.Collisions))
			for o := range plan.Collisions {
				outputs = append(outputs, o)
			}
			sort.Strings(outputs)
			for _, o := range outputs {
				fmt.Fprintf(out, "  %s %s ← %v\n", scanBulletStyle.Render("-"), scanValueStyle.Render(o), plan.Collisions[o])
			}
		}
		for _, f := range plan.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", scanWarnStyle.Render("✗"), f.RelPath, f.Error)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Images discovered", Value: fmt.Sprintf("%d", plan.Discovered)},
			{Label: "Would convert", Value: fmt.Sprintf("%d", len(plan.Jobs))},
			{Label: "Would fail", Value: fmt.Sprintf("%d", len(plan.Failures))},
			{Label: "Would skip", Value: fmt.Sprintf("%d", len(plan.Skips))},
		}))
		return nil
	},
}

var (
	scanFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	scanValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanBulletStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanWarnStyle     = lipgloss.NewStyle().Foreground(tui.ColorWarn)
)

func init() {
	rootCmd.AddCommand(scanCmd)
}
