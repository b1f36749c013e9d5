package cmd

import (
	"github.com/spf13/cobra"

	"optimg/internal/config"
	"optimg/internal/transcoder"
)

var (
	phMaxWidth int
	phQuality  int
	phBlur     float64
	phWorkers  int
	phReport   string
)

var placeholderCmd = &cobra.Command{
	Use:   "placeholder [flags] [source] [output]",
	Short: "Generate tiny blurred WebP placeholders shown while photos load",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cfgFile, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("max-width") {
			cfg.Placeholder.MaxWidth = phMaxWidth
		}
		if flags.Changed("quality") {
			cfg.Placeholder.Quality = phQuality
		}
		if flags.Changed("blur") {
			cfg.Placeholder.Blur = phBlur
		}
		if flags.Changed("workers") {
			cfg.Workers = phWorkers
		}
		if flags.Changed("report") {
			cfg.Report = phReport
		}

		output := cfg.Placeholder.Output
		rootsFromArgs(args, &cfg.Source, &output)
		cfg.Placeholder.Output = output
		cfg.Normalize()
		if err := validate(cfg); err != nil {
			return err
		}

		return runBatch(cmd, cfg, cfgFile, batch{
			title:      "optimg · placeholders",
			source:     cfg.Source,
			output:     cfg.Placeholder.Output,
			reportPath: cfg.Report,
			opts:       transcoder.PlaceholderOptions(cfg),
		})
	},
}

func init() {
	defaults := config.DefaultConfig().Placeholder
	placeholderCmd.Flags().IntVarP(&phMaxWidth, "max-width", "w", defaults.MaxWidth, "placeholder width in pixels")
	placeholderCmd.Flags().IntVarP(&phQuality, "quality", "q", defaults.Quality, "WebP quality (0-100)")
	placeholderCmd.Flags().Float64Var(&phBlur, "blur", defaults.Blur, "Gaussian blur sigma (0 disables)")
	placeholderCmd.Flags().IntVarP(&phWorkers, "workers", "j", config.DefaultConfig().Workers, "number of images processed in parallel")
	placeholderCmd.Flags().StringVar(&phReport, "report", "", "write a JSON report to this path")

	rootCmd.AddCommand(placeholderCmd)
}
