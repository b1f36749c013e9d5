package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"optimg/internal/config"
	"optimg/internal/transcoder"
)

var (
	optQuality     int
	optMaxWidth    int
	optWorkers     int
	optTimeout     time.Duration
	optOnCollision string
	optReport      string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] [source] [output]",
	Short: "Convert JPEG/PNG photos into width-capped WebP images",
	Long: "optimize walks the source tree (default: images) and writes a WebP copy of every " +
		"JPEG and PNG into the output tree (default: images/optimized), keeping relative paths. " +
		"A file that fails to convert is reported and the rest of the batch carries on.",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cfgFile, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("quality") {
			cfg.Quality = optQuality
		}
		if flags.Changed("max-width") {
			cfg.MaxWidth = optMaxWidth
		}
		if flags.Changed("workers") {
			cfg.Workers = optWorkers
		}
		if flags.Changed("timeout") {
			cfg.FileTimeout = optTimeout
		}
		if flags.Changed("on-collision") {
			cfg.OnCollision = config.CollisionPolicy(optOnCollision)
		}
		if flags.Changed("report") {
			cfg.Report = optReport
		}
		rootsFromArgs(args, &cfg.Source, &cfg.Output)
		cfg.Normalize()
		if err := validate(cfg); err != nil {
			return err
		}

		return runBatch(cmd, cfg, cfgFile, batch{
			title:      "optimg · optimize",
			source:     cfg.Source,
			output:     cfg.Output,
			reportPath: cfg.Report,
			opts:       transcoder.OptionsFromConfig(cfg),
		})
	},
}

func init() {
	defaults := config.DefaultConfig()
	optimizeCmd.Flags().IntVarP(&optQuality, "quality", "q", defaults.Quality, "WebP quality (0-100)")
	optimizeCmd.Flags().IntVarP(&optMaxWidth, "max-width", "w", defaults.MaxWidth, "maximum output width in pixels; narrower images are never upscaled")
	optimizeCmd.Flags().IntVarP(&optWorkers, "workers", "j", defaults.Workers, "number of images converted in parallel")
	optimizeCmd.Flags().DurationVar(&optTimeout, "timeout", 0, "per-image time limit (0 disables)")
	optimizeCmd.Flags().StringVar(&optOnCollision, "on-collision", string(defaults.OnCollision), "when two sources map to one output: fail or overwrite")
	optimizeCmd.Flags().StringVar(&optReport, "report", "", "write a JSON report to this path")

	rootCmd.AddCommand(optimizeCmd)
}
