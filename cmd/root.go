package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	errs "optimg/internal/errors"
)

var (
	configPath string
	logLevel   string
	plainUI    bool
)

var rootCmd = &cobra.Command{
	Use:           "optimg",
	Short:         "optimg - web-ready images for the portfolio site",
	Long:          "optimg turns the site's photo tree into width-capped WebP images and blurred placeholders, mirroring the directory layout.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for errors that stopped a batch before it ran (bad
// configuration, unusable roots) and 1 for everything else, such as
// command-line usage errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.KindOf(err).Fatal():
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default optimg.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&plainUI, "plain", false, "print one line per image instead of the progress view")
}
