package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"optimg/internal/config"
	errs "optimg/internal/errors"
	"optimg/internal/logging"
	"optimg/internal/transcoder"
	"optimg/internal/tui"
)

// loadConfig layers defaults, .env, the config file, OPTIMG_* variables and
// the persistent flags. Command-specific flags are applied by the caller.
func loadConfig() (*config.Config, string, error) {
	res, err := config.NewLoader().WithFile(configPath).Load()
	if err != nil {
		return nil, "", errs.Wrap(errs.KindConfig, "config", "load configuration", err)
	}
	cfg := res.Config
	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	if plainUI {
		cfg.UI = config.UIPlain
	}
	return cfg, res.Path, nil
}

func validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return errs.Wrap(errs.KindConfig, "config", "invalid configuration", err)
	}
	return nil
}

func useTUI(mode config.UIMode) bool {
	switch mode {
	case config.UITUI:
		return true
	case config.UIPlain:
		return false
	default:
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

type batch struct {
	title      string
	source     string
	output     string
	reportPath string
	opts       transcoder.Options
}

// runBatch drives transcoder.Run with either the progress view or the plain
// printer attached, then prints the summary. Only fatal errors are returned.
func runBatch(cmd *cobra.Command, cfg *config.Config, cfgFile string, b batch) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return errs.Wrap(errs.KindConfig, "logging", "set up logging", err)
	}
	defer logger.Close()

	if cfgFile != "" {
		logger.Debug("loaded config", "file", cfgFile)
	}
	logger.Debug("starting batch",
		"source", b.source,
		"output", b.output,
		"quality", b.opts.Quality,
		"max_width", b.opts.MaxWidth,
		"workers", b.opts.Workers,
	)
	b.opts.Logger = logger

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	updates := make(chan transcoder.ProgressUpdate, 64)
	uiDone := make(chan struct{})
	if useTUI(cfg.UI) {
		program := tea.NewProgram(tui.NewModel(b.title, updates).WithInterrupt(cancel))
		go func() {
			defer close(uiDone)
			if _, err := program.Run(); err != nil {
				logger.Warn("progress view unavailable", "err", err)
			}
			for range updates {
			}
		}()
	} else {
		go func() {
			defer close(uiDone)
			tui.PrintEvents(cmd.OutOrStdout(), cmd.ErrOrStderr(), updates)
		}()
	}

	report, err := transcoder.Run(ctx, b.source, b.output, b.opts, updates)
	close(updates)
	<-uiDone
	if err != nil {
		logger.Error("batch aborted", "err", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderSummary(tui.ReportRows(report)))
	if failures := tui.RenderFailures(report); failures != "" {
		fmt.Fprintln(out, failures)
	}
	fmt.Fprintln(out, report.SummaryLine())
	fmt.Fprintf(out, "Images written to: %s\n", report.OutputRoot)

	if b.reportPath != "" {
		if err := report.WriteJSON(b.reportPath); err != nil {
			logger.Error("could not write report", "path", b.reportPath, "err", err)
		} else {
			logger.Info("report written", "path", b.reportPath)
		}
	}
	return nil
}

// rootsFromArgs fills source and output from up to two positional args.
func rootsFromArgs(args []string, source, output *string) {
	if len(args) > 0 {
		*source = args[0]
	}
	if len(args) > 1 {
		*output = args[1]
	}
}
