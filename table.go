package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/git-loc/internal/analysis"
	"github.com/sinclairtarget/git-loc/internal/format"
	"github.com/sinclairtarget/git-loc/internal/pretty"
	"github.com/sinclairtarget/git-loc/internal/report"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

type tableOpts struct {
	format     string
	limit      int
	workers    int
	noCache    bool
	noProgress bool
}

func addTableFlags(cmd *cobra.Command, opts *tableOpts) {
	formats := make([]string, 0, len(report.Formats))
	for _, f := range report.Formats {
		formats = append(formats, string(f))
	}

	flags := cmd.Flags()
	flags.StringVar(
		&opts.format,
		"format",
		string(report.TableFormat),
		fmt.Sprintf("Output format (%s)", strings.Join(formats, ", ")),
	)
	flags.IntVarP(
		&opts.limit,
		"limit",
		"n",
		0,
		"Limit rows in output (0 for no limit)",
	)
	flags.IntVarP(
		&opts.workers,
		"workers",
		"j",
		0,
		"Number of files to blame at once (overrides config)",
	)
	flags.BoolVar(&opts.noCache, "no-cache", false, "Ignore and don't update the cache")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Don't show progress")
}

// The "table" subcommand attributes every selected line in the project and
// prints the line count per author to stdout.
func table(ctx context.Context, configPath string, opts tableOpts) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"table\": %w", err)
		}
	}()

	logger().Debug(
		"called table()",
		"configPath",
		configPath,
		"format",
		opts.format,
		"limit",
		opts.limit,
		"workers",
		opts.workers,
		"noCache",
		opts.noCache,
		"noProgress",
		opts.noProgress,
	)

	outputFormat, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	if opts.limit < 0 {
		return errors.New("-n flag must not be negative")
	}

	if opts.workers < 0 {
		return errors.New("-j flag must not be negative")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	configHash, err := analysis.ConfigHash(cfg, repo.SupplementalFiles())
	if err != nil {
		return err
	}

	c := getCache(cfg, opts.noCache)
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger().Warn(fmt.Sprintf("failed to close cache: %v", closeErr))
		}
	}()

	progress := pretty.NewProgress(
		os.Stderr,
		!opts.noProgress && pretty.AllowDynamic(os.Stderr),
	)

	analyzer := analysis.Analyzer{
		Repo:       repo,
		Cache:      c,
		ConfigHash: configHash,
		Blacklist:  cfg.Blacklist(),
		Aliases:    cfg.AuthorMapping,
		Workers:    cfg.WorkerCount(),
		OnStart:    progress.Start,
		OnFileDone: progress.Tick,
	}

	result, err := analyzer.Run(ctx)
	progress.Finish()
	if err != nil {
		return err
	}

	logger().Debug(
		"analysis complete",
		"commit",
		result.Commit,
		"files",
		result.Files,
		"blamed",
		result.Blamed,
		"reused",
		result.Reused,
		"unmatched",
		result.Stats.Unmatched,
		"duration",
		format.Duration(result.Duration),
		"elapsed",
		format.Duration(time.Since(progStart)),
	)

	return report.Write(
		os.Stdout,
		tally.Rank(result.Counts),
		report.Options{Format: outputFormat, Limit: opts.limit},
	)
}
