package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sinclairtarget/git-loc/internal/config"
	"github.com/sinclairtarget/git-loc/internal/git"
)

var Commit = "unknown"
var Version = "unknown"

var progStart time.Time

type globalFlags struct {
	verbose    bool
	configPath string
}

// Main builds the command tree and runs it.
//
// If no subcommand was specified, we default to the "table" subcommand.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", err)
		stop()
		os.Exit(1)
	}
}

// -v- Subcommand definitions --------------------------------------------------

func rootCmd() *cobra.Command {
	var global globalFlags
	var opts tableOpts

	root := &cobra.Command{
		Use:   "git-loc [config.yml]",
		Short: "git-loc tallies lines of code by author",
		Long: strings.TrimSpace(`
git-loc attributes every line in a git project to the author who last changed
it and prints the number of lines per author.

With no subcommand, runs "table".
		`),
		Version:       fmt.Sprintf("%s %s", Version, Commit),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.verbose {
				configureLogging(slog.LevelDebug)
				logger().Debug("log level set to DEBUG")
			} else {
				configureLogging(slog.LevelInfo)
			}

			progStart = time.Now()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := global.resolveConfigPath(args)
			if err != nil {
				return err
			}

			return table(cmd.Context(), configPath, opts)
		},
	}

	root.PersistentFlags().BoolVarP(
		&global.verbose,
		"verbose",
		"v",
		false,
		"Enables debug logging",
	)
	root.PersistentFlags().StringVarP(
		&global.configPath,
		"config",
		"c",
		"",
		"Path to configuration file (default .git-loc.yml if present)",
	)
	addTableFlags(root, &opts)

	root.AddCommand(
		tableCmd(&global),
		filesCmd(&global),
		blameCmd(&global),
		configCmd(&global),
		cacheCmd(&global),
	)

	return root
}

func tableCmd(global *globalFlags) *cobra.Command {
	var opts tableOpts

	cmd := &cobra.Command{
		Use:   "table [config.yml]",
		Short: "Print lines of code per author",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := global.resolveConfigPath(args)
			if err != nil {
				return err
			}

			return table(cmd.Context(), configPath, opts)
		},
	}

	addTableFlags(cmd, &opts)
	return cmd
}

func filesCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "files [config.yml]",
		Short: "Print the files that would be analyzed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := global.resolveConfigPath(args)
			if err != nil {
				return err
			}

			return files(cmd.Context(), configPath)
		},
	}
}

func blameCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "blame [config.yml] <path>",
		Short: "Print the parsed attribution of a single file",
		Long: strings.TrimSpace(`
Print how each line of a file is attributed. The path is relative to the
repository root.
		`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[len(args)-1]
			configPath, err := global.resolveConfigPath(args[:len(args)-1])
			if err != nil {
				return err
			}

			return blameFile(cmd.Context(), configPath, path)
		},
	}
}

func configCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config [config.yml]",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := global.resolveConfigPath(args)
			if err != nil {
				return err
			}

			return showConfig(configPath)
		},
	}
}

func cacheCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached analysis results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [config.yml]",
		Short: "Remove all cached results for the project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := global.resolveConfigPath(args)
			if err != nil {
				return err
			}

			return clearCache(cmd.Context(), configPath)
		},
	})

	return cmd
}

// -^---------------------------------------------------------------------------

func configureLogging(level slog.Level) {
	handler := slog.NewTextHandler(
		os.Stderr,
		&slog.HandlerOptions{
			Level: level,
		},
	)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// The configuration file can be given either as a positional argument or with
// -c, but not both.
func (g *globalFlags) resolveConfigPath(args []string) (string, error) {
	if len(args) == 0 {
		return g.configPath, nil
	}

	if g.configPath != "" && g.configPath != args[0] {
		return "", errors.New(
			"configuration file given both as argument and with -c",
		)
	}

	return args[0], nil
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger().Debug(
		"using configuration",
		"source",
		cfg.Source,
		"projectDir",
		cfg.ProjectDir,
	)
	return cfg, nil
}

func openRepo(ctx context.Context, cfg *config.Config) (*git.Repository, error) {
	return git.Open(ctx, cfg.ProjectDir, git.Options{
		IgnoreWhitespace: cfg.Blame.IgnoreWhitespace,
		UseIgnoreRevs:    cfg.Blame.UseIgnoreRevs,
	})
}
