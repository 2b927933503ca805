// Command slanger explains slang terms using a cache, a record store and AI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/slanger"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = slanger.Version
	commit    = slanger.GitCommit
	buildDate = slanger.BuildDate
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globals holds the persistent flags and output streams shared by subcommands.
type globals struct {
	configFile string
	verbose    bool
	showStats  bool
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger
	stats      *stats
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           slanger.Name,
		Short:         slanger.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g.logger = newLogger(g.verbose, g.stderr)
			if g.showStats {
				g.stats = newStats()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if g.stats == nil {
				return nil
			}
			return g.stats.report(cmd.Context(), g.stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file path")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&g.showStats, "stats", false, "Print resolution statistics to stderr")

	root.AddCommand(
		newResolveCommand(g),
		newScanCommand(g),
		newTermsCommand(g),
		newPurgeCommand(g),
		newImportCommand(g),
		newExportCommand(g),
		newVersionCommand(g),
	)
	return root
}

// newLogger writes text logs to w; debug level only when verbose.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newVersionCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(g.stdout, "%s %s\n", slanger.Name, version)
			if commit != "unknown" && commit != "" {
				fmt.Fprintf(g.stdout, "  commit:  %s\n", commit)
			}
			if buildDate != "unknown" && buildDate != "" {
				fmt.Fprintf(g.stdout, "  built:   %s\n", buildDate)
			}
			return nil
		},
	}
}
