// Command pyimport-graph scans a Python codebase and draws which files import
// which top-level modules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pyimport-graph [root]",
		Short: "Draw the import graph of a Python codebase",
		Long: `pyimport-graph scans every Python file below root, extracts the top-level
modules each file imports and renders the resulting file/module graph.
Files importing more than --threshold modules are highlighted as hubs.

Commands:
  render    Write the graph as html, svg, dot, json or a text report (default)
  serve     Serve the graph in a browser, optionally re-scanning on change`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRender,
	}

	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pyimport-graph %s\n", version)
		},
	}
}

// loadConfig layers defaults, config file, environment and the command's
// flags, then applies the optional root argument.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Root = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.LevelFromVerbosity(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return nil
}
