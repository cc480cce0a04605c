package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ritzau/pyimport-graph/pkg/analysis"
	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/deps"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/watcher"
	"github.com/ritzau/pyimport-graph/pkg/web"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve the import graph in a browser",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}

	config.RegisterServeFlags(cmd.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// A missing root is fatal here; later scan failures only show in the viewer
	if err := deps.CheckRoot(cfg.Root); err != nil {
		return err
	}

	ctx := cmd.Context()

	metrics := analysis.NewMetrics()
	server := web.NewServer(cfg.Title, metrics)
	runner := analysis.NewRunner(cfg, server)
	runner.SetMetrics(metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, cfg.Port)
	}()

	if cfg.OpenBrowser {
		go openBrowser(ctx, fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	go func() {
		if _, err := runner.Run(ctx, "initial analysis"); err != nil {
			logging.Error("initial analysis failed", "error", err)
		}
	}()

	if cfg.Watch {
		if err := startWatching(ctx, cfg, runner); err != nil {
			logging.Warn("file watching disabled", "error", err)
		}
	}

	return <-errCh
}

// startWatching re-runs the analysis whenever a debounced burst of source
// changes arrives. It returns once the watcher is running.
func startWatching(ctx context.Context, cfg *config.Config, runner *analysis.Runner) error {
	fw, err := watcher.NewFileWatcher(cfg.Root, deps.ScanOptionsFromConfig(cfg).Finder)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), watcher.DefaultQuietPeriod, watcher.DefaultMaxWait)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			change := watcher.AnalyzeChanges(event)
			if !change.NeedRescan {
				continue
			}
			logging.Info("change detected", "reason", change.Reason, "files", len(change.ChangedFiles))
			if _, err := runner.Run(ctx, change.Reason); err != nil {
				logging.Error("re-analysis failed", "error", err)
			}
		}
	}()

	return nil
}

func openBrowser(ctx context.Context, url string) {
	// Give the listener a moment to come up
	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}
	logging.Info("opening browser", "url", url)
	if err := browser.OpenURL(url); err != nil {
		logging.Warn("could not open browser", "url", url, "error", err)
	}
}
