package main

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/pyimport-graph/pkg/analysis"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/render"
)

func newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render [root]",
		Short: "Scan root once and write the import graph",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRender,
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	// Fail on a bad format before spending time on the scan
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	snap, err := analysis.NewRunner(cfg, nil).Run(cmd.Context(), "render")
	if err != nil {
		return err
	}

	opts := render.Options{
		Format:    format,
		Threshold: cfg.Threshold,
		Title:     cfg.Title,
		Root:      cfg.Root,
		Scan:      snap.Scan,
	}
	if err := render.WriteFile(cfg.Output, snap.Graph, opts); err != nil {
		return err
	}

	if cfg.Output != "" && cfg.Output != "-" {
		logging.Info("graph written", "path", cfg.Output, "format", format,
			"nodes", snap.Graph.NodeCount(), "edges", snap.Graph.EdgeCount())
	}
	return nil
}
