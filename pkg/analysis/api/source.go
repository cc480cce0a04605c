package api

import (
	"context"

	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

// Source represents a data source for the import graph.
// Implementations gather import pairs for the configured root.
type Source interface {
	// Name returns the unique name of the source (e.g., "PythonImports").
	Name() string

	// Run scans the configured root. It should respect the context for cancellation.
	Run(ctx context.Context, cfg *config.Config) (*model.ScanResult, error)
}
