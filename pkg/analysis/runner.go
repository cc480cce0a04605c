package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/pyimport-graph/pkg/analysis/api"
	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/deps"
	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/logging"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

// Status states published while a run progresses.
const (
	StatusScanning = "scanning"
	StatusBuilding = "building"
	StatusReady    = "ready"
	StatusError    = "error"

	totalSteps = 3
)

// Sink receives progress and results of runs. It may be nil.
type Sink interface {
	PublishStatus(state, message string, step, total int)
	PublishSnapshot(s *Snapshot)
}

// Snapshot is one completed scan and the graph built from it.
// Snapshots are immutable once published.
type Snapshot struct {
	Version   int64
	Root      string
	Reason    string
	Threshold int
	Graph     *graph.ImportGraph
	Scan      *model.ScanResult
	CreatedAt time.Time
}

// Runner orchestrates scan and graph building.
type Runner struct {
	cfg     *config.Config
	source  api.Source
	sink    Sink
	metrics *Metrics

	mu      sync.Mutex // prevent concurrent runs
	version int64
}

// NewRunner creates a runner over the import scanner. In watch mode the
// scanner keeps a parse cache between runs.
func NewRunner(cfg *config.Config, sink Sink) *Runner {
	var cache deps.Cache
	if cfg.Watch && cfg.CacheSize > 0 {
		c, err := NewParseCache(cfg.CacheSize)
		if err != nil {
			logging.Warn("parse cache disabled", "error", err)
		} else {
			cache = c
		}
	}
	return NewRunnerWithSource(cfg, deps.NewImportsSource(cache), sink)
}

// NewRunnerWithSource creates a runner over an arbitrary source.
func NewRunnerWithSource(cfg *config.Config, source api.Source, sink Sink) *Runner {
	return &Runner{
		cfg:    cfg,
		source: source,
		sink:   sink,
	}
}

// SetMetrics records run results in m.
func (r *Runner) SetMetrics(m *Metrics) {
	r.metrics = m
}

func (r *Runner) status(state, message string, step int) {
	if r.sink != nil {
		r.sink.PublishStatus(state, message, step, totalSteps)
	}
}

// Run scans the configured root and builds the graph. Runs never overlap.
func (r *Runner) Run(ctx context.Context, reason string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	logging.InfoContext(ctx, "starting analysis", "reason", reason, "root", r.cfg.Root)

	r.status(StatusScanning, "Scanning source files...", 1)
	scan, err := r.source.Run(ctx, r.cfg)
	if err != nil {
		logging.ErrorContext(ctx, "scan failed", "source", r.source.Name(), "error", err)
		r.status(StatusError, fmt.Sprintf("Scan failed: %v", err), 1)
		r.metrics.observeFailure()
		return nil, fmt.Errorf("%s scan failed: %w", r.source.Name(), err)
	}

	r.status(StatusBuilding, "Building import graph...", 2)
	g := graph.Build(scan.Pairs)
	logging.DebugContext(ctx, "graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	r.version++
	snap := &Snapshot{
		Version:   r.version,
		Root:      r.cfg.Root,
		Reason:    reason,
		Threshold: r.cfg.Threshold,
		Graph:     g,
		Scan:      scan,
		CreatedAt: time.Now(),
	}
	r.metrics.observe(snap, time.Since(start))

	if r.sink != nil {
		r.sink.PublishSnapshot(snap)
	}
	r.status(StatusReady, "Analysis complete", 3)

	logging.InfoContext(ctx, "analysis complete",
		"reason", reason,
		"files", scan.Files,
		"skipped", len(scan.Skipped),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"hubs", len(g.Hubs(r.cfg.Threshold)),
		"duration", time.Since(start))
	return snap, nil
}
