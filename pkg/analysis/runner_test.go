package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ritzau/pyimport-graph/pkg/config"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

type fakeSource struct {
	result *model.ScanResult
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return "Fake" }

func (f *fakeSource) Run(ctx context.Context, cfg *config.Config) (*model.ScanResult, error) {
	f.calls++
	return f.result, f.err
}

type statusEvent struct {
	state       string
	step, total int
}

type recordingSink struct {
	mu        sync.Mutex
	statuses  []statusEvent
	snapshots []*Snapshot
}

func (s *recordingSink) PublishStatus(state, message string, step, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statusEvent{state, step, total})
}

func (s *recordingSink) PublishSnapshot(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func scenarioScan() *model.ScanResult {
	return &model.ScanResult{
		Files:  3,
		Parsed: 2,
		Pairs: []model.ImportPair{
			{File: "a.py", Module: "os"},
			{File: "a.py", Module: "sys"},
			{File: "b.py", Module: "os"},
		},
		Skipped: []model.SkippedFile{{Path: "bad.py", Reason: model.SkipParse}},
	}
}

func TestRunnerRun(t *testing.T) {
	cfg := config.Default()
	src := &fakeSource{result: scenarioScan()}
	sink := &recordingSink{}

	r := NewRunnerWithSource(cfg, src, sink)
	snap, err := r.Run(context.Background(), "initial analysis")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if snap.Version != 1 || snap.Reason != "initial analysis" {
		t.Errorf("unexpected snapshot header %+v", snap)
	}
	if snap.Graph.NodeCount() != 4 || snap.Graph.EdgeCount() != 3 {
		t.Errorf("graph has %d nodes and %d edges, want 4 and 3", snap.Graph.NodeCount(), snap.Graph.EdgeCount())
	}
	if snap.Threshold != cfg.Threshold {
		t.Errorf("Threshold = %d, want %d", snap.Threshold, cfg.Threshold)
	}

	want := []statusEvent{
		{StatusScanning, 1, 3},
		{StatusBuilding, 2, 3},
		{StatusReady, 3, 3},
	}
	if len(sink.statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", sink.statuses, want)
	}
	for i := range want {
		if sink.statuses[i] != want[i] {
			t.Errorf("status[%d] = %v, want %v", i, sink.statuses[i], want[i])
		}
	}
	if len(sink.snapshots) != 1 || sink.snapshots[0] != snap {
		t.Error("snapshot was not published")
	}

	snap2, err := r.Run(context.Background(), "files changed")
	if err != nil {
		t.Fatal(err)
	}
	if snap2.Version != 2 {
		t.Errorf("second run Version = %d, want 2", snap2.Version)
	}
}

func TestRunnerError(t *testing.T) {
	boom := errors.New("boom")
	sink := &recordingSink{}
	m := NewMetrics()

	r := NewRunnerWithSource(config.Default(), &fakeSource{err: boom}, sink)
	r.SetMetrics(m)

	if _, err := r.Run(context.Background(), "test"); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	last := sink.statuses[len(sink.statuses)-1]
	if last.state != StatusError {
		t.Errorf("last status = %s, want %s", last.state, StatusError)
	}
	if len(sink.snapshots) != 0 {
		t.Error("no snapshot should be published on error")
	}
	if got := testutil.ToFloat64(m.scans.WithLabelValues("error")); got != 1 {
		t.Errorf("error scans = %v, want 1", got)
	}
}

func TestRunnerNilSink(t *testing.T) {
	r := NewRunnerWithSource(config.Default(), &fakeSource{result: scenarioScan()}, nil)
	if _, err := r.Run(context.Background(), "cli"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunnerMetrics(t *testing.T) {
	m := NewMetrics()
	r := NewRunnerWithSource(config.Default(), &fakeSource{result: scenarioScan()}, nil)
	r.SetMetrics(m)

	if _, err := r.Run(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}

	checks := map[string]float64{
		"ok scans":      testutil.ToFloat64(m.scans.WithLabelValues("ok")),
		"parsed":        testutil.ToFloat64(m.filesParsed),
		"parse skipped": testutil.ToFloat64(m.filesSkipped.WithLabelValues("parse")),
		"nodes":         testutil.ToFloat64(m.nodes),
		"edges":         testutil.ToFloat64(m.edges),
		"hubs":          testutil.ToFloat64(m.hubs),
	}
	want := map[string]float64{
		"ok scans": 1, "parsed": 2, "parse skipped": 1, "nodes": 4, "edges": 3, "hubs": 0,
	}
	for name, got := range checks {
		if got != want[name] {
			t.Errorf("%s = %v, want %v", name, got, want[name])
		}
	}
}

func TestRunnerScansRoot(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.py":      "import os\nimport sys\n",
		"b.py":      "from os import path\n",
		"broken.py": "def f(:\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Root = root
	cfg.Watch = true

	r := NewRunner(cfg, nil)
	for i := range 2 {
		snap, err := r.Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		g := snap.Graph
		if !g.HasEdge("a.py", "os") || !g.HasEdge("a.py", "sys") || !g.HasEdge("b.py", "os") {
			t.Errorf("missing scenario edges: %v", g.Edges())
		}
		if g.EdgeCount() != 3 || g.HasNode("broken.py") {
			t.Errorf("unexpected graph: %v", g.Edges())
		}
		if i == 1 && snap.Scan.Cached != 2 {
			t.Errorf("second run Cached = %d, want 2", snap.Scan.Cached)
		}
	}
}
