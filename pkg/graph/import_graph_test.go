package graph

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/ritzau/pyimport-graph/pkg/model"
)

func scenarioPairs() []model.ImportPair {
	return []model.ImportPair{
		{File: "a.py", Module: "os"},
		{File: "a.py", Module: "sys"},
		{File: "b.py", Module: "os"},
	}
}

func TestNewImportGraph(t *testing.T) {
	g := NewImportGraph()
	if g == nil {
		t.Fatal("NewImportGraph() returned nil")
	}
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("new graph should be empty, got %d nodes and %d edges", g.NodeCount(), g.EdgeCount())
	}
}

func TestBuildScenario(t *testing.T) {
	g := Build(scenarioPairs())

	wantNodes := []string{"a.py", "b.py", "os", "sys"}
	if got := g.Nodes(); !reflect.DeepEqual(got, wantNodes) {
		t.Errorf("Nodes() = %v, want %v", got, wantNodes)
	}

	wantEdges := [][2]string{{"a.py", "os"}, {"a.py", "sys"}, {"b.py", "os"}}
	if got := g.Edges(); !reflect.DeepEqual(got, wantEdges) {
		t.Errorf("Edges() = %v, want %v", got, wantEdges)
	}

	for label, want := range map[string]int{"a.py": 2, "b.py": 1, "os": 0, "sys": 0} {
		if got := g.OutDegree(label); got != want {
			t.Errorf("OutDegree(%s) = %d, want %d", label, got, want)
		}
	}
	if got := g.InDegree("os"); got != 2 {
		t.Errorf("InDegree(os) = %d, want 2", got)
	}
}

func TestAddImportIdempotent(t *testing.T) {
	g := NewImportGraph()

	g.AddImport("a.py", "os")
	g.AddImport("a.py", "os")
	g.AddFile("a.py")
	g.AddModule("os")

	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if !g.HasEdge("a.py", "os") {
		t.Error("missing edge a.py -> os")
	}
	if g.HasEdge("os", "a.py") {
		t.Error("edges are directed; os -> a.py must not exist")
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	pairs := append(scenarioPairs(), scenarioPairs()...)
	reversed := make([]model.ImportPair, len(pairs))
	for i, p := range pairs {
		reversed[len(pairs)-1-i] = p
	}

	g1 := Build(pairs)
	g2 := Build(reversed)
	g3 := Build(scenarioPairs())

	for _, g := range []*ImportGraph{g2, g3} {
		if !reflect.DeepEqual(g1.Nodes(), g.Nodes()) {
			t.Errorf("node sets differ: %v vs %v", g1.Nodes(), g.Nodes())
		}
		if !reflect.DeepEqual(g1.Edges(), g.Edges()) {
			t.Errorf("edge sets differ: %v vs %v", g1.Edges(), g.Edges())
		}
	}
}

func TestNodeKind(t *testing.T) {
	g := Build([]model.ImportPair{
		{File: "a.py", Module: "util"},
		{File: "util", Module: "os"},
	})

	tests := map[string]NodeKind{
		"a.py":    KindFile,
		"os":      KindModule,
		"util":    KindBoth,
		"missing": 0,
	}
	for label, want := range tests {
		if got := g.Kind(label); got != want {
			t.Errorf("Kind(%s) = %v, want %v", label, got, want)
		}
	}
	if KindBoth.String() != "both" || KindFile.String() != "file" || KindModule.String() != "module" {
		t.Error("unexpected NodeKind names")
	}
}

func TestSelfImport(t *testing.T) {
	g := Build([]model.ImportPair{{File: "six", Module: "six"}, {File: "six", Module: "os"}})

	if !g.HasEdge("six", "six") {
		t.Error("self import should be an edge")
	}
	if got := g.OutDegree("six"); got != 2 {
		t.Errorf("OutDegree(six) = %d, want 2", got)
	}
	if got := g.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() = %d, want 2", got)
	}
	want := [][2]string{{"six", "os"}, {"six", "six"}}
	if got := g.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestImportsAndImportedBy(t *testing.T) {
	g := Build(scenarioPairs())

	if got := g.Imports("a.py"); !reflect.DeepEqual(got, []string{"os", "sys"}) {
		t.Errorf("Imports(a.py) = %v", got)
	}
	if got := g.ImportedBy("os"); !reflect.DeepEqual(got, []string{"a.py", "b.py"}) {
		t.Errorf("ImportedBy(os) = %v", got)
	}
	if got := g.Imports("missing"); got != nil {
		t.Errorf("Imports(missing) = %v, want nil", got)
	}
}

func hubGraph(n int) *ImportGraph {
	g := NewImportGraph()
	for i := range n {
		g.AddImport("hub.py", fmt.Sprintf("mod%d", i))
	}
	return g
}

func TestHubThresholdBoundary(t *testing.T) {
	if IsHub(5, DefaultHubThreshold) {
		t.Error("out-degree 5 must not be a hub")
	}
	if !IsHub(6, DefaultHubThreshold) {
		t.Error("out-degree 6 must be a hub")
	}

	if hubs := hubGraph(5).Hubs(DefaultHubThreshold); len(hubs) != 0 {
		t.Errorf("Hubs() with out-degree 5 = %v, want none", hubs)
	}
	if hubs := hubGraph(6).Hubs(DefaultHubThreshold); !reflect.DeepEqual(hubs, []string{"hub.py"}) {
		t.Errorf("Hubs() with out-degree 6 = %v, want [hub.py]", hubs)
	}
}

func TestModel(t *testing.T) {
	g := hubGraph(6)
	g.AddImport("leaf.py", "mod0")

	m := g.Model(DefaultHubThreshold)
	if m.Threshold != DefaultHubThreshold {
		t.Errorf("Threshold = %d", m.Threshold)
	}
	if len(m.Nodes) != 8 || len(m.Edges) != 7 {
		t.Fatalf("expected 8 nodes and 7 edges, got %d and %d", len(m.Nodes), len(m.Edges))
	}

	hub := m.Node("hub.py")
	if hub == nil || !hub.Hub || hub.OutDegree != 6 || hub.Kind != "file" {
		t.Errorf("unexpected hub node %+v", hub)
	}
	leaf := m.Node("leaf.py")
	if leaf == nil || leaf.Hub || leaf.OutDegree != 1 {
		t.Errorf("unexpected leaf node %+v", leaf)
	}
	if m.Edges[0].Source != "hub.py" || m.Edges[0].Target != "mod0" {
		t.Errorf("edges not sorted: first = %+v", m.Edges[0])
	}
}

func TestDirectedView(t *testing.T) {
	g := Build(scenarioPairs())
	d := g.Directed()

	if d.Nodes().Len() != 4 {
		t.Errorf("Directed() has %d nodes, want 4", d.Nodes().Len())
	}
	a, _ := g.Node("a.py")
	n, ok := d.Node(a.ID()).(*Node)
	if !ok || n.Label() != "a.py" {
		t.Errorf("Directed() node = %v, want *Node a.py", d.Node(a.ID()))
	}
	if g.NodeByID(a.ID()) != a {
		t.Error("NodeByID does not round-trip")
	}
}
