// Package graph builds the directed "file imports module" graph on top of
// gonum.
package graph

import (
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/pyimport-graph/pkg/model"
)

// DefaultHubThreshold is the out-degree a node must exceed to be a hub.
const DefaultHubThreshold = 5

// NodeKind records how a label entered the graph.
type NodeKind int

const (
	KindModule NodeKind = 1 << iota
	KindFile
	KindBoth = KindModule | KindFile
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindModule:
		return "module"
	case KindBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Node is a labelled vertex of the import graph.
type Node struct {
	id    int64
	label string
	kind  NodeKind
}

func (n *Node) ID() int64      { return n.id }
func (n *Node) Label() string  { return n.label }
func (n *Node) Kind() NodeKind { return n.kind }

// ImportGraph is a directed graph whose nodes are file and module labels and
// whose edges mean "file imports module". Insertion is idempotent.
type ImportGraph struct {
	graph  *simple.DirectedGraph
	nodes  map[string]*Node // label -> node
	byID   map[int64]*Node
	nextID int64

	// simple graphs reject self loops; a file importing its own label is
	// kept here instead.
	self map[int64]bool
}

// NewImportGraph creates an empty import graph.
func NewImportGraph() *ImportGraph {
	return &ImportGraph{
		graph: simple.NewDirectedGraph(),
		nodes: make(map[string]*Node),
		byID:  make(map[int64]*Node),
		self:  make(map[int64]bool),
	}
}

// Build creates the graph for a complete pair sequence.
func Build(pairs []model.ImportPair) *ImportGraph {
	g := NewImportGraph()
	for _, p := range pairs {
		g.AddImport(p.File, p.Module)
	}
	return g
}

func (g *ImportGraph) ensure(label string, kind NodeKind) *Node {
	if n, ok := g.nodes[label]; ok {
		n.kind |= kind
		return n
	}

	n := &Node{id: g.nextID, label: label, kind: kind}
	g.nextID++
	g.nodes[label] = n
	g.byID[n.id] = n
	g.graph.AddNode(n)
	return n
}

// AddFile adds a file node.
func (g *ImportGraph) AddFile(label string) {
	g.ensure(label, KindFile)
}

// AddModule adds a module node.
func (g *ImportGraph) AddModule(label string) {
	g.ensure(label, KindModule)
}

// AddImport adds the edge file -> module, creating either node as needed.
func (g *ImportGraph) AddImport(file, module string) {
	from := g.ensure(file, KindFile)
	to := g.ensure(module, KindModule)

	if from.id == to.id {
		g.self[from.id] = true
		return
	}
	if !g.graph.HasEdgeFromTo(from.id, to.id) {
		g.graph.SetEdge(g.graph.NewEdge(from, to))
	}
}

// HasNode reports whether label is in the graph.
func (g *ImportGraph) HasNode(label string) bool {
	_, ok := g.nodes[label]
	return ok
}

// HasEdge reports whether file imports module.
func (g *ImportGraph) HasEdge(file, module string) bool {
	from, ok := g.nodes[file]
	if !ok {
		return false
	}
	to, ok := g.nodes[module]
	if !ok {
		return false
	}
	if from.id == to.id {
		return g.self[from.id]
	}
	return g.graph.HasEdgeFromTo(from.id, to.id)
}

// Node returns the node for label.
func (g *ImportGraph) Node(label string) (*Node, bool) {
	n, ok := g.nodes[label]
	return n, ok
}

// NodeByID returns the node with the given gonum ID, or nil.
func (g *ImportGraph) NodeByID(id int64) *Node {
	return g.byID[id]
}

// Kind returns how label entered the graph, or 0 if it is absent.
func (g *ImportGraph) Kind(label string) NodeKind {
	if n, ok := g.nodes[label]; ok {
		return n.kind
	}
	return 0
}

// OutDegree is the number of distinct modules label imports.
func (g *ImportGraph) OutDegree(label string) int {
	n, ok := g.nodes[label]
	if !ok {
		return 0
	}
	return g.graph.From(n.id).Len() + g.selfCount(n.id)
}

func (g *ImportGraph) selfCount(id int64) int {
	if g.self[id] {
		return 1
	}
	return 0
}

// InDegree is the number of files that import label.
func (g *ImportGraph) InDegree(label string) int {
	n, ok := g.nodes[label]
	if !ok {
		return 0
	}
	return g.graph.To(n.id).Len() + g.selfCount(n.id)
}

// Imports returns the sorted modules label imports.
func (g *ImportGraph) Imports(label string) []string {
	n, ok := g.nodes[label]
	if !ok {
		return nil
	}
	return g.labels(g.graph.From(n.id), n)
}

// ImportedBy returns the sorted files that import label.
func (g *ImportGraph) ImportedBy(label string) []string {
	n, ok := g.nodes[label]
	if !ok {
		return nil
	}
	return g.labels(g.graph.To(n.id), n)
}

func (g *ImportGraph) labels(it gonumgraph.Nodes, n *Node) []string {
	out := make([]string, 0, it.Len()+1)
	for it.Next() {
		out = append(out, g.byID[it.Node().ID()].label)
	}
	if g.self[n.id] {
		out = append(out, n.label)
	}
	sort.Strings(out)
	return out
}

// Nodes returns all labels, sorted.
func (g *ImportGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for label := range g.nodes {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Edges returns all edges as [file, module] pairs, sorted.
func (g *ImportGraph) Edges() [][2]string {
	var edges [][2]string

	it := g.graph.Edges()
	for it.Next() {
		e := it.Edge()
		edges = append(edges, [2]string{
			g.byID[e.From().ID()].label,
			g.byID[e.To().ID()].label,
		})
	}
	for id := range g.self {
		label := g.byID[id].label
		edges = append(edges, [2]string{label, label})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// NodeCount returns the number of nodes.
func (g *ImportGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *ImportGraph) EdgeCount() int {
	return g.graph.Edges().Len() + len(g.self)
}

// IsHub reports whether outDegree exceeds threshold. The boundary is strict:
// with threshold 5, out-degree 6 is a hub and 5 is not.
func IsHub(outDegree, threshold int) bool {
	return outDegree > threshold
}

// Hubs returns the sorted labels whose out-degree exceeds threshold.
func (g *ImportGraph) Hubs(threshold int) []string {
	var hubs []string
	for _, label := range g.Nodes() {
		if IsHub(g.OutDegree(label), threshold) {
			hubs = append(hubs, label)
		}
	}
	return hubs
}

// Directed exposes the underlying gonum graph. Its nodes are *Node. Self
// imports are not part of it.
func (g *ImportGraph) Directed() gonumgraph.Directed {
	return g.graph
}

// Model converts the graph into its serializable form.
func (g *ImportGraph) Model(threshold int) *model.Graph {
	m := model.NewGraph()
	m.Threshold = threshold

	for _, label := range g.Nodes() {
		n := g.nodes[label]
		out := g.OutDegree(label)
		m.AddNode(&model.Node{
			ID:        label,
			Label:     label,
			Kind:      n.kind.String(),
			OutDegree: out,
			Hub:       IsHub(out, threshold),
		})
	}
	for _, e := range g.Edges() {
		m.AddEdge(&model.Edge{Source: e[0], Target: e[1]})
	}
	return m
}
