package model

import "sort"

// Graph is the serializable view of an import graph.
// It is the common data model for the JSON renderer and the web API.
type Graph struct {
	Root      string  `json:"root,omitempty"`
	Threshold int     `json:"threshold"`
	Nodes     []*Node `json:"nodes"`
	Edges     []*Edge `json:"edges"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// Node represents a vertex in the import graph.
// It can represent a scanned file, an imported base module, or both.
type Node struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Kind      string `json:"kind"` // "file", "module" or "both"
	OutDegree int    `json:"outDegree"`
	Hub       bool   `json:"hub"`
}

// Edge represents a directed "file imports module" connection.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the graph.
func (g *Graph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Sort orders nodes by ID and edges by (source, target) so output is stable.
func (g *Graph) Sort() {
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})
}
