package render

import (
	"io"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/pyimport-graph/pkg/graph"
)

type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute { return a }

// dotNode carries the display attributes of one import graph node.
type dotNode struct {
	id    int64
	label string
	attrs attributes
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return n.label }
func (n dotNode) Attributes() []encoding.Attribute { return n.attrs }

// dotGraph adds graph-wide attributes to a simple directed graph.
type dotGraph struct {
	*simple.DirectedGraph
	graphAttrs, nodeAttrs, edgeAttrs attributes
}

func (g dotGraph) DOTAttributers() (gr, n, e encoding.Attributer) {
	return g.graphAttrs, g.nodeAttrs, g.edgeAttrs
}

// DOT writes g as a Graphviz digraph.
func DOT(w io.Writer, g *graph.ImportGraph, o Options) error {
	dg := dotGraph{
		DirectedGraph: simple.NewDirectedGraph(),
		graphAttrs:    attributes{{Key: "overlap", Value: "false"}, {Key: "splines", Value: "true"}},
		nodeAttrs:     attributes{{Key: "shape", Value: "ellipse"}, {Key: "style", Value: "filled"}},
		edgeAttrs:     attributes{{Key: "color", Value: "gray"}},
	}

	nodes := make(map[int64]dotNode, g.NodeCount())
	for _, label := range g.Nodes() {
		n, _ := g.Node(label)
		dn := dotNode{
			id:    n.ID(),
			label: label,
			attrs: attributes{{Key: "fillcolor", Value: NodeColor(g.OutDegree(label), o.Threshold)}},
		}
		nodes[dn.id] = dn
		dg.AddNode(dn)
	}

	edges := g.Directed().Edges()
	for edges.Next() {
		e := edges.Edge()
		dg.SetEdge(dg.NewEdge(nodes[e.From().ID()], nodes[e.To().ID()]))
	}

	b, err := dot.Marshal(dg, "imports", "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
