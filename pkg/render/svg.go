package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ritzau/pyimport-graph/pkg/graph"
)

const (
	svgWidth   = 1600.0
	svgHeight  = 1200.0
	svgPadding = 60.0

	baseRadius = 6.0
	maxRadius  = 20.0
)

// Layout computes node positions with the Eades spring embedder, scaled to
// a width x height canvas with padding. Positions are keyed by node ID.
func Layout(g *graph.ImportGraph, width, height, padding float64) map[int64]r2.Vec {
	// Springs are symmetric, so the layout runs on an undirected copy.
	u := simple.NewUndirectedGraph()
	nodes := g.Directed().Nodes()
	for nodes.Next() {
		u.AddNode(simple.Node(nodes.Node().ID()))
	}
	edges := g.Directed().Edges()
	for edges.Next() {
		e := edges.Edge()
		from, to := e.From().ID(), e.To().ID()
		if !u.HasEdgeBetween(from, to) {
			u.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	pos := make(map[int64]r2.Vec, u.Nodes().Len())
	switch u.Nodes().Len() {
	case 0:
		return pos
	case 1:
		nodes := u.Nodes()
		nodes.Next()
		pos[nodes.Node().ID()] = r2.Vec{X: width / 2, Y: height / 2}
		return pos
	}

	eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: 30, Theta: 0.2}
	o := layout.NewOptimizerR2(u, eades.Update)
	for o.Update() {
	}

	it := u.Nodes()
	for it.Next() {
		id := it.Node().ID()
		pos[id] = o.Coord2(id)
	}
	return fit(pos, width, height, padding)
}

// fit scales positions into the padded canvas, keeping the aspect ratio.
func fit(pos map[int64]r2.Vec, width, height, padding float64) map[int64]r2.Vec {
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range pos {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}

	span := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	inner := math.Min(width, height) - 2*padding
	scale := 1.0
	if span > 0 && !math.IsNaN(span) && !math.IsInf(span, 0) {
		scale = inner / span
	}
	center := r2.Vec{X: width / 2, Y: height / 2}
	mid := r2.Scale(0.5, r2.Add(lo, hi))

	out := make(map[int64]r2.Vec, len(pos))
	for id, p := range pos {
		q := r2.Add(center, r2.Scale(scale, r2.Sub(p, mid)))
		if math.IsNaN(q.X) || math.IsNaN(q.Y) {
			q = center
		}
		out[id] = q
	}
	return out
}

func radius(outDegree int) float64 {
	return math.Min(baseRadius+float64(outDegree), maxRadius)
}

// SVG writes a static drawing of g using the spring layout.
func SVG(w io.Writer, g *graph.ImportGraph, o Options) error {
	pos := Layout(g, svgWidth, svgHeight, svgPadding)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		svgWidth, svgHeight, svgWidth, svgHeight)
	fmt.Fprintf(bw, "<title>%s</title>\n", html.EscapeString(o.Title))
	bw.WriteString(`<defs><marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">` +
		`<path d="M 0 0 L 10 5 L 0 10 z" fill="gray"/></marker></defs>` + "\n")
	bw.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	bw.WriteString(`<g stroke="gray" stroke-opacity="0.7" stroke-width="1">` + "\n")
	for _, e := range g.Edges() {
		from, _ := g.Node(e[0])
		to, _ := g.Node(e[1])
		if from == to {
			continue
		}
		a, b := pos[from.ID()], pos[to.ID()]
		// stop the arrow at the target's border
		d := r2.Sub(b, a)
		if n := r2.Norm(d); n > 0 {
			b = r2.Sub(b, r2.Scale(radius(g.OutDegree(e[1]))/n, d))
		}
		fmt.Fprintf(bw, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" marker-end="url(#arrow)"/>`+"\n", a.X, a.Y, b.X, b.Y)
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g font-family="sans-serif" font-size="11" font-weight="bold">` + "\n")
	for _, label := range g.Nodes() {
		n, _ := g.Node(label)
		p := pos[n.ID()]
		out := g.OutDegree(label)
		r := radius(out)
		fmt.Fprintf(bw, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="black" stroke-width="1"><title>%s (%d)</title></circle>`+"\n",
			p.X, p.Y, r, NodeColor(out, o.Threshold), html.EscapeString(label), out)
		fmt.Fprintf(bw, `<text x="%.1f" y="%.1f">%s</text>`+"\n", p.X+r+2, p.Y+4, html.EscapeString(label))
	}
	bw.WriteString("</g>\n</svg>\n")

	return bw.Flush()
}
