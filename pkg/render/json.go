package render

import (
	"encoding/json"
	"io"

	"github.com/ritzau/pyimport-graph/pkg/graph"
)

// JSON writes the serializable graph view, indented.
func JSON(w io.Writer, g *graph.ImportGraph, opts Options) error {
	m := g.Model(opts.Threshold)
	m.Root = opts.Root

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
