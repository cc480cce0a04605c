package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

func testGraph() *graph.ImportGraph {
	g := graph.Build([]model.ImportPair{
		{File: "a.py", Module: "os"},
		{File: "a.py", Module: "sys"},
		{File: "b.py", Module: "os"},
	})
	for i := range 6 {
		g.AddImport("hub.py", fmt.Sprintf("mod%d", i))
	}
	return g
}

func testOptions(f Format) Options {
	o := DefaultOptions()
	o.Format = f
	o.Root = "/srv/app"
	return o
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseFormat("png")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNodeColor(t *testing.T) {
	assert.Equal(t, LeafColor, NodeColor(0, 5))
	assert.Equal(t, LeafColor, NodeColor(5, 5))
	assert.Equal(t, HubColor, NodeColor(6, 5))
}

func TestRenderDOT(t *testing.T) {
	g := testGraph()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, testOptions(FormatDOT)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "strict digraph imports {") || strings.HasPrefix(out, "digraph imports {"), out)
	assert.Equal(t, g.EdgeCount(), strings.Count(out, "->"))
	assert.Contains(t, out, "fillcolor="+HubColor)
	assert.Contains(t, out, "fillcolor="+LeafColor)
	for _, label := range g.Nodes() {
		assert.Contains(t, out, label)
	}
}

func TestRenderJSON(t *testing.T) {
	g := testGraph()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, testOptions(FormatJSON)))

	var m model.Graph
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "/srv/app", m.Root)
	assert.Equal(t, graph.DefaultHubThreshold, m.Threshold)
	assert.Len(t, m.Nodes, g.NodeCount())
	assert.Len(t, m.Edges, g.EdgeCount())

	hub := m.Node("hub.py")
	require.NotNil(t, hub)
	assert.True(t, hub.Hub)
	assert.Equal(t, 6, hub.OutDegree)
	assert.False(t, m.Node("a.py").Hub)
}

func TestRenderSVG(t *testing.T) {
	g := testGraph()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, testOptions(FormatSVG)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Equal(t, g.NodeCount(), strings.Count(out, "<circle "))
	assert.Equal(t, g.EdgeCount(), strings.Count(out, "<line "))
	assert.Equal(t, 1, strings.Count(out, `fill="`+HubColor+`"`))
	assert.NotContains(t, out, "NaN")
}

func TestRenderSVGEmptyAndSingle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, graph.NewImportGraph(), DefaultOptions()))
	assert.Equal(t, 0, strings.Count(buf.String(), "<circle "))

	g := graph.NewImportGraph()
	g.AddFile("lonely.py")
	pos := Layout(g, 100, 100, 10)
	require.Len(t, pos, 1)
	for _, p := range pos {
		assert.InDelta(t, 50, p.X, 1e-9)
		assert.InDelta(t, 50, p.Y, 1e-9)
	}
}

func TestLayoutFitsCanvas(t *testing.T) {
	g := testGraph()
	pos := Layout(g, 800, 600, 50)

	require.Len(t, pos, g.NodeCount())
	for id, p := range pos {
		assert.GreaterOrEqual(t, p.X, 0.0, "node %d", id)
		assert.LessOrEqual(t, p.X, 800.0, "node %d", id)
		assert.GreaterOrEqual(t, p.Y, 0.0, "node %d", id)
		assert.LessOrEqual(t, p.Y, 600.0, "node %d", id)
	}
}

func TestRenderHTML(t *testing.T) {
	g := testGraph()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, testOptions(FormatHTML)))
	out := buf.String()

	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "force")
	for _, label := range g.Nodes() {
		assert.Contains(t, out, label)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testGraph(), testOptions(FormatText)))
	assert.Contains(t, buf.String(), "hub.py")
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, testGraph(), testOptions("png"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, WriteFile(path, testGraph(), testOptions(FormatJSON)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hub.py"`)

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "graph.json"), testGraph(), testOptions(FormatJSON))
	require.Error(t, err)
}
