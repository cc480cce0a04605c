package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ritzau/pyimport-graph/pkg/graph"
)

const (
	chartWidth  = "100%"
	chartHeight = "900px"

	baseSymbolSize = 12
	maxSymbolSize  = 40
)

// HTML writes a self-contained interactive page with a force layout.
func HTML(w io.Writer, g *graph.ImportGraph, o Options) error {
	return NewGraphChart(g, o).Render(w)
}

// NewGraphChart builds the echarts force graph for g.
func NewGraphChart(g *graph.ImportGraph, o Options) *charts.Graph {
	chart := charts.NewGraph()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Root}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	nodes := make([]opts.GraphNode, 0, g.NodeCount())
	for _, label := range g.Nodes() {
		out := g.OutDegree(label)
		nodes = append(nodes, opts.GraphNode{
			Name:       label,
			Value:      float32(out),
			SymbolSize: symbolSize(out),
			ItemStyle: &opts.ItemStyle{
				Color:       NodeColor(out, o.Threshold),
				BorderColor: "black",
				BorderWidth: 1,
			},
		})
	}

	links := make([]opts.GraphLink, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		links = append(links, opts.GraphLink{Source: e[0], Target: e[1]})
	}

	chart.AddSeries("imports", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:         "force",
			Roam:           opts.Bool(true),
			Draggable:      opts.Bool(true),
			EdgeSymbol:     []string{"none", "arrow"},
			EdgeSymbolSize: []int{4, 8},
			Force: &opts.GraphForce{
				Repulsion:  300,
				Gravity:    0.05,
				EdgeLength: 120,
			},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right", Color: "black"}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: "gray", Opacity: opts.Float(0.7)}),
	)

	return chart
}

func symbolSize(outDegree int) int {
	return min(baseSymbolSize+2*outDegree, maxSymbolSize)
}
