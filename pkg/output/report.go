package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/model"
)

// maxSkippedListed caps the skipped-file listing.
const maxSkippedListed = 20

// WriteReport prints a colored summary of a scan and a table of the graph's
// nodes, busiest first. scan may be nil.
func WriteReport(w io.Writer, g *graph.ImportGraph, scan *model.ScanResult, threshold int) error {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Python Import Graph")
	bold.Fprintln(w, "===================")

	if scan != nil {
		fmt.Fprintf(w, "Root: %s\n", scan.Root)
		fmt.Fprintf(w, "Scanned: %s source files (%s), %s with imports\n",
			humanize.Comma(int64(scan.Files)),
			humanize.Bytes(uint64(scan.Bytes)),
			humanize.Comma(int64(len(model.Files(scan.Pairs)))))
		if scan.Cached > 0 {
			cyan.Fprintf(w, "Cached: %d files\n", scan.Cached)
		}
		if len(scan.Skipped) == 0 {
			green.Fprintln(w, "Skipped: 0 files")
		} else {
			yellow.Fprintf(w, "Skipped: %d file(s) (parse %d, read %d, binary %d)\n",
				len(scan.Skipped),
				scan.SkippedBy(model.SkipParse),
				scan.SkippedBy(model.SkipRead),
				scan.SkippedBy(model.SkipBinary))
		}
		fmt.Fprintf(w, "Duration: %s\n", scan.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Graph: %s nodes, %s edges\n",
		humanize.Comma(int64(g.NodeCount())), humanize.Comma(int64(g.EdgeCount())))
	fmt.Fprintln(w)

	if g.NodeCount() > 0 {
		fmt.Fprintln(w, nodeTable(g, threshold, red))
		fmt.Fprintln(w)
	}

	if scan != nil && len(scan.Skipped) > 0 {
		red.Fprintln(w, "SKIPPED FILES:")
		for i, s := range scan.Skipped {
			if i == maxSkippedListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(scan.Skipped)-maxSkippedListed)
				break
			}
			yellow.Fprintf(w, "  %s", s.Path)
			fmt.Fprintf(w, " [%s]\n", s.Reason)
		}
		fmt.Fprintln(w)
	}

	hubs := g.Hubs(threshold)
	if len(hubs) == 0 {
		green.Fprintf(w, "No hubs (out-degree > %d)\n", threshold)
	} else {
		red.Fprintf(w, "Hubs (out-degree > %d): %d\n", threshold, len(hubs))
	}
	return nil
}

func nodeTable(g *graph.ImportGraph, threshold int, hubColor *color.Color) string {
	labels := g.Nodes()
	sort.SliceStable(labels, func(i, j int) bool {
		return g.OutDegree(labels[i]) > g.OutDegree(labels[j])
	})

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Node", "Kind", "Imports", "Imported by"})

	for _, label := range labels {
		out := g.OutDegree(label)
		name := label
		if graph.IsHub(out, threshold) {
			name = hubColor.Sprint(label)
		}
		tbl.AppendRow(table.Row{name, g.Kind(label), out, g.InDegree(label)})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d nodes", len(labels))})
	return tbl.Render()
}
