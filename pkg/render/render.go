// Package render draws an import graph in one of several output formats.
package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ritzau/pyimport-graph/pkg/graph"
	"github.com/ritzau/pyimport-graph/pkg/model"
	"github.com/ritzau/pyimport-graph/pkg/output"
)

// Format is an output format name.
type Format string

const (
	FormatHTML Format = "html"
	FormatSVG  Format = "svg"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ErrUnknownFormat is returned for a format name that has no renderer.
var ErrUnknownFormat = errors.New("unknown format")

// Node colors. Hubs stand out from everything else.
const (
	HubColor  = "red"
	LeafColor = "skyblue"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatHTML, FormatSVG, FormatDOT, FormatJSON, FormatText}
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// NodeColor is the display color for a node with the given out-degree.
func NodeColor(outDegree, threshold int) string {
	if graph.IsHub(outDegree, threshold) {
		return HubColor
	}
	return LeafColor
}

// Options controls rendering.
type Options struct {
	Format    Format
	Threshold int
	Title     string
	Root      string
	// Scan adds scan statistics to the text report. Optional.
	Scan *model.ScanResult
}

// DefaultOptions renders HTML with the default hub threshold.
func DefaultOptions() Options {
	return Options{
		Format:    FormatHTML,
		Threshold: graph.DefaultHubThreshold,
		Title:     "Python import graph",
	}
}

// Render writes g to w in opts.Format.
func Render(w io.Writer, g *graph.ImportGraph, opts Options) error {
	switch opts.Format {
	case FormatHTML, "":
		return HTML(w, g, opts)
	case FormatSVG:
		return SVG(w, g, opts)
	case FormatDOT:
		return DOT(w, g, opts)
	case FormatJSON:
		return JSON(w, g, opts)
	case FormatText:
		return output.WriteReport(w, g, opts.Scan, opts.Threshold)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

// WriteFile renders g to path. An empty path or "-" writes to stdout.
func WriteFile(path string, g *graph.ImportGraph, opts Options) (err error) {
	if path == "" || path == "-" {
		bw := bufio.NewWriter(os.Stdout)
		if err := Render(bw, g, opts); err != nil {
			return err
		}
		return bw.Flush()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Render(bw, g, opts); err != nil {
		return fmt.Errorf("rendering %s: %w", opts.Format, err)
	}
	return bw.Flush()
}
