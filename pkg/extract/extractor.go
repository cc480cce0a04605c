// Package extract pulls base-module import names out of Python source using
// a tree-sitter syntax tree.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/ritzau/pyimport-graph/pkg/model"
)

// ErrSyntax is returned by Parse when the source does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

// Tree-sitter node types of the Python grammar that carry imports.
const (
	nodeImport         = "import_statement"
	nodeImportFrom     = "import_from_statement"
	nodeFutureImport   = "future_import_statement"
	nodeDottedName     = "dotted_name"
	nodeAliasedImport  = "aliased_import"
	nodeRelativeImport = "relative_import"
	nodeError          = "ERROR"

	futureModule = "__future__"
)

// Extractor turns one file's source into its set of ImportPairs.
// It owns a tree-sitter parser and is not safe for concurrent use.
type Extractor struct {
	parser *sitter.Parser
}

// New creates an Extractor for Python source.
func New() *Extractor {
	parser := sitter.NewParser()
	parser.SetLanguage(sitter.NewLanguage(python.GetLanguage()))

	return &Extractor{parser: parser}
}

// Extract returns the ImportPairs of filename. Source that fails to parse
// yields an empty result; no error is reported.
func (e *Extractor) Extract(filename string, src []byte) []model.ImportPair {
	pairs, err := e.Parse(filename, src)
	if err != nil {
		return nil
	}
	return pairs
}

// Parse is Extract with the parse failure exposed. On error the returned
// slice is always nil; partial results from a broken tree are never used.
func (e *Extractor) Parse(filename string, src []byte) ([]model.ImportPair, error) {
	tree, err := e.parser.ParseString(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSyntax, filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: %s: empty syntax tree", ErrSyntax, filename)
	}
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s: line %d", ErrSyntax, filename, errorLine(root))
	}

	c := &collector{
		file: filepath.Base(filename),
		src:  src,
		seen: make(map[model.ImportPair]bool),
	}
	c.walk(root)

	return c.pairs, nil
}

// BaseModule returns the first dotted segment of a module name:
// "a.b.c" -> "a", "os" -> "os".
func BaseModule(dotted string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(dotted), ".")
	return strings.TrimSpace(base)
}

// collector accumulates pairs for one file with set semantics, keeping
// first-occurrence order.
type collector struct {
	file  string
	src   []byte
	seen  map[model.ImportPair]bool
	pairs []model.ImportPair
}

func (c *collector) add(module string) {
	if module == "" {
		return
	}
	p := model.ImportPair{File: c.file, Module: module}
	if c.seen[p] {
		return
	}
	c.seen[p] = true
	c.pairs = append(c.pairs, p)
}

// walk visits every named node; imports may sit inside functions, classes,
// try/except and if blocks.
func (c *collector) walk(n sitter.Node) {
	switch n.Type() {
	case nodeImport:
		c.importStatement(n)
		return
	case nodeImportFrom:
		c.fromStatement(n)
		return
	case nodeFutureImport:
		c.add(futureModule)
		return
	}

	for i := range n.NamedChildCount() {
		c.walk(n.NamedChild(i))
	}
}

// import a.b.c, d as e
func (c *collector) importStatement(n sitter.Node) {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		switch child.Type() {
		case nodeDottedName:
			c.add(c.firstSegment(child))
		case nodeAliasedImport:
			if name := child.ChildByFieldName("name"); !name.IsNull() {
				c.add(c.firstSegment(name))
			}
		}
	}
}

// from a.b import c / from .a import b / from . import c
func (c *collector) fromStatement(n sitter.Node) {
	module := n.ChildByFieldName("module_name")
	if module.IsNull() {
		return
	}

	switch module.Type() {
	case nodeDottedName:
		c.add(c.firstSegment(module))
	case nodeRelativeImport:
		// Leading dots are not part of the module name; a bare "." has none
		for i := range module.NamedChildCount() {
			child := module.NamedChild(i)
			if child.Type() == nodeDottedName {
				c.add(c.firstSegment(child))
				return
			}
		}
	}
}

func (c *collector) firstSegment(dotted sitter.Node) string {
	if dotted.Type() == nodeDottedName && dotted.NamedChildCount() > 0 {
		return strings.TrimSpace(dotted.NamedChild(0).Content(c.src))
	}
	return BaseModule(dotted.Content(c.src))
}

// errorLine finds the 1-based line of the first ERROR or MISSING node.
func errorLine(n sitter.Node) int {
	if n.Type() == nodeError || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := range n.ChildCount() {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return errorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}
