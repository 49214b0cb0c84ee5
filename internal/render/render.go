package render

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/scanlibs/internal/graph"
)

// Format names a graph description language.
type Format string

const (
	// FormatDOT is Graphviz DOT.
	FormatDOT Format = "dot"
	// FormatMermaid is a Mermaid flowchart.
	FormatMermaid Format = "mermaid"
	// FormatMarkdown is a Markdown document with an embedded Mermaid chart.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown plot format")

// Formats returns the supported format names.
func Formats() []string {
	return []string{string(FormatDOT), string(FormatMermaid), string(FormatMarkdown)}
}

// ParseFormat converts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatDOT, "gv":
		return FormatDOT, nil
	case FormatMermaid, "mmd":
		return FormatMermaid, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, s, strings.Join(Formats(), ", "))
}

// FormatFromPath picks a format from the extension of path, falling back
// to DOT.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmd", ".mermaid":
		return FormatMermaid
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatDOT
	}
}

// Render writes g to w in format f.
func Render(w io.Writer, g *graph.Graph, f Format) error {
	switch f {
	case FormatDOT:
		return WriteDOT(w, g)
	case FormatMermaid:
		return WriteMermaid(w, g)
	case FormatMarkdown:
		return NewMarkdownWriter(w).Write(g)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// collector buffers what a graph emits so a renderer can write nodes and
// edges in separate passes.
type collector struct {
	nodes []graph.Node
	edges []graph.Edge
}

func (c *collector) AddNode(id string, attrs graph.NodeAttrs) {
	c.nodes = append(c.nodes, graph.Node{ID: id, Attrs: attrs})
}

func (c *collector) AddEdge(from, to string, kind graph.EdgeKind) {
	c.edges = append(c.edges, graph.Edge{From: from, To: to, Kind: kind})
}

func collect(g *graph.Graph) *collector {
	c := &collector{}
	g.Emit(c)
	return c
}
