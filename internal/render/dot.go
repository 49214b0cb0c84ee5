package render

import (
	"io"

	"github.com/emicklei/dot"

	"github.com/nao1215/scanlibs/internal/graph"
)

// Node and edge colors. Scanned files are filled, non-ELF inputs get a red
// border and runtime-only edges are orange.
const (
	inputFill        = "bisque"
	unparseableColor = "red"
	runtimeColor     = "orange"
)

// dotGraphID names the emitted digraph.
const dotGraphID = "dependencies"

// dotSink builds a Graphviz digraph from what a graph.Graph emits.
type dotSink struct {
	g *dot.Graph
}

var _ graph.Sink = (*dotSink)(nil)

func newDOTSink() *dotSink {
	g := dot.NewGraph(dot.Directed)
	g.ID(dotGraphID)
	g.Attr("rankdir", "LR")
	g.Attr("overlap", "false")
	return &dotSink{g: g}
}

func (s *dotSink) AddNode(id string, attrs graph.NodeAttrs) {
	n := s.g.Node(id).Attr("label", id)
	if attrs.Input {
		n.Attr("style", "filled").Attr("fillcolor", inputFill)
	}
	if attrs.Unparseable {
		n.Attr("color", unparseableColor)
	}
}

func (s *dotSink) AddEdge(from, to string, kind graph.EdgeKind) {
	e := s.g.Edge(s.g.Node(from), s.g.Node(to))
	if kind == graph.RuntimeOnly {
		e.Attr("color", runtimeColor)
	}
}

// WriteDOT writes g as a Graphviz digraph laid out left to right.
func WriteDOT(w io.Writer, g *graph.Graph) error {
	s := newDOTSink()
	g.Emit(s)
	_, err := io.WriteString(w, s.g.String())
	return err
}
