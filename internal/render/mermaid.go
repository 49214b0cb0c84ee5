package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scanlibs/internal/graph"
)

// WriteMermaid writes g as a Mermaid flowchart.
// Linked edges are solid arrows and runtime-only edges are dotted.
func WriteMermaid(w io.Writer, g *graph.Graph) error {
	_, err := io.WriteString(w, mermaidFlowchart(g))
	return err
}

// mermaidFlowchart returns the flowchart source without a code fence.
func mermaidFlowchart(g *graph.Graph) string {
	c := collect(g)
	ids := make(map[string]string, len(c.nodes))

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for i, n := range c.nodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.ID] = id
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, mermaidEscape(n.ID))
	}
	for _, e := range c.edges {
		arrow := "-->"
		if e.Kind == graph.RuntimeOnly {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", ids[e.From], arrow, ids[e.To])
	}

	var inputs, unparseable []string
	for _, n := range c.nodes {
		if n.Attrs.Input {
			inputs = append(inputs, ids[n.ID])
		}
		if n.Attrs.Unparseable {
			unparseable = append(unparseable, ids[n.ID])
		}
	}
	if len(inputs) > 0 {
		fmt.Fprintf(&b, "    classDef input fill:%s\n", inputFill)
		fmt.Fprintf(&b, "    class %s input\n", strings.Join(inputs, ","))
	}
	if len(unparseable) > 0 {
		fmt.Fprintf(&b, "    classDef unparseable stroke:%s\n", unparseableColor)
		fmt.Fprintf(&b, "    class %s unparseable\n", strings.Join(unparseable, ","))
	}
	return b.String()
}

// mermaidEscape replaces characters that end a quoted Mermaid label.
func mermaidEscape(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "\n", " ").Replace(s)
}
