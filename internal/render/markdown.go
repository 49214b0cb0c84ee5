package render

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/scanlibs/internal/graph"
)

// maxListedLibraries bounds the "most depended on" table.
const maxListedLibraries = 10

// MarkdownWriter writes a graph as a Markdown document.
type MarkdownWriter struct {
	output io.Writer
	title  string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w, title: "Dependency Graph"}
}

// Write renders g with a summary table, an edge kind chart and the
// Mermaid flowchart.
func (w *MarkdownWriter) Write(g *graph.Graph) error {
	c := collect(g)
	md := markdown.NewMarkdown(w.output)

	md.H1(w.title)
	md.PlainText("")
	w.writeSummary(md, c)
	w.writeChart(md, c)

	md.H2("Graph")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, mermaidFlowchart(g))
	md.PlainText("")

	w.writeLibraries(md, c)
	w.writeUnparseable(md, c)

	return md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, c *collector) {
	var inputs, unparseable int
	for _, n := range c.nodes {
		if n.Attrs.Input {
			inputs++
		}
		if n.Attrs.Unparseable {
			unparseable++
		}
	}
	linked, runtime := edgeCounts(c)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Nodes", strconv.Itoa(len(c.nodes))},
			{"Scanned files", strconv.Itoa(inputs)},
			{"Unparseable files", strconv.Itoa(unparseable)},
			{"Linked edges", strconv.Itoa(linked)},
			{"Runtime-only edges", strconv.Itoa(runtime)},
		},
	})
	md.PlainText("")
}

// writeChart writes a pie chart of edge kinds when the graph has edges.
func (w *MarkdownWriter) writeChart(md *markdown.Markdown, c *collector) {
	linked, runtime := edgeCounts(c)
	if linked+runtime == 0 {
		md.Note("No dependencies were found.")
		md.PlainText("")
		return
	}

	title := cases.Title(language.English)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Dependency Kinds"),
		piechart.WithShowData(true),
	)
	if linked > 0 {
		chart.LabelAndIntValue(title.String(graph.Linked.String()), uint64(linked))
	}
	if runtime > 0 {
		chart.LabelAndIntValue(title.String(graph.RuntimeOnly.String()), uint64(runtime))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeLibraries lists the libraries with the most incoming edges.
func (w *MarkdownWriter) writeLibraries(md *markdown.Markdown, c *collector) {
	dependents := make(map[string]int)
	for _, e := range c.edges {
		dependents[e.To]++
	}
	if len(dependents) == 0 {
		return
	}

	names := make([]string, 0, len(dependents))
	for name := range dependents {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if dependents[names[i]] != dependents[names[j]] {
			return dependents[names[i]] > dependents[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxListedLibraries {
		names = names[:maxListedLibraries]
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{"`" + name + "`", strconv.Itoa(dependents[name])})
	}
	md.H2("Most Depended-On Libraries")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Library", "Dependents"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeUnparseable(md *markdown.Markdown, c *collector) {
	var names []string
	for _, n := range c.nodes {
		if n.Attrs.Unparseable {
			names = append(names, "`"+n.ID+"`")
		}
	}
	if len(names) == 0 {
		return
	}
	md.H2("Unparseable Files")
	md.PlainText("")
	md.Warningf("%d scanned file(s) are not ELF images.", len(names))
	md.PlainText("")
	md.BulletList(names...)
	md.PlainText("")
}

func edgeCounts(c *collector) (linked, runtime int) {
	for _, e := range c.edges {
		if e.Kind == graph.Linked {
			linked++
		} else {
			runtime++
		}
	}
	return linked, runtime
}
