package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/scanlibs/internal/model"
)

// maxListedNames bounds the dependency cells of the file table.
const maxListedNames = 8

// MarkdownWriter outputs a scan summary in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs s as a Markdown document.
func (w *MarkdownWriter) Write(s model.Stream) (int, error) {
	sum := model.NewSummary(s)
	md := markdown.NewMarkdown(w.output)

	md.H1("Library Dependency Report")
	md.PlainText("")
	w.writeSummary(md, sum)
	w.writeTopLibraries(md, sum)
	w.writeFiles(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, sum *model.Summary) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Scanned files", strconv.Itoa(sum.Inputs)},
			{"Unparseable files", strconv.Itoa(sum.Unparseable)},
			{"Files without dependencies", strconv.Itoa(sum.NoDependencies)},
			{"Linked references", strconv.Itoa(sum.LinkedRefs)},
			{"Runtime-only references", strconv.Itoa(sum.RuntimeRefs)},
			{"Distinct libraries", strconv.Itoa(sum.DistinctLibraries)},
		},
	})
	md.PlainText("")

	withDeps := sum.Inputs - sum.Unparseable - sum.NoDependencies
	if sum.Inputs > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Scanned Files"),
			piechart.WithShowData(true),
		)
		if withDeps > 0 {
			chart.LabelAndIntValue("With dependencies", uint64(withDeps))
		}
		if sum.NoDependencies > 0 {
			chart.LabelAndIntValue("No dependencies", uint64(sum.NoDependencies))
		}
		if sum.Unparseable > 0 {
			chart.LabelAndIntValue("Not ELF", uint64(sum.Unparseable))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case sum.Inputs == 0:
		md.Note("No files were scanned.")
	case sum.Unparseable == sum.Inputs:
		md.Warningf("None of the %d scanned file(s) is an ELF image.", sum.Inputs)
	case sum.Unparseable > 0:
		md.Importantf("%d of %d scanned file(s) are not ELF images.", sum.Unparseable, sum.Inputs)
	case !sum.HasDependencies():
		md.Tip("No library dependencies remain after exclusions.")
	default:
		md.Note("Runtime-only references are library names found in read-only data; they may be loaded with dlopen.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopLibraries(md *markdown.Markdown, sum *model.Summary) {
	if len(sum.TopLibraries) == 0 {
		return
	}
	rows := make([][]string, len(sum.TopLibraries))
	for i, lib := range sum.TopLibraries {
		rows[i] = []string{"`" + lib.Name + "`", strconv.Itoa(lib.Dependents)}
	}
	md.H2("Most Used Libraries")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Library", "Dependents"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, s model.Stream) {
	if len(s) == 0 {
		return
	}
	rows := make([][]string, len(s))
	for i, r := range s {
		if r.Outcome.IsUnparseable() {
			rows[i] = []string{"`" + r.Path + "`", "not ELF", "-"}
			continue
		}
		rows[i] = []string{"`" + r.Path + "`", joinNames(r.Outcome.Linked()), joinNames(r.Outcome.Runtime())}
	}
	md.H2("Files")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"File", "Linked", "Runtime only"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scanlibs](https://github.com/nao1215/scanlibs)*")
}

// joinNames formats names for a table cell, eliding past maxListedNames.
func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	if len(names) > maxListedNames {
		extra := len(names) - maxListedNames
		names = append(names[:maxListedNames:maxListedNames], "… +"+strconv.Itoa(extra))
	}
	return strings.Join(names, ", ")
}
