package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/scanlibs/internal/database"
	"github.com/nao1215/scanlibs/internal/graph"
	"github.com/nao1215/scanlibs/internal/model"
)

// ComparisonResult holds the differences between two stored scans.
type ComparisonResult struct {
	// PreviousScan describes the older scan.
	PreviousScan ScanInfo `json:"previous_scan"`

	// CurrentScan describes the newer scan.
	CurrentScan ScanInfo `json:"current_scan"`

	// AddedFiles are files only present in the current scan.
	AddedFiles []string `json:"added_files,omitempty"`

	// RemovedFiles are files only present in the previous scan.
	RemovedFiles []string `json:"removed_files,omitempty"`

	// NewlyUnparseable are files present in both scans that are no longer
	// readable as ELF.
	NewlyUnparseable []string `json:"newly_unparseable,omitempty"`

	// AddedEdges are dependencies only present in the current scan.
	AddedEdges []EdgeChange `json:"added_edges,omitempty"`

	// RemovedEdges are dependencies only present in the previous scan.
	RemovedEdges []EdgeChange `json:"removed_edges,omitempty"`

	// KindChanges are dependencies whose kind changed between scans.
	KindChanges []EdgeChange `json:"kind_changes,omitempty"`

	// UnchangedEdges is the number of dependencies present in both scans
	// with the same kind.
	UnchangedEdges int `json:"unchanged_edges"`
}

// ScanInfo contains metadata about a scan for comparison display.
type ScanInfo struct {
	ID        int64          `json:"id"`
	Label     string         `json:"label"`
	Timestamp time.Time      `json:"timestamp"`
	Summary   *model.Summary `json:"summary,omitempty"`
}

// EdgeChange is one dependency of one file.
type EdgeChange struct {
	File    string `json:"file"`
	Library string `json:"library"`
	// Kind is the kind in the current scan, or in the previous scan for
	// removed edges.
	Kind string `json:"kind"`
}

// HasChanges reports whether the scans differ.
func (r *ComparisonResult) HasChanges() bool {
	return len(r.AddedFiles)+len(r.RemovedFiles)+len(r.NewlyUnparseable)+
		len(r.AddedEdges)+len(r.RemovedEdges)+len(r.KindChanges) > 0
}

func newScanInfo(s *database.Scan) ScanInfo {
	sum := s.Summary
	if sum == nil {
		sum = model.NewSummary(s.Stream)
	}
	return ScanInfo{ID: s.ID, Label: s.Label, Timestamp: s.Timestamp, Summary: sum}
}

// edgeKey identifies a dependency of a file.
type edgeKey struct {
	file    string
	library string
}

// edgeKinds returns the dependency kinds of s keyed by file and library,
// and the keys in stream order.
func edgeKinds(s model.Stream) (map[edgeKey]graph.EdgeKind, []edgeKey) {
	kinds := make(map[edgeKey]graph.EdgeKind)
	var order []edgeKey
	for _, r := range s {
		for _, name := range r.Outcome.All() {
			k := edgeKey{file: r.Path, library: name}
			if _, ok := kinds[k]; ok {
				continue
			}
			kind := graph.RuntimeOnly
			if r.Outcome.IsLinked(name) {
				kind = graph.Linked
			}
			kinds[k] = kind
			order = append(order, k)
		}
	}
	return kinds, order
}

// compareScans compares two scans. Files are matched by path and
// dependencies by file and library name; results follow stream order.
func compareScans(previous, current *database.Scan) *ComparisonResult {
	result := &ComparisonResult{
		PreviousScan: newScanInfo(previous),
		CurrentScan:  newScanInfo(current),
	}

	prevFiles := make(map[string]model.Outcome, len(previous.Stream))
	for _, r := range previous.Stream {
		prevFiles[r.Path] = r.Outcome
	}
	currFiles := make(map[string]struct{}, len(current.Stream))
	for _, r := range current.Stream {
		currFiles[r.Path] = struct{}{}
		prev, ok := prevFiles[r.Path]
		switch {
		case !ok:
			result.AddedFiles = append(result.AddedFiles, r.Path)
		case r.Outcome.IsUnparseable() && !prev.IsUnparseable():
			result.NewlyUnparseable = append(result.NewlyUnparseable, r.Path)
		}
	}
	for _, r := range previous.Stream {
		if _, ok := currFiles[r.Path]; !ok {
			result.RemovedFiles = append(result.RemovedFiles, r.Path)
		}
	}

	prevEdges, prevOrder := edgeKinds(previous.Stream)
	currEdges, currOrder := edgeKinds(current.Stream)
	for _, k := range currOrder {
		kind := currEdges[k]
		prevKind, ok := prevEdges[k]
		change := EdgeChange{File: k.file, Library: k.library, Kind: kind.String()}
		switch {
		case !ok:
			result.AddedEdges = append(result.AddedEdges, change)
		case prevKind != kind:
			result.KindChanges = append(result.KindChanges, change)
		default:
			result.UnchangedEdges++
		}
	}
	for _, k := range prevOrder {
		if _, ok := currEdges[k]; !ok {
			result.RemovedEdges = append(result.RemovedEdges, EdgeChange{File: k.file, Library: k.library, Kind: prevEdges[k].String()})
		}
	}

	return result
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)
	prev, curr := result.PreviousScan, result.CurrentScan

	md.H1("Scan Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Scan", scanTitle(prev), scanTitle(curr), "-"},
			{"Date", prev.Timestamp.Format("2006-01-02 15:04"), curr.Timestamp.Format("2006-01-02 15:04"), "-"},
			summaryRow("Files", prev.Summary.Inputs, curr.Summary.Inputs),
			summaryRow("Not ELF", prev.Summary.Unparseable, curr.Summary.Unparseable),
			summaryRow("Linked references", prev.Summary.LinkedRefs, curr.Summary.LinkedRefs),
			summaryRow("Runtime-only references", prev.Summary.RuntimeRefs, curr.Summary.RuntimeRefs),
			summaryRow("Distinct libraries", prev.Summary.DistinctLibraries, curr.Summary.DistinctLibraries),
		},
	})
	md.PlainText("")

	if !result.HasChanges() {
		md.Note("No dependency changes between the two scans.")
		return md.Build()
	}

	fileTable := func(title string, files []string) {
		if len(files) == 0 {
			return
		}
		rows := make([][]string, len(files))
		for i, f := range files {
			rows[i] = []string{"`" + f + "`"}
		}
		md.H2(fmt.Sprintf("%s (%d)", title, len(files)))
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"File"}, Rows: rows})
		md.PlainText("")
	}
	edgeTable := func(title string, edges []EdgeChange) {
		if len(edges) == 0 {
			return
		}
		rows := make([][]string, len(edges))
		for i, e := range edges {
			rows[i] = []string{"`" + e.File + "`", "`" + e.Library + "`", e.Kind}
		}
		md.H2(fmt.Sprintf("%s (%d)", title, len(edges)))
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"File", "Library", "Kind"}, Rows: rows})
		md.PlainText("")
	}

	fileTable("Added Files", result.AddedFiles)
	fileTable("Removed Files", result.RemovedFiles)
	fileTable("Newly Unparseable Files", result.NewlyUnparseable)
	edgeTable("Added Dependencies", result.AddedEdges)
	edgeTable("Removed Dependencies", result.RemovedEdges)
	edgeTable("Changed Dependency Kinds", result.KindChanges)

	if result.UnchangedEdges > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d dependencies unchanged*", result.UnchangedEdges)
	}
	return md.Build()
}

func scanTitle(s ScanInfo) string {
	if s.Label == "" {
		return "#" + strconv.FormatInt(s.ID, 10)
	}
	return "#" + strconv.FormatInt(s.ID, 10) + " " + s.Label
}

func summaryRow(name string, prev, curr int) []string {
	return []string{name, strconv.Itoa(prev), strconv.Itoa(curr), formatDelta(curr - prev)}
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	prev, curr := result.PreviousScan, result.CurrentScan

	fmt.Fprintf(out, "Scan Comparison: %s -> %s\n", scanTitle(prev), scanTitle(curr))
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious scan: %s\n", prev.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current scan:  %s\n", curr.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-24s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, row := range [][]string{
		summaryRow("Files", prev.Summary.Inputs, curr.Summary.Inputs),
		summaryRow("Not ELF", prev.Summary.Unparseable, curr.Summary.Unparseable),
		summaryRow("Linked references", prev.Summary.LinkedRefs, curr.Summary.LinkedRefs),
		summaryRow("Runtime-only references", prev.Summary.RuntimeRefs, curr.Summary.RuntimeRefs),
		summaryRow("Distinct libraries", prev.Summary.DistinctLibraries, curr.Summary.DistinctLibraries),
	} {
		fmt.Fprintf(out, "  %-24s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if !result.HasChanges() {
		fmt.Fprintln(out, "\nNo dependency changes.")
		return nil
	}

	printFiles := func(title, mark string, files []string) {
		if len(files) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s (%d):\n", title, len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  [%s] %s\n", mark, f)
		}
	}
	printEdges := func(title, mark string, edges []EdgeChange) {
		if len(edges) == 0 {
			return
		}
		fmt.Fprintf(out, "\n%s (%d):\n", title, len(edges))
		for _, e := range edges {
			fmt.Fprintf(out, "  [%s] %s -> %s (%s)\n", mark, e.File, e.Library, e.Kind)
		}
	}

	printFiles("Added Files", "+", result.AddedFiles)
	printFiles("Removed Files", "-", result.RemovedFiles)
	printFiles("Newly Unparseable Files", "!", result.NewlyUnparseable)
	printEdges("Added Dependencies", "+", result.AddedEdges)
	printEdges("Removed Dependencies", "-", result.RemovedEdges)
	printEdges("Changed Dependency Kinds", "~", result.KindChanges)

	if result.UnchangedEdges > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d dependencies\n", result.UnchangedEdges)
	}
	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
