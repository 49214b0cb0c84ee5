package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/scanlibs/internal/database"
	"github.com/nao1215/scanlibs/internal/depsfile"
	"github.com/nao1215/scanlibs/internal/model"
)

// mustStream decodes a deps file literal.
func mustStream(t *testing.T, deps string) model.Stream {
	t.Helper()
	s, err := depsfile.Unmarshal([]byte(deps))
	if err != nil {
		t.Fatalf("invalid deps literal: %v", err)
	}
	return s
}

// seedHistory stores the given deps files as scans, oldest first, and
// returns the database directory.
func seedHistory(t *testing.T, scans ...string) string {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for i, deps := range scans {
		label := "scan-" + string(rune('a'+i))
		if _, err := db.SaveScan(context.Background(), label, mustStream(t, deps)); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
	}
	return dir
}

const (
	historyBefore = `bin/app
  libfoo.so
  .
  libplugin.so
bin/tool
  libbar.so
bin/old
  libfoo.so
`
	historyAfter = `bin/app
  libfoo.so
  libplugin.so
bin/tool
  libbar.so
  libnew.so
# bin/old
bin/extra
  libfoo.so
`
)

// TestCompareScans tests the difference between two scans.
func TestCompareScans(t *testing.T) {
	t.Parallel()

	previous := &database.Scan{
		ScanMetadata: database.ScanMetadata{ID: 1, Timestamp: time.Unix(0, 0)},
		Stream:       mustStream(t, historyBefore),
	}
	current := &database.Scan{
		ScanMetadata: database.ScanMetadata{ID: 2, Timestamp: time.Unix(60, 0)},
		Stream:       mustStream(t, historyAfter),
	}

	result := compareScans(previous, current)

	if got := strings.Join(result.AddedFiles, ","); got != "bin/extra" {
		t.Errorf("added files: got %q", got)
	}
	if len(result.RemovedFiles) != 0 {
		t.Errorf("removed files: got %v", result.RemovedFiles)
	}
	if got := strings.Join(result.NewlyUnparseable, ","); got != "bin/old" {
		t.Errorf("newly unparseable: got %q", got)
	}

	wantAdded := []EdgeChange{
		{File: "bin/tool", Library: "libnew.so", Kind: "linked"},
		{File: "bin/extra", Library: "libfoo.so", Kind: "linked"},
	}
	if len(result.AddedEdges) != len(wantAdded) {
		t.Fatalf("added edges: got %v", result.AddedEdges)
	}
	for i, e := range wantAdded {
		if result.AddedEdges[i] != e {
			t.Errorf("added edge %d: got %+v, expected %+v", i, result.AddedEdges[i], e)
		}
	}

	wantRemoved := EdgeChange{File: "bin/old", Library: "libfoo.so", Kind: "linked"}
	if len(result.RemovedEdges) != 1 || result.RemovedEdges[0] != wantRemoved {
		t.Errorf("removed edges: got %v", result.RemovedEdges)
	}

	wantKind := EdgeChange{File: "bin/app", Library: "libplugin.so", Kind: "linked"}
	if len(result.KindChanges) != 1 || result.KindChanges[0] != wantKind {
		t.Errorf("kind changes: got %v", result.KindChanges)
	}

	// bin/app -> libfoo.so and bin/tool -> libbar.so
	if result.UnchangedEdges != 2 {
		t.Errorf("expected 2 unchanged edges, got %d", result.UnchangedEdges)
	}
	if !result.HasChanges() {
		t.Error("expected HasChanges to be true")
	}
}

// TestCompareScansIdentical tests that identical scans report no changes.
func TestCompareScansIdentical(t *testing.T) {
	t.Parallel()

	s := &database.Scan{Stream: mustStream(t, historyBefore)}
	result := compareScans(s, s)
	if result.HasChanges() {
		t.Errorf("expected no changes, got %+v", result)
	}
	if result.CurrentScan.Summary == nil {
		t.Error("expected summary computed from stream")
	}
}

// TestFormatDelta tests signed deltas.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	for delta, want := range map[int]string{3: "+3", 0: "0", -2: "-2"} {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, expected %q", delta, got, want)
		}
	}
}

// TestComparisonOutputs tests the text, JSON and Markdown renderings.
func TestComparisonOutputs(t *testing.T) {
	t.Parallel()

	result := compareScans(
		&database.Scan{ScanMetadata: database.ScanMetadata{ID: 1, Label: "before"}, Stream: mustStream(t, historyBefore)},
		&database.Scan{ScanMetadata: database.ScanMetadata{ID: 2, Label: "after"}, Stream: mustStream(t, historyAfter)},
	)

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := outputComparisonText(&buf, result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"#1 before -> #2 after",
			"Added Files (1):",
			"[+] bin/extra",
			"[!] bin/old",
			"[+] bin/tool -> libnew.so (linked)",
			"[-] bin/old -> libfoo.so (linked)",
			"[~] bin/app -> libplugin.so (linked)",
			"Unchanged: 2 dependencies",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := outputComparisonJSON(&buf, result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded ComparisonResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.AddedEdges) != 2 || decoded.CurrentScan.Label != "after" {
			t.Errorf("unexpected decoded result: %+v", decoded)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := outputComparisonMarkdown(&buf, result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# Scan Comparison", "## Added Dependencies (2)", "`libnew.so`", "*2 dependencies unchanged*"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("no changes", func(t *testing.T) {
		t.Parallel()
		same := &database.Scan{Stream: mustStream(t, historyBefore)}
		var buf bytes.Buffer
		if err := outputComparisonText(&buf, compareScans(same, same)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No dependency changes.") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

// TestRunHistoryCmd tests the history command against a seeded database.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("empty database list", func(t *testing.T) {
		t.Parallel()
		out, err := executeRoot(t, "history", "--list", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No scans found") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore, historyAfter)
		out, err := executeRoot(t, "history", "--list", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Stored scans (2)", "scan-a", "scan-b", "4 files"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Index(out, "scan-b") > strings.Index(out, "scan-a") {
			t.Errorf("expected newest scan first, got:\n%s", out)
		}
	})

	t.Run("compare latest two", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore, historyAfter)
		out, err := executeRoot(t, "history", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "[+] bin/extra") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("compare with scan id", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore, historyAfter, historyAfter)
		out, err := executeRoot(t, "history", "--json", "--with-scan-id", "1", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result ComparisonResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if result.PreviousScan.ID != 1 || result.CurrentScan.ID != 3 {
			t.Errorf("expected scans 1 and 3, got %d and %d", result.PreviousScan.ID, result.CurrentScan.ID)
		}
	})

	t.Run("unknown scan id", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore)
		_, err := executeRoot(t, "history", "--with-scan-id", "42", "--db-dir", dir)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("single scan cannot be compared", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore)
		_, err := executeRoot(t, "history", "--db-dir", dir)
		if err == nil || !strings.Contains(err.Error(), "at least 2 scans") {
			t.Errorf("expected error, got %v", err)
		}
	})

	t.Run("dependents", func(t *testing.T) {
		t.Parallel()
		dir := seedHistory(t, historyBefore, historyAfter)
		out, err := executeRoot(t, "history", "--dependents", "libfoo.so", "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "linked   bin/app") || !strings.Contains(out, "linked   bin/extra") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if strings.Contains(out, "bin/old") {
			t.Errorf("bin/old is unparseable in the latest scan, got:\n%s", out)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()
		if _, err := executeRoot(t, "history", "--json", "--markdown", "--db-dir", t.TempDir()); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestScanSaveThenHistory tests that scan --save feeds the history command.
func TestScanSaveThenHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbDir := t.TempDir()
	before := writeTestFile(t, dir, "before.txt", historyBefore)
	after := writeTestFile(t, dir, "after.txt", historyAfter)

	for _, deps := range []string{before, after} {
		if _, err := executeRoot(t, "scan", "-c", emptyConfig(t), "--save", "--db-dir", dbDir, "--deps-file", deps); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
	}

	out, err := executeRoot(t, "history", "--list", "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, before) || !strings.Contains(out, after) {
		t.Errorf("expected default labels in list, got:\n%s", out)
	}
}
