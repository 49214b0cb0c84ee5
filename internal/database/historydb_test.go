package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/scanlibs/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func firstStream() model.Stream {
	return model.Stream{
		model.NewRecord("system/bin/app", model.Dependencies([]string{"libfoo.so"}, []string{"/system/lib/libbaz.so"})),
		model.NewRecord("etc/build.prop", model.Unparseable()),
	}
}

func secondStream() model.Stream {
	return model.Stream{
		model.NewRecord("system/bin/app", model.Dependencies([]string{"libfoo.so", "libbar.so"}, nil)),
		model.NewRecord("system/bin/tool", model.Dependencies([]string{"libfoo.so"}, nil)),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails when missing", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.SaveScan(context.Background(), "first", firstStream()); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()
		scans, err := db.ListScans(context.Background())
		if err != nil || len(scans) != 1 {
			t.Errorf("expected 1 scan, got %d (%v)", len(scans), err)
		}
	})
}

// TestSaveAndGetScan tests storing and loading scans.
func TestSaveAndGetScan(t *testing.T) {
	t.Parallel()

	t.Run("round trips the stream", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		id, err := db.SaveScan(ctx, "system.img", firstStream())
		if err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
		scan, err := db.GetScan(ctx, id)
		if err != nil {
			t.Fatalf("failed to get scan: %v", err)
		}
		if scan == nil {
			t.Fatal("expected scan")
		}
		if !scan.Stream.Equal(firstStream()) {
			t.Errorf("stored stream differs: %+v", scan.Stream)
		}
		if scan.Label != "system.img" {
			t.Errorf("got label %q", scan.Label)
		}
		if scan.Summary == nil || scan.Summary.Inputs != 2 || scan.Summary.Unparseable != 1 {
			t.Errorf("unexpected summary %+v", scan.Summary)
		}
		if len(scan.Digest) != 64 {
			t.Errorf("expected hex digest, got %q", scan.Digest)
		}
		if scan.Timestamp.IsZero() || time.Since(scan.Timestamp) > 24*time.Hour {
			t.Errorf("unexpected timestamp %v", scan.Timestamp)
		}
	})

	t.Run("missing ID returns nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		scan, err := db.GetScan(context.Background(), 42)
		if err != nil || scan != nil {
			t.Errorf("expected nil scan, got %v %v", scan, err)
		}
	})

	t.Run("equal streams share a digest", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		for range 2 {
			if _, err := db.SaveScan(ctx, "", firstStream()); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := db.SaveScan(ctx, "", secondStream()); err != nil {
			t.Fatal(err)
		}
		scans, err := db.ListScans(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(scans) != 3 {
			t.Fatalf("expected 3 scans, got %d", len(scans))
		}
		if scans[1].Digest != scans[2].Digest || scans[0].Digest == scans[1].Digest {
			t.Errorf("unexpected digests %s %s %s", scans[0].Digest, scans[1].Digest, scans[2].Digest)
		}
	})
}

// TestLatestScans tests history ordering.
func TestLatestScans(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	firstID, err := db.SaveScan(ctx, "old", firstStream())
	if err != nil {
		t.Fatal(err)
	}
	secondID, err := db.SaveScan(ctx, "new", secondStream())
	if err != nil {
		t.Fatal(err)
	}

	scans, err := db.LatestScans(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scans) != 2 || scans[0].ID != secondID || scans[1].ID != firstID {
		t.Fatalf("expected newest first, got %+v", scans)
	}
	if !scans[0].Stream.Equal(secondStream()) {
		t.Error("newest scan has wrong stream")
	}

	one, err := db.LatestScans(ctx, 1)
	if err != nil || len(one) != 1 {
		t.Errorf("expected one scan, got %d (%v)", len(one), err)
	}
}

// TestDependents tests edge lookups.
func TestDependents(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	first, err := db.SaveScan(ctx, "", firstStream())
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.SaveScan(ctx, "", secondStream())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("finds linked dependents in one scan", func(t *testing.T) {
		t.Parallel()

		deps, err := db.Dependents(ctx, second, "libfoo.so")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deps) != 2 || deps[0].Path != "system/bin/app" || deps[1].Path != "system/bin/tool" || !deps[0].Linked {
			t.Errorf("got %+v", deps)
		}
	})

	t.Run("matches runtime paths by file name", func(t *testing.T) {
		t.Parallel()

		deps, err := db.Dependents(ctx, first, "/vendor/lib/libbaz.so")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deps) != 1 || deps[0].Linked {
			t.Errorf("got %+v", deps)
		}
	})

	t.Run("unknown library", func(t *testing.T) {
		t.Parallel()

		deps, err := db.Dependents(ctx, second, "libnone.so")
		if err != nil || len(deps) != 0 {
			t.Errorf("expected no dependents, got %+v %v", deps, err)
		}
	})
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, s := range []string{"2025-03-04 05:06:07", "2025-03-04T05:06:07Z", "2025-03-04T05:06:07"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if got := parseTimestamp("yesterday"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
