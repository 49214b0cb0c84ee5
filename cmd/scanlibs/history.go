package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/scanlibs/internal/config"
	"github.com/nao1215/scanlibs/internal/database"
	"github.com/nao1215/scanlibs/internal/model"
)

// NewHistoryCmd creates the history command.
// This command lists and compares scans stored by 'scanlibs scan --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and compare stored scans",
		Long: `History shows scans stored in the database with 'scanlibs scan --save'.

By default the latest scan is compared with the one before it and the
differences are listed:
- Files that were added or removed
- Dependencies that were added or removed
- Dependencies that moved between linked and runtime-only

Examples:
  # Compare the latest two scans
  scanlibs history

  # List all stored scans
  scanlibs history --list

  # Compare the latest scan with scan 3
  scanlibs history --with-scan-id 3

  # Which files of the latest scan use libfoo.so?
  scanlibs history --dependents libfoo.so

  # Output the comparison in JSON format
  scanlibs history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored scans")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID; with --dependents, the scan to query")
	cmd.Flags().String("dependents", "",
		"List the files that depend on this library")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	list, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	withScanID, err := flags.GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	library, err := flags.GetString("dependents")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case list:
		return listScans(ctx, out, db)
	case library != "":
		return listDependents(ctx, out, db, withScanID, library)
	}

	result, err := loadComparison(ctx, db, withScanID)
	if err != nil {
		return err
	}
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// listScans prints one line per stored scan, newest first.
func listScans(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	scans, err := db.ListScans(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	if len(scans) == 0 {
		fmt.Fprintln(out, "No scans found in the database.")
		fmt.Fprintln(out, "\nUse 'scanlibs scan --save' to store a scan.")
		return nil
	}

	fmt.Fprintf(out, "Stored scans (%d):\n\n", len(scans))
	fmt.Fprintf(out, "  %-6s  %-20s  %-16s  %-28s  %s\n", "ID", "Date", "Age", "Summary", "Label")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, meta := range scans {
		fmt.Fprintf(out, "  %-6d  %-20s  %-16s  %-28s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Time(meta.Timestamp),
			formatSummary(meta.Summary),
			meta.Label,
		)
	}

	fmt.Fprintln(out, "\nUse 'scanlibs history' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'scanlibs history --with-scan-id <id>' to compare with a specific scan.")
	return nil
}

// formatSummary formats a scan summary for the list view.
func formatSummary(sum *model.Summary) string {
	if sum == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d files, %d libs, %d not ELF", sum.Inputs, sum.DistinctLibraries, sum.Unparseable)
}

// listDependents prints the files of a scan that reference library.
// scanID 0 selects the latest scan.
func listDependents(ctx context.Context, out io.Writer, db *database.HistoryDB, scanID int64, library string) error {
	if scanID == 0 {
		latest, err := db.LatestScans(ctx, 1)
		if err != nil {
			return fmt.Errorf("failed to get latest scan: %w", err)
		}
		if len(latest) == 0 {
			return errors.New("no scans found in the database (use 'scanlibs scan --save')")
		}
		scanID = latest[0].ID
	}

	deps, err := db.Dependents(ctx, scanID, library)
	if err != nil {
		return err
	}

	if len(deps) == 0 {
		fmt.Fprintf(out, "No file in scan %d depends on %s\n", scanID, model.Label(library))
		return nil
	}

	fmt.Fprintf(out, "Files depending on %s in scan %d (%d):\n\n", model.Label(library), scanID, len(deps))
	for _, d := range deps {
		kind := "runtime"
		if d.Linked {
			kind = "linked"
		}
		fmt.Fprintf(out, "  %-8s %s\n", kind, d.Path)
	}
	return nil
}

// loadComparison compares the latest scan with withScanID, or with the
// scan before it when withScanID is 0.
func loadComparison(ctx context.Context, db *database.HistoryDB, withScanID int64) (*ComparisonResult, error) {
	limit := 2
	if withScanID > 0 {
		limit = 1
	}
	latest, err := db.LatestScans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(latest) == 0 {
		return nil, errors.New("no scans found in the database (use 'scanlibs scan --save')")
	}
	current := latest[0]

	var previous *database.Scan
	if withScanID > 0 {
		previous, err = db.GetScan(ctx, withScanID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("scan with ID %d not found", withScanID)
		}
	} else {
		if len(latest) < 2 {
			return nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(latest))
		}
		previous = latest[1]
	}

	return compareScans(previous, current), nil
}
