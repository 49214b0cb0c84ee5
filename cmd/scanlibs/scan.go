package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/scanlibs/internal/config"
	"github.com/nao1215/scanlibs/internal/database"
	"github.com/nao1215/scanlibs/internal/depsfile"
	"github.com/nao1215/scanlibs/internal/extract"
	"github.com/nao1215/scanlibs/internal/graph"
	"github.com/nao1215/scanlibs/internal/log"
	"github.com/nao1215/scanlibs/internal/model"
	"github.com/nao1215/scanlibs/internal/pipeline"
	"github.com/nao1215/scanlibs/internal/render"
	"github.com/nao1215/scanlibs/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan ELF files for library dependencies",
		Long: `Scan reads each file and lists the libraries it depends on.

For every ELF file the output holds its path followed by indented library
names: first the DT_NEEDED entries, then, when any were found, a "." line
and the lib*.so names found in .rodata. A .rodata name may repeat a linked
one. Files that are not ELF are written as "# path". Common system
libraries are excluded by default.

Examples:
  # Scan all files of an extracted system image
  scanlibs scan -r system/

  # Save the result and plot it later
  scanlibs scan -r system/ -o deps.txt
  scanlibs scan --deps-file deps.txt --plot-output deps.dot

  # Mermaid graph of two binaries
  scanlibs scan --plot-format mermaid bin/app lib/libfoo.so

  # JSON report, unreadable files reported instead of aborting
  scanlibs scan --json --on-read-error unparseable -r system/

  # Keep the scan in the history database
  scanlibs scan --save --label "build 42" -r system/`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Input flags
	cmd.Flags().BoolP("recursive", "r", false,
		"Scan regular files below directory arguments")
	cmd.Flags().StringP("deps-file", "d", "",
		"Load dependencies from a deps file written by a previous scan")

	// Scan behavior flags
	cmd.Flags().IntP("workers", "w", config.NewConfig().Workers,
		"Number of files scanned concurrently")
	cmd.Flags().String("max-size", humanize.IBytes(config.DefaultMaxFileSize),
		"Files larger than this are reported as unparseable (e.g. 64MiB)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Time allowed for reading and parsing one file")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Number of parse results cached by file content (0 disables)")
	cmd.Flags().Bool("full-paths", false,
		"Keep directory prefixes on runtime candidates")
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"Exclude a library (repeatable, replaces the default list)")
	cmd.Flags().Bool("no-default-excludes", false,
		"Do not exclude common system libraries")
	cmd.Flags().String("on-read-error", config.ReadErrorAbort,
		`Handling of unreadable files: "abort" or "unparseable"`)

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scanlibs in current or home directory)")

	// Output flags
	cmd.Flags().BoolP("plot", "p", false,
		"Write a dependency graph instead of the deps file")
	cmd.Flags().String("plot-output", "",
		"Write the graph to this file; the extension selects the format (implies --plot)")
	cmd.Flags().String("plot-format", "",
		"Graph format: dot, mermaid or markdown (implies --plot)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Store the scan in the history database")
	cmd.Flags().String("label", "",
		"Label of the stored scan (default: first input)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. Flags given explicitly win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
		return nil, err
	}
	if cfg.DepsFile, err = flags.GetString("deps-file"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	maxSize, err := flags.GetString("max-size")
	if err != nil {
		return nil, err
	}
	size, err := humanize.ParseBytes(maxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid --max-size %q: %w", maxSize, err)
	}
	cfg.MaxFileSize = int64(size) //nolint:gosec // sizes beyond int64 are not meaningful here
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
		return nil, err
	}
	if cfg.FullPaths, err = flags.GetBool("full-paths"); err != nil {
		return nil, err
	}
	if cfg.Excludes, err = flags.GetStringArray("exclude"); err != nil {
		return nil, err
	}
	if cfg.NoDefaultExcludes, err = flags.GetBool("no-default-excludes"); err != nil {
		return nil, err
	}
	if cfg.OnReadError, err = flags.GetString("on-read-error"); err != nil {
		return nil, err
	}
	if cfg.Plot, err = flags.GetBool("plot"); err != nil {
		return nil, err
	}
	if cfg.PlotOutput, err = flags.GetString("plot-output"); err != nil {
		return nil, err
	}
	if cfg.PlotFormat, err = flags.GetString("plot-format"); err != nil {
		return nil, err
	}
	if cfg.PlotOutput != "" || cfg.PlotFormat != "" {
		cfg.Plot = true
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.Label, err = flags.GetString("label"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Files = args

	if err := applyConfigFile(cfg, flags.Changed); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigFile loads the configuration file, if any, into cfg.
// If the user explicitly specified a path, a missing file is an error.
func applyConfigFile(cfg *config.Config, isSet func(string) bool) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	file.ApplyTo(cfg, isSet)
	return nil
}

// newBatchProcessor wires an extractor and the default pipeline into a
// batch processor configured from cfg.
func newBatchProcessor(cfg *config.Config, logger *slog.Logger) (*pipeline.BatchProcessor, error) {
	extractor, err := extract.New(
		extract.WithMaxFileSize(cfg.MaxFileSize),
		extract.WithTimeout(cfg.Timeout),
		extract.WithFullPaths(cfg.FullPaths),
		extract.WithCacheSize(cfg.CacheSize),
		extract.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	policy, err := pipeline.ParseReadErrorPolicy(cfg.OnReadError)
	if err != nil {
		return nil, err
	}

	excludes := cfg.ExcludeSet()
	return pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(extractor, excludes, logger)
		},
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithReadErrorPolicy(policy),
		pipeline.WithBatchLogger(logger),
	), nil
}

// runScan loads and scans the inputs and writes the requested output.
func runScan(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	stream, err := collectStream(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.SaveToDB {
		if err := saveScan(ctx, cfg, stream, logger); err != nil {
			return err
		}
	}

	if cfg.Plot {
		return writePlot(cfg, stream, stdout, logger)
	}
	return writeReport(cfg, stream, stdout)
}

// collectStream returns the records of the deps file followed by the
// records of the scanned files.
func collectStream(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Stream, error) {
	var stream model.Stream

	if cfg.DepsFile != "" {
		loaded, err := loadDepsFile(cfg.DepsFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("deps file loaded", "path", cfg.DepsFile, "records", len(loaded))
		stream = append(stream, loaded...)
	}

	if len(cfg.Files) == 0 {
		return stream, nil
	}

	paths, err := pipeline.ExpandPaths(cfg.Files, cfg.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	bp, err := newBatchProcessor(cfg, logger)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	scanned, err := bp.ProcessBatch(ctx, paths)
	if err != nil {
		return nil, err
	}
	logger.Info("scan complete", "files", len(paths), "elapsed", time.Since(startTime).Round(time.Millisecond))

	return append(stream, scanned...), nil
}

// loadDepsFile decodes the deps file at path.
func loadDepsFile(path string) (model.Stream, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided input path
	if err != nil {
		return nil, fmt.Errorf("failed to open deps file: %w", err)
	}
	defer f.Close()

	stream, err := depsfile.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read deps file %s: %w", path, err)
	}
	return stream, nil
}

// writeReport writes the stream in the report format selected by cfg.
func writeReport(cfg *config.Config, stream model.Stream, stdout io.Writer) error {
	return withOutput(cfg.OutputFile, stdout, func(w io.Writer) error {
		var writer report.Writer
		switch {
		case cfg.JSONReport:
			writer = report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
		case cfg.MarkdownReport:
			writer = report.NewMarkdownWriter(w)
		default:
			writer = report.NewTextWriter(w)
		}
		_, err := writer.Write(stream)
		return err
	})
}

// writePlot builds the dependency graph and renders it. The destination is
// --plot-output, else --output, else stdout; the format is --plot-format,
// else derived from the destination's extension.
func writePlot(cfg *config.Config, stream model.Stream, stdout io.Writer, logger *slog.Logger) error {
	dest := cfg.PlotOutput
	if dest == "" {
		dest = cfg.OutputFile
	}

	format := render.FormatDOT
	switch {
	case cfg.PlotFormat != "":
		f, err := render.ParseFormat(cfg.PlotFormat)
		if err != nil {
			return err
		}
		format = f
	case dest != "":
		format = render.FormatFromPath(dest)
	}

	g := graph.Build(stream, graph.WithLogger(logger))
	logger.Debug("graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "format", string(format))

	return withOutput(dest, stdout, func(w io.Writer) error {
		return render.Render(w, g, format)
	})
}

// withOutput calls fn with the file at path, or with stdout when path is
// empty. Parent directories are created as needed.
func withOutput(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(stdout)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(f)
}

// saveScan stores the stream in the history database.
func saveScan(ctx context.Context, cfg *config.Config, stream model.Stream, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	label := cfg.Label
	if label == "" {
		label = defaultLabel(cfg)
	}

	id, err := db.SaveScan(ctx, label, stream)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to save scan: %w", err)
	}
	logger.Info("scan saved to database", "id", id, "label", label, "db", db.Path())
	return nil
}

// defaultLabel names a scan after its first input.
func defaultLabel(cfg *config.Config) string {
	switch {
	case len(cfg.Files) == 1:
		return cfg.Files[0]
	case len(cfg.Files) > 1:
		return fmt.Sprintf("%s (+%d more)", cfg.Files[0], len(cfg.Files)-1)
	default:
		return cfg.DepsFile
	}
}
