package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scanlibs/internal/extract"
	"github.com/nao1215/scanlibs/internal/model"
)

// ReadErrorPolicy decides what happens when an input file cannot be read.
type ReadErrorPolicy string

const (
	// AbortOnReadError stops the batch and returns the read error.
	AbortOnReadError ReadErrorPolicy = "abort"
	// UnparseableOnReadError records the file as unparseable and continues.
	UnparseableOnReadError ReadErrorPolicy = "unparseable"
)

// ErrUnknownPolicy is returned by ParseReadErrorPolicy for unknown names.
var ErrUnknownPolicy = errors.New("unknown read error policy")

// ParseReadErrorPolicy converts a policy name.
func ParseReadErrorPolicy(s string) (ReadErrorPolicy, error) {
	switch p := ReadErrorPolicy(strings.ToLower(s)); p {
	case AbortOnReadError, UnparseableOnReadError:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownPolicy, s, AbortOnReadError, UnparseableOnReadError)
}

// BatchProcessor scans many files concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each file.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of files processed at once.
	concurrency int

	policy ReadErrorPolicy
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent files.
// Non-positive values keep the default of runtime.NumCPU().
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithReadErrorPolicy sets how unreadable files are handled.
func WithReadErrorPolicy(policy ReadErrorPolicy) BatchOption {
	return func(b *BatchProcessor) {
		b.policy = policy
	}
}

// NewBatchProcessor creates a BatchProcessor. pipelineFactory is called
// once per file.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     runtime.NumCPU(),
		policy:          AbortOnReadError,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs the pipeline for every path and returns the records in
// the order of paths.
//
// Under AbortOnReadError the first failure cancels the remaining work and
// is returned with a nil stream. Under UnparseableOnReadError files that
// cannot be read become unparseable records; other failures, such as
// cancellation of ctx, still abort.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) (model.Stream, error) {
	bp.logger.Debug("starting batch", "files", len(paths), "concurrency", bp.concurrency)
	startTime := time.Now()

	// Each goroutine writes only its own index.
	results := make(model.Stream, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			record := model.NewRecord(path, model.Unparseable())
			err := bp.pipelineFactory().Execute(ctx, &record)
			if err != nil {
				if bp.policy != UnparseableOnReadError || !errors.Is(err, extract.ErrRead) {
					return err
				}
				bp.logger.Warn("treating unreadable file as unparseable", "path", path, "error", err)
				record.Outcome = model.Unparseable()
			}
			results[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bp.logger.Debug("batch complete", "files", len(paths), "elapsed", time.Since(startTime))
	return results, nil
}
