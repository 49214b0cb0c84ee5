package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/scanlibs/internal/exclude"
	"github.com/nao1215/scanlibs/internal/extract"
	"github.com/nao1215/scanlibs/internal/model"
)

// FileExtractor extracts the dependencies of a file on disk.
// *extract.Extractor satisfies it.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) (model.Outcome, error)
}

var _ FileExtractor = (*extract.Extractor)(nil)

// ExtractStep reads record.Path and stores its outcome.
type ExtractStep struct {
	extractor FileExtractor
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor FileExtractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts the dependencies of record.Path.
func (s *ExtractStep) Do(ctx context.Context, record *model.Record) error {
	o, err := s.extractor.ExtractFile(ctx, record.Path)
	if err != nil {
		return err
	}
	record.Outcome = o
	return nil
}

// FilterStep removes excluded libraries from the outcome.
type FilterStep struct {
	excludes exclude.Set
}

// NewFilterStep creates a FilterStep for the given exclusion set.
func NewFilterStep(excludes exclude.Set) *FilterStep {
	return &FilterStep{excludes: excludes}
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "filter"
}

// Do replaces the outcome with its filtered copy.
func (s *FilterStep) Do(_ context.Context, record *model.Record) error {
	record.Outcome = exclude.Filter(record.Outcome, s.excludes)
	return nil
}

// DefaultPipeline returns a pipeline that extracts and then filters.
func DefaultPipeline(extractor FileExtractor, excludes exclude.Set, logger *slog.Logger) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewExtractStep(extractor),
		NewFilterStep(excludes),
	)
	return p
}
