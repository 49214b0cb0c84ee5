package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/scanlibs/internal/model"
)

// Step is one stage applied to a record.
type Step interface {
	// Do processes record in place. An error stops the pipeline.
	Do(ctx context.Context, record *model.Record) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in sequence against a single record.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline with no steps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against record. It stops at the first failing
// step or when ctx is cancelled between steps.
func (p *Pipeline) Execute(ctx context.Context, record *model.Record) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Do(ctx, record); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "path", record.Path, "error", err)
			return err
		}
		p.logger.Debug("step completed", "step", step.Name(), "path", record.Path)
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
