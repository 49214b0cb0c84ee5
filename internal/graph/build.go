package graph

import (
	"log/slog"

	"github.com/nao1215/scanlibs/internal/model"
)

// BuildOption configures Build.
type BuildOption func(*builder)

type builder struct {
	logger *slog.Logger
}

// WithLogger logs edges that were upgraded from runtime to linked because
// two inputs share a label.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *builder) {
		b.logger = logger
	}
}

// Build folds s into a graph.
//
// Each record adds a node for its label, marked as input and, if the file
// was not an ELF image, as unparseable. Each library referenced by a
// parseable record adds a node and an edge from the input, Linked when the
// name appears in the linked list and RuntimeOnly otherwise. Input
// attributes win no matter whether a label is first seen as a file or as
// a dependency.
func Build(s model.Stream, opts ...BuildOption) *Graph {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	g := New()
	if b.logger != nil {
		g.onUpgrade = func(from, to string) {
			b.logger.Debug("runtime edge upgraded to linked", "from", from, "to", to)
		}
	}

	for _, r := range s {
		source := model.Label(r.Path)
		g.AddNode(source, NodeAttrs{Input: true, Unparseable: r.Outcome.IsUnparseable()})
		if r.Outcome.IsUnparseable() {
			continue
		}
		for _, name := range r.Outcome.All() {
			kind := RuntimeOnly
			if r.Outcome.IsLinked(name) {
				kind = Linked
			}
			g.AddEdge(source, model.Label(name), kind)
		}
	}

	g.onUpgrade = nil
	return g
}
