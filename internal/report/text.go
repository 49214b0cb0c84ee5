package report

import (
	"io"

	"github.com/nao1215/scanlibs/internal/depsfile"
	"github.com/nao1215/scanlibs/internal/model"
)

// TextWriter outputs the deps file form of a stream. The output can be
// loaded again with --deps-file.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs s in deps file form.
func (w *TextWriter) Write(s model.Stream) (int, error) {
	cw := &countingWriter{w: w.output}
	err := depsfile.Encode(cw, s)
	return cw.n, err
}
