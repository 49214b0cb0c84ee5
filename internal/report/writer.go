package report

import (
	"io"

	"github.com/nao1215/scanlibs/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the stream and returns the number of bytes written.
	Write(s model.Stream) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts bytes passed to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
