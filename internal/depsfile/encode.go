package depsfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/nao1215/scanlibs/internal/model"
)

const (
	indent          = "  "
	runtimeMarker   = "."
	unparseableMark = "# "
)

// Encode writes s to w in deps file form.
func Encode(w io.Writer, s model.Stream) error {
	bw := bufio.NewWriter(w)
	for _, r := range s {
		if err := encodeRecord(bw, r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal returns the deps file form of s.
func Marshal(s model.Stream) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRecord(w *bufio.Writer, r model.Record) error {
	if err := checkPath(r.Path, r.Outcome.IsUnparseable()); err != nil {
		return err
	}
	if r.Outcome.IsUnparseable() {
		_, err := fmt.Fprintf(w, "%s%s\n", unparseableMark, r.Path)
		return err
	}

	if _, err := fmt.Fprintln(w, r.Path); err != nil {
		return err
	}
	if err := writeDependencies(w, r.Path, r.Outcome.Linked()); err != nil {
		return err
	}
	runtime := r.Outcome.Runtime()
	if len(runtime) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", indent, runtimeMarker); err != nil {
		return err
	}
	return writeDependencies(w, r.Path, runtime)
}

func writeDependencies(w *bufio.Writer, path string, names []string) error {
	for _, name := range names {
		if err := checkDependency(name); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, name); err != nil {
			return err
		}
	}
	return nil
}

// checkPath rejects record paths whose line would decode differently.
func checkPath(path string, unparseable bool) error {
	if err := checkLine(path); err != nil {
		return err
	}
	if strings.HasPrefix(path, " ") {
		return fmt.Errorf("%w: path %q starts with a space", ErrUnencodable, path)
	}
	if !unparseable && strings.HasPrefix(path, unparseableMark) {
		return fmt.Errorf("%w: path %q starts with %q", ErrUnencodable, path, unparseableMark)
	}
	return nil
}

// checkDependency rejects library names whose line would decode differently.
func checkDependency(name string) error {
	if err := checkLine(name); err != nil {
		return err
	}
	if name == runtimeMarker {
		return fmt.Errorf("%w: library name %q is the runtime marker", ErrUnencodable, name)
	}
	if unicode.IsSpace(rune(name[0])) {
		return fmt.Errorf("%w: library name %q starts with whitespace", ErrUnencodable, name)
	}
	return nil
}

func checkLine(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: empty name", ErrUnencodable)
	case strings.ContainsAny(s, "\r\n"):
		return fmt.Errorf("%w: %q contains a line break", ErrUnencodable, s)
	case strings.TrimRightFunc(s, unicode.IsSpace) != s:
		return fmt.Errorf("%w: %q has trailing whitespace", ErrUnencodable, s)
	}
	return nil
}
