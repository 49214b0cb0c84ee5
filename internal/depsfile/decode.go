package depsfile

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode"

	"github.com/nao1215/scanlibs/internal/model"
)

// maxLineLength bounds a single deps file line.
const maxLineLength = 1 << 20

// Reader decodes records from a deps file one at a time.
type Reader struct {
	sc     *bufio.Scanner
	line   int
	held   string
	isHeld bool
	err    error
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Reader{sc: sc}
}

// Next returns the next record. It returns io.EOF after the last record.
// Malformed input yields a *SyntaxError; once Next fails it keeps
// returning the same error.
func (r *Reader) Next() (model.Record, error) {
	if r.err != nil {
		return model.Record{}, r.err
	}
	rec, err := r.next()
	if err != nil {
		r.err = err
	}
	return rec, err
}

func (r *Reader) next() (model.Record, error) {
	var (
		path    string
		started bool
		marker  bool
		linked  = model.NewOrderedSet[string]()
		runtime = model.NewOrderedSet[string]()
	)
	target := linked

	for {
		line, ok := r.readLine()
		if !ok {
			break
		}
		if line == "" {
			continue
		}

		if name, found := strings.CutPrefix(line, indent); found {
			if !started {
				return model.Record{}, r.syntaxError(ErrOrphanDependency)
			}
			if name == runtimeMarker {
				if marker {
					return model.Record{}, r.syntaxError(ErrDuplicateSentinel)
				}
				marker = true
				target = runtime
				continue
			}
			if unicode.IsSpace(rune(name[0])) {
				return model.Record{}, r.syntaxError(ErrMalformedDependency)
			}
			target.Add(name)
			continue
		}

		if started {
			r.unreadLine(line)
			break
		}
		if name, found := strings.CutPrefix(line, unparseableMark); found {
			return model.NewRecord(name, model.Unparseable()), nil
		}
		path = line
		started = true
	}

	if err := r.sc.Err(); err != nil {
		return model.Record{}, err
	}
	if !started {
		return model.Record{}, io.EOF
	}
	return model.NewRecord(path, model.DependencySets(linked, runtime)), nil
}

// readLine returns the next line without trailing whitespace.
func (r *Reader) readLine() (string, bool) {
	if r.isHeld {
		r.isHeld = false
		return r.held, true
	}
	if !r.sc.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimRightFunc(r.sc.Text(), unicode.IsSpace), true
}

// unreadLine pushes back the header that ended the current record.
func (r *Reader) unreadLine(line string) {
	r.held = line
	r.isHeld = true
}

func (r *Reader) syntaxError(err error) error {
	return &SyntaxError{Line: r.line, Err: err}
}

// Decode reads a whole deps file.
func Decode(r io.Reader) (model.Stream, error) {
	dr := NewReader(r)
	var s model.Stream
	for {
		rec, err := dr.Next()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		s = append(s, rec)
	}
}

// Unmarshal decodes data in deps file form.
func Unmarshal(data []byte) (model.Stream, error) {
	return Decode(bytes.NewReader(data))
}
