package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/scanlibs/internal/model"
)

// Default limits applied by New.
const (
	// DefaultMaxFileSize is the largest file that is parsed. Larger files
	// are reported as unparseable without being read.
	DefaultMaxFileSize = 256 << 20

	// DefaultTimeout bounds reading and parsing a single file.
	DefaultTimeout = 30 * time.Second

	// DefaultCacheSize is the number of outcomes kept by content digest.
	DefaultCacheSize = 4096
)

// digest identifies file content in the outcome cache.
type digest [blake2b.Size256]byte

// Extractor reads files from disk and extracts their dependencies with
// per-file size and time limits. Identical file contents are parsed once.
//
// An Extractor is safe for concurrent use.
type Extractor struct {
	maxFileSize int64
	timeout     time.Duration
	fullPaths   bool
	cacheSize   int
	cache       *lru.Cache[digest, model.Outcome]
	logger      *slog.Logger

	// read loads a file's content; tests replace it to simulate slow disks.
	read func(path string) ([]byte, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize sets the size ceiling in bytes. Zero or less disables it.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		e.maxFileSize = n
	}
}

// WithTimeout sets the per-file time ceiling. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithFullPaths keeps directory prefixes on runtime candidates.
func WithFullPaths(fullPaths bool) Option {
	return func(e *Extractor) {
		e.fullPaths = fullPaths
	}
}

// WithCacheSize sets the number of cached outcomes. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Extractor) {
		e.cacheSize = n
	}
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor with the default limits, then applies opts.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		maxFileSize: DefaultMaxFileSize,
		timeout:     DefaultTimeout,
		cacheSize:   DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.read = e.readFile

	if e.cacheSize > 0 {
		cache, err := lru.New[digest, model.Outcome](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create outcome cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Extract returns the dependencies of an in-memory image.
func (e *Extractor) Extract(data []byte) model.Outcome {
	if e.cache == nil {
		return extract(data, e.fullPaths)
	}

	key := digest(blake2b.Sum256(data))
	if o, ok := e.cache.Get(key); ok {
		return o
	}
	o := extract(data, e.fullPaths)
	e.cache.Add(key, o)
	return o
}

// ExtractFile reads path and returns its dependencies.
//
// A missing or unreadable file returns an error wrapping ErrRead.
// Files that are not regular, exceed the size ceiling, or take longer than
// the timeout are reported as unparseable so one bad file cannot stall a
// batch. Cancellation of ctx returns ctx.Err().
func (e *Extractor) ExtractFile(ctx context.Context, path string) (model.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return model.Outcome{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	if info.IsDir() {
		return model.Outcome{}, fmt.Errorf("%w %s: is a directory", ErrRead, path)
	}
	if !info.Mode().IsRegular() {
		e.logger.Warn("skipping non-regular file", "path", path, "mode", info.Mode().String())
		return model.Unparseable(), nil
	}
	if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
		e.logger.Warn("file exceeds size limit", "path", path, "size", info.Size(), "limit", e.maxFileSize)
		return model.Unparseable(), nil
	}

	workCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type result struct {
		outcome model.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		data, err := e.read(path)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{outcome: e.Extract(data)}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, errTooLarge) {
			e.logger.Warn("file grew past size limit while reading", "path", path, "limit", e.maxFileSize)
			return model.Unparseable(), nil
		}
		if r.err != nil {
			return model.Outcome{}, fmt.Errorf("%w %s: %w", ErrRead, path, r.err)
		}
		return r.outcome, nil
	case <-workCtx.Done():
		if err := ctx.Err(); err != nil {
			return model.Outcome{}, err
		}
		// The reader goroutine finishes on its own; its result is dropped.
		e.logger.Warn("file extraction timed out", "path", path, "timeout", e.timeout)
		return model.Unparseable(), nil
	}
}

// readFile reads path, failing with errTooLarge past the size ceiling.
func (e *Extractor) readFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // scanning user-supplied paths is the purpose
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if e.maxFileSize <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, e.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > e.maxFileSize {
		return nil, errTooLarge
	}
	return data, nil
}
