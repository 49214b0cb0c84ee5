package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"

	"github.com/nao1215/scanlibs/internal/depsfile"
	"github.com/nao1215/scanlibs/internal/model"
	"github.com/nao1215/scanlibs/internal/pipeline"
)

// DefaultDebounce is the quiet period after the last event before changed
// files are rescanned.
const DefaultDebounce = 200 * time.Millisecond

// Scanner turns paths into records in path order.
// *pipeline.BatchProcessor implements Scanner.
type Scanner interface {
	ProcessBatch(ctx context.Context, paths []string) (model.Stream, error)
}

var _ Scanner = (*pipeline.BatchProcessor)(nil)

// Watcher rescans a directory tree on change.
type Watcher struct {
	root     string
	output   string
	scanner  Scanner
	debounce time.Duration
	logger   *slog.Logger
	onUpdate func(model.Stream)

	mu      sync.Mutex
	order   *model.OrderedSet[string]
	records map[string]model.Record
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a rescan.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithUpdateHook registers fn to be called with the current stream after
// the initial scan and after every rescan.
func WithUpdateHook(fn func(model.Stream)) Option {
	return func(w *Watcher) {
		w.onUpdate = fn
	}
}

// New creates a Watcher for root. When output is not empty the deps file
// at output is rewritten after every update; the output file itself is
// never scanned.
func New(root, output string, scanner Scanner, opts ...Option) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		output:   output,
		scanner:  scanner,
		debounce: DefaultDebounce,
		order:    model.NewOrderedSet[string](),
		records:  make(map[string]model.Record),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Stream returns the current records in discovery order.
func (w *Watcher) Stream() model.Stream {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := make(model.Stream, 0, w.order.Len())
	for _, p := range w.order.Items() {
		s = append(s, w.records[p])
	}
	return s
}

// Run performs the initial scan and then processes events until ctx is
// cancelled. Errors of the initial scan are returned; later scan failures
// are logged and the affected files are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	paths, err := w.regularFiles(w.root)
	if err != nil {
		return err
	}
	stream, err := w.scanner.ProcessBatch(ctx, paths)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	w.apply(stream, nil)
	if err := w.publish(); err != nil {
		return err
	}
	w.logger.Info("watcher: started", "root", w.root, "files", len(paths))

	pending := make(map[string]struct{})
	removed := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		timer.Reset(w.debounce)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerC:
			w.flush(ctx, pending, removed)
			pending = make(map[string]struct{})
			removed = make(map[string]struct{})

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.isOutput(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed", "path", ev.Name, "error", addErr)
						continue
					}
					files, walkErr := w.regularFiles(ev.Name)
					if walkErr != nil {
						w.logger.Warn("watcher: walk new dir failed", "path", ev.Name, "error", walkErr)
					}
					for _, f := range files {
						pending[f] = struct{}{}
						delete(removed, f)
					}
					schedule()
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[ev.Name] = struct{}{}
				delete(removed, ev.Name)
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				removed[ev.Name] = struct{}{}
				delete(pending, ev.Name)
				schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", "error", watchErr)
		}
	}
}

// flush rescans pending files, drops removed ones and publishes the result.
func (w *Watcher) flush(ctx context.Context, pending, removed map[string]struct{}) {
	var paths []string
	for p := range pending {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			paths = append(paths, p)
		} else {
			removed[p] = struct{}{}
		}
	}
	if len(paths) == 0 && len(removed) == 0 {
		return
	}
	// New files join the stream in lexical order.
	slices.Sort(paths)

	stream := w.scan(ctx, paths)
	w.apply(stream, removed)
	if err := w.publish(); err != nil {
		w.logger.Warn("watcher: write failed", "path", w.output, "error", err)
		return
	}
	w.logger.Debug("watcher: updated", "rescanned", len(stream), "removed", len(removed))
}

// scan processes paths as a batch and falls back to one file at a time
// when the batch fails, skipping the files that still fail.
func (w *Watcher) scan(ctx context.Context, paths []string) model.Stream {
	if len(paths) == 0 {
		return nil
	}
	stream, err := w.scanner.ProcessBatch(ctx, paths)
	if err == nil {
		return stream
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}

	var out model.Stream
	for _, p := range paths {
		s, err := w.scanner.ProcessBatch(ctx, []string{p})
		if err != nil {
			w.logger.Warn("watcher: rescan failed", "path", p, "error", err)
			continue
		}
		out = append(out, s...)
	}
	return out
}

func (w *Watcher) apply(stream model.Stream, removed map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range removed {
		if w.order.Remove(p) {
			delete(w.records, p)
		}
	}
	for _, r := range stream {
		w.order.Add(r.Path)
		w.records[r.Path] = r
	}
}

// publish writes the deps file and calls the update hook.
func (w *Watcher) publish() error {
	stream := w.Stream()
	if w.output != "" {
		if err := writeAtomic(w.output, stream); err != nil {
			return err
		}
	}
	if w.onUpdate != nil {
		w.onUpdate(stream)
	}
	return nil
}

func (w *Watcher) isOutput(path string) bool {
	if w.output == "" {
		return false
	}
	out, err := filepath.Abs(w.output)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return p == out || (filepath.Dir(p) == filepath.Dir(out) && filepath.Base(p) == "."+filepath.Base(out)+".tmp")
}

// regularFiles lists the regular files below dir, excluding the output.
func (w *Watcher) regularFiles(dir string) ([]string, error) {
	paths, err := pipeline.ExpandPaths([]string{dir}, true)
	if err != nil {
		return nil, err
	}
	out := paths[:0]
	for _, p := range paths {
		if !w.isOutput(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// writeAtomic encodes stream to a temporary file next to path and renames
// it over path.
func writeAtomic(path string, stream model.Stream) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	f, err := os.Create(tmp) //nolint:gosec // output path is user-provided
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := depsfile.Encode(f, stream); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to encode deps file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return fw.Add(path)
			}
			return nil
		},
		Unsorted: true,
	})
}
