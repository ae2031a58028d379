// Package watch re-runs a callback when watched documents change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event for a file
// before its callback runs.
const DefaultDebounce = 100 * time.Millisecond

// Options configure a Watcher.
type Options struct {
	Debounce   time.Duration
	Extensions []string // for watched directories; default ".ged"
	Logger     *slog.Logger
}

// Watcher watches files and directories of documents. Files are watched
// through their parent directory so that editors which replace a file on
// save keep being observed.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool // explicitly watched files
	dirs     map[string]bool // explicitly watched directories
	exts     []string
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher for the given paths. Every path must exist.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no paths")
	}
	w := &Watcher{
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		exts:     opts.Extensions,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	if len(w.exts) == 0 {
		w.exts = []string{".ged"}
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fs = fw

	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	dir := abs
	if info.IsDir() {
		w.dirs[abs] = true
	} else {
		w.files[abs] = true
		dir = filepath.Dir(abs)
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching", "path", abs)
	return nil
}

// firing is a debounce timer expiry for one path. gen identifies the
// timer that produced it.
type firing struct {
	path string
	gen  uint64
}

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// debouncer tracks one timer per path. Every event replaces the path's
// timer with a new generation, so an expiry that was already in flight
// when the event arrived is recognized as stale and dropped.
type debouncer struct {
	delay   time.Duration
	fire    chan firing
	done    <-chan struct{}
	gen     uint64
	pending map[string]pendingTimer
}

func newDebouncer(delay time.Duration, done <-chan struct{}) *debouncer {
	return &debouncer{
		delay:   delay,
		fire:    make(chan firing),
		done:    done,
		pending: make(map[string]pendingTimer),
	}
}

// touch (re)starts the quiet period for path.
func (d *debouncer) touch(path string) {
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.gen++
	f := firing{path: path, gen: d.gen}
	d.pending[path] = pendingTimer{
		gen: f.gen,
		timer: time.AfterFunc(d.delay, func() {
			select {
			case d.fire <- f:
			case <-d.done:
			}
		}),
	}
}

// accept reports whether f is the current timer of its path and, if so,
// forgets the path.
func (d *debouncer) accept(f firing) bool {
	p, ok := d.pending[f.path]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.path)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}

// Run delivers changed paths to onChange until ctx is canceled. Events for
// the same file within the debounce interval collapse into one call, and
// onChange is never called concurrently.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, path string)) error {
	deb := newDebouncer(w.debounce, ctx.Done())
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case f := <-deb.fire:
			if !deb.accept(f) {
				continue
			}
			w.logger.Info("document changed", "path", f.path)
			onChange(ctx, f.path)

		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watch: events channel closed")
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			deb.touch(filepath.Clean(ev.Name))

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watch: errors channel closed")
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// relevant reports whether ev concerns a watched document. Removals and
// attribute changes are ignored; a rename is followed by a create for the
// new name.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	path := filepath.Clean(ev.Name)
	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
