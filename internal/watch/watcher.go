package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"assetweaver/internal/core"
)

// Binding associates a glob with the tasks a matching change triggers.
type Binding struct {
	Pattern string
	Tasks   []string
}

// Event is a change to a project file that matched at least one binding.
type Event struct {
	// Path is project-relative and slash-separated.
	Path string

	// Tasks lists the bound tasks, deduplicated, in binding order.
	Tasks []string
}

type compiledBinding struct {
	pattern *core.Pattern
	tasks   []string
}

// Watcher observes the directories beneath each binding's static base,
// recursively, and adds directories created while it runs.
type Watcher struct {
	root     string
	bindings []compiledBinding
	bases    []string
	ignore   []string
	fsw      *fsnotify.Watcher
	events   chan Event
	log      zerolog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithIgnore skips the given project-relative directories, typically build
// output, unless a binding names a base inside them. node_modules is
// always skipped the same way.
func WithIgnore(dirs ...string) WatcherOption {
	return func(w *Watcher) {
		for _, d := range dirs {
			d = core.NormalizePath(d)
			if d == "" || d == "." {
				continue
			}
			w.ignore = append(w.ignore, strings.TrimSuffix(d, "/"))
		}
	}
}

// NewWatcher compiles bindings and registers the directories to observe.
// Changes made after NewWatcher returns are reported once Run is called.
func NewWatcher(root string, bindings []Binding, log zerolog.Logger, opts ...WatcherOption) (*Watcher, error) {
	if len(bindings) == 0 {
		return nil, errors.New("no watch bindings")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	w := &Watcher{root: abs, events: make(chan Event, 64), log: log.With().Str("component", "watcher").Logger()}
	for _, opt := range opts {
		opt(w)
	}
	for _, b := range bindings {
		p, err := core.CompilePattern(b.Pattern)
		if err != nil {
			return nil, err
		}
		if p.Negated() {
			return nil, fmt.Errorf("watch pattern %q cannot be negated", b.Pattern)
		}
		if len(b.Tasks) == 0 {
			return nil, fmt.Errorf("watch pattern %q triggers no tasks", b.Pattern)
		}
		w.bindings = append(w.bindings, compiledBinding{pattern: p, tasks: b.Tasks})
		w.bases = append(w.bases, p.Base())
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, base := range w.bases {
		if err := w.addBase(base); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Events returns the channel of matched changes. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run forwards matched changes until ctx ends. It returns nil on
// cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			for _, out := range w.handle(ev) {
				select {
				case w.events <- out:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// handle turns one fsnotify event into matched changes. A new directory
// yields one change per matching file already inside it, since those were
// written before the directory was watched.
func (w *Watcher) handle(ev fsnotify.Event) []Event {
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			files, err := w.addTree(ev.Name)
			if err != nil {
				w.log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch new directory")
			}
			var out []Event
			for _, f := range files {
				if e, ok := w.event(f, ev.Op); ok {
					out = append(out, e)
				}
			}
			return out
		}
	}
	if e, ok := w.event(ev.Name, ev.Op); ok {
		return []Event{e}
	}
	return nil
}

func (w *Watcher) event(name string, op fsnotify.Op) (Event, bool) {
	rel, ok := w.relative(name)
	if !ok {
		return Event{}, false
	}
	tasks := w.Match(rel)
	if len(tasks) == 0 {
		return Event{}, false
	}
	w.log.Debug().Str("path", rel).Str("op", op.String()).Strs("tasks", tasks).Msg("change detected")
	return Event{Path: rel, Tasks: tasks}, true
}

// Match returns the tasks bound to a project-relative path, deduplicated,
// in binding order.
func (w *Watcher) Match(rel string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, b := range w.bindings {
		if !b.pattern.Match(rel) {
			continue
		}
		for _, t := range b.tasks {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	rel = core.NormalizePath(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// addBase watches base recursively. A base that does not exist yet is
// covered by watching its nearest existing ancestor; the subtree is added
// when it is created.
func (w *Watcher) addBase(base string) error {
	target := filepath.Join(w.root, filepath.FromSlash(base))
	dir := target
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			break
		}
		if dir == w.root {
			return fmt.Errorf("watch root %q is not a directory", w.root)
		}
		dir = filepath.Dir(dir)
	}
	if dir != target {
		return w.fsw.Add(dir)
	}
	_, err := w.addTree(dir)
	return err
}

// addTree watches dir and every directory beneath it that can lead to a
// binding match, and returns the files found in those directories.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
			return nil
		}
		if p != w.root {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if rel, ok := w.relative(p); ok && !w.relevant(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %q: %w", p, err)
		}
		return nil
	})
	return files, err
}

// relevant reports whether a directory lies inside a binding base or on
// the way to one. The project root as a base does not reach into ignored
// directories.
func (w *Watcher) relevant(rel string) bool {
	for _, base := range w.bases {
		if base == "." {
			if !w.ignored(rel) {
				return true
			}
			continue
		}
		if rel == base || strings.HasPrefix(rel, base+"/") || strings.HasPrefix(base, rel+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == "node_modules" {
			return true
		}
	}
	for _, dir := range w.ignore {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}
