package core

import (
	"fmt"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// Writer writes task outputs.
//
// At most one write per output path is in flight at any time, and each
// write goes through a temp file in the destination directory followed by a
// rename, so a reader sees either the previous file or the new one.
type Writer struct {
	FS billy.Filesystem

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter creates a Writer over fs.
func NewWriter(fs billy.Filesystem) *Writer {
	return &Writer{FS: fs, locks: make(map[string]*sync.Mutex)}
}

func (w *Writer) lockFor(name string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locks == nil {
		w.locks = make(map[string]*sync.Mutex)
	}
	l, ok := w.locks[name]
	if !ok {
		l = &sync.Mutex{}
		w.locks[name] = l
	}
	return l
}

// Write replaces the file at name with data.
func (w *Writer) Write(name string, data []byte) (Artifact, error) {
	name = NormalizePath(name)
	if name == "" || name == "." {
		return Artifact{}, fmt.Errorf("invalid output path %q", name)
	}

	l := w.lockFor(name)
	l.Lock()
	defer l.Unlock()

	dir := path.Dir(name)
	if dir != "." {
		if err := w.FS.MkdirAll(dir, 0o755); err != nil {
			return Artifact{}, fmt.Errorf("creating output directory %q: %w", dir, err)
		}
	}

	tmp, err := w.FS.TempFile(dir, "."+path.Base(name)+".tmp-")
	if err != nil {
		return Artifact{}, fmt.Errorf("creating temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = w.FS.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Artifact{}, fmt.Errorf("writing %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("closing %q: %w", name, err)
	}
	if err := w.FS.Rename(tmpName, name); err != nil {
		return Artifact{}, fmt.Errorf("committing %q: %w", name, err)
	}
	committed = true
	return Artifact{Path: name, Size: len(data)}, nil
}
