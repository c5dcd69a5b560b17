package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func startWatcher(t *testing.T, root string, bindings []Binding, opts ...WatcherOption) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, bindings, zerolog.Nop(), opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func nextEvent(t *testing.T, w *Watcher, want string) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			if ev.Path == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestWatcher_Match(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/js/app.js", "")
	writeFile(t, root, "src/sass/style.scss", "")
	w, err := NewWatcher(root, []Binding{
		{Pattern: "src/sass/**/*.scss", Tasks: []string{"sass-dev"}},
		{Pattern: "src/js/*.js", Tasks: []string{"js-dev"}},
		{Pattern: "src/**/*", Tasks: []string{"js-dev", "lint"}},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer w.fsw.Close()

	assert.Equal(t, []string{"js-dev", "lint"}, w.Match("src/js/app.js"))
	assert.Equal(t, []string{"sass-dev", "js-dev", "lint"}, w.Match("src/sass/style.scss"))
	assert.Equal(t, []string{"sass-dev", "js-dev", "lint"}, w.Match("src/sass/parts/_a.scss"))
	assert.Empty(t, w.Match("assets/js/app.min.js"))
}

func TestWatcher_RejectsBadBindings(t *testing.T) {
	root := t.TempDir()
	_, err := NewWatcher(root, nil, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewWatcher(root, []Binding{{Pattern: "!src/*.js", Tasks: []string{"js"}}}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewWatcher(root, []Binding{{Pattern: "src/*.js"}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestWatcher_ReportsMatchingWrites(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/js/app.js", "var a = 1;\n")
	writeFile(t, root, "assets/js/app.min.js", "")

	w := startWatcher(t, root, []Binding{{Pattern: "src/js/*.js", Tasks: []string{"js-dev"}}})

	writeFile(t, root, "src/js/app.js", "var a = 2;\n")
	ev := nextEvent(t, w, "src/js/app.js")
	assert.Equal(t, []string{"js-dev"}, ev.Tasks)
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/sass/style.scss", "")

	w := startWatcher(t, root, []Binding{{Pattern: "src/sass/**/*.scss", Tasks: []string{"sass-dev"}}})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "sass", "components"), 0o755))

	// The directory is added asynchronously; keep touching until seen.
	got := make(chan Event, 1)
	go func() {
		for ev := range w.Events() {
			if ev.Path == "src/sass/components/_button.scss" {
				got <- ev
				return
			}
		}
	}()
	require.Eventually(t, func() bool {
		writeFile(t, root, "src/sass/components/_button.scss", ".b{}")
		select {
		case ev := <-got:
			return assert.Equal(t, []string{"sass-dev"}, ev.Tasks)
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingBaseIsPickedUpWhenCreated(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, []Binding{{Pattern: "src/js/*.js", Tasks: []string{"js-dev"}}})

	got := make(chan Event, 1)
	go func() {
		for ev := range w.Events() {
			if ev.Path == "src/js/app.js" {
				got <- ev
				return
			}
		}
	}()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "js"), 0o755))
	require.Eventually(t, func() bool {
		writeFile(t, root, "src/js/app.js", "x")
		select {
		case <-got:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_ReportsFilesInsideMovedInDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/sass/style.scss", "")
	w := startWatcher(t, root, []Binding{{Pattern: "src/sass/**/*.scss", Tasks: []string{"sass-dev"}}})

	staging := t.TempDir()
	writeFile(t, staging, "widgets/_card.scss", ".c{}")
	writeFile(t, staging, "widgets/deep/_row.scss", ".r{}")
	writeFile(t, staging, "widgets/notes.txt", "")
	require.NoError(t, os.Rename(filepath.Join(staging, "widgets"), filepath.Join(root, "src", "sass", "widgets")))

	ev := nextEvent(t, w, "src/sass/widgets/_card.scss")
	assert.Equal(t, []string{"sass-dev"}, ev.Tasks)
	nextEvent(t, w, "src/sass/widgets/deep/_row.scss")
}

func TestWatcher_RootBaseSkipsDependenciesAndOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/index.js", "")
	writeFile(t, root, "assets/js/app.js", "")
	writeFile(t, root, "src/app.js", "")

	w := startWatcher(t, root, []Binding{{Pattern: "**/*.js", Tasks: []string{"js-dev"}}}, WithIgnore("assets/js", "."))
	assert.Equal(t, []string{"js-dev"}, w.Match("node_modules/pkg/index.js"))

	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, "assets/js/app.js", "x")
	writeFile(t, root, "src/app.js", "x")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed")
			require.NotContains(t, ev.Path, "node_modules/")
			require.NotContains(t, ev.Path, "assets/")
			if ev.Path == "src/app.js" {
				return
			}
		case <-deadline:
			t.Fatalf("no event for src/app.js")
		}
	}
}

func TestWatcher_IgnoredDirectoryStillWatchedWhenNamedByBase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/theme/vars.scss", "")
	w := startWatcher(t, root, []Binding{{Pattern: "node_modules/theme/*.scss", Tasks: []string{"sass-dev"}}})

	writeFile(t, root, "node_modules/theme/vars.scss", "$x: 1;")
	nextEvent(t, w, "node_modules/theme/vars.scss")
}
