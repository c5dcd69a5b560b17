package core

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestResolve_StrictlySortedWithinPattern(t *testing.T) {
	fs := newTree(t, map[string]string{
		"src/js/zebra.js":  "z",
		"src/js/apple.js":  "a",
		"src/js/mango.js":  "m",
		"src/js/banana.js": "b",
	})

	set, err := NewInputResolver(fs).Resolve([]string{"src/js/*.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"src/js/apple.js",
		"src/js/banana.js",
		"src/js/mango.js",
		"src/js/zebra.js",
	}, set.Paths())
	assert.Equal(t, "a", string(set.Inputs[0].Content))
}

func TestResolve_DeclaredOrderAcrossPatterns(t *testing.T) {
	fs := newTree(t, map[string]string{
		"vendor/z.js": "z",
		"vendor/a.js": "a",
		"src/m.js":    "m",
	})

	set, err := NewInputResolver(fs).Resolve([]string{"vendor/z.js", "src/*.js", "vendor/a.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/z.js", "src/m.js", "vendor/a.js"}, set.Paths())
}

func TestResolve_DuplicatesKeepFirstOccurrence(t *testing.T) {
	fs := newTree(t, map[string]string{
		"src/a.js": "a",
		"src/b.js": "b",
	})

	set, err := NewInputResolver(fs).Resolve([]string{"src/b.js", "src/*.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.js", "src/a.js"}, set.Paths())
}

func TestResolve_RecursiveGlob(t *testing.T) {
	fs := newTree(t, map[string]string{
		"src/sass/style.scss":          "",
		"src/sass/partials/_nav.scss":  "",
		"src/sass/partials/readme.txt": "",
	})

	paths, err := NewInputResolver(fs).Expand([]string{"./src/sass/**/*.scss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/sass/partials/_nav.scss", "src/sass/style.scss"}, paths)
}

func TestResolve_NegatedPatternExcludes(t *testing.T) {
	fs := newTree(t, map[string]string{
		"src/a.js":      "",
		"src/a.test.js": "",
	})

	paths, err := NewInputResolver(fs).Expand([]string{"src/*.js", "!src/*.test.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js"}, paths)
}

func TestResolve_MissingLiteralIsAnError(t *testing.T) {
	fs := newTree(t, map[string]string{"src/a.js": ""})

	_, err := NewInputResolver(fs).Resolve([]string{"node_modules/jquery/dist/jquery.min.js"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestResolve_GlobWithoutMatchesIsEmpty(t *testing.T) {
	fs := newTree(t, map[string]string{"src/a.js": ""})

	set, err := NewInputResolver(fs).Resolve([]string{"missing/**/*.scss"})
	require.NoError(t, err)
	assert.Empty(t, set.Inputs)
}

func TestResolve_EveryMatchedFileIsRead(t *testing.T) {
	files := map[string]string{
		"src/js/a.js":     "/*A*/",
		"src/js/b.js":     "/*B*/",
		"src/js/sub/c.js": "/*C*/",
	}
	fs := newTree(t, files)

	set, err := NewInputResolver(fs).Resolve([]string{"src/js/**/*.js"})
	require.NoError(t, err)
	require.Len(t, set.Inputs, len(files))
	for _, in := range set.Inputs {
		assert.Equal(t, files[in.Path], string(in.Content))
	}
}
