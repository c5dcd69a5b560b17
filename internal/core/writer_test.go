package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_CreatesDirectoriesAndReplaces(t *testing.T) {
	fs := memfs.New()
	w := NewWriter(fs)

	a, err := w.Write("assets/css/style.css", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, Artifact{Path: "assets/css/style.css", Size: 3}, a)

	_, err = w.Write("./assets/css/style.css", []byte("two"))
	require.NoError(t, err)

	got, err := util.ReadFile(fs, "assets/css/style.css")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := fs.ReadDir("assets/css")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriter_ConcurrentWritesNeverTear(t *testing.T) {
	fs := memfs.New()
	w := NewWriter(fs)

	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("%d-%0512d", i, i))
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			_, err := w.Write("out/app.js", p)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	got, err := util.ReadFile(fs, "out/app.js")
	require.NoError(t, err)
	assert.Contains(t, payloads, got)
}

func TestWriter_RejectsEmptyPath(t *testing.T) {
	_, err := NewWriter(memfs.New()).Write("", []byte("x"))
	require.Error(t, err)
}
