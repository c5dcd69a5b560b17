package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"assetweaver/internal/compress"
	"assetweaver/internal/core"
	"assetweaver/internal/css"
)

// Concat joins all files, in order, into one buffer named Output. Files
// are separated by a newline. With no files the chain continues empty.
type Concat struct {
	Output string
}

func (c *Concat) Name() string { return "concat" }

func (c *Concat) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	if len(files) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	segments := make([]Segment, 0, len(files))
	line := 0
	for i, f := range files {
		if i > 0 {
			buf.WriteByte('\n')
		}
		n := lineCount(f.Content)
		source := f.Source
		if source == "" {
			source = f.Path
		}
		origins := f.Lines
		if len(origins) != n {
			origins = nil
		}
		if origins == nil && run != nil && bytes.Equal(f.Content, run.Sources[source]) {
			origins = identityOrigins(source, n)
		}
		segments = append(segments, Segment{Source: source, Line: line, Lines: n, Origins: origins})
		buf.Write(f.Content)
		line += n
	}
	return []File{{Path: c.Output, Content: buf.Bytes(), Segments: segments}}, nil
}

// identityOrigins maps each of n lines to the same line of source, for
// content that reached concat unchanged.
func identityOrigins(source string, n int) []css.Origin {
	out := make([]css.Origin, n)
	for i := range out {
		out[i] = css.Origin{Source: source, Line: i + 1}
	}
	return out
}

// Rename changes the base name and/or inserts a suffix before the
// extension, e.g. "app.js" with suffix ".min" becomes "app.min.js".
type Rename struct {
	Basename string
	Suffix   string
}

func (r *Rename) Name() string { return "rename" }

func (r *Rename) Apply(_ context.Context, _ *Run, files []File) ([]File, error) {
	for i, f := range files {
		dir, base := path.Split(f.Path)
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		if r.Basename != "" {
			stem = r.Basename
		}
		files[i].Path = dir + stem + r.Suffix + ext
	}
	return files, nil
}

// MinifyKind selects the minifier.
type MinifyKind string

const (
	MinifyCSS MinifyKind = "css"
	MinifyJS  MinifyKind = "js"
)

// Minify compresses each file. Results are memoised by content.
type Minify struct {
	Kind     MinifyKind
	Minifier *compress.Minifier
	Cache    *core.StageCache
}

func (m *Minify) Name() string { return "minify" }

func (m *Minify) Apply(_ context.Context, _ *Run, files []File) ([]File, error) {
	for i, f := range files {
		key := core.HashContent(m.Name(), []string{string(m.Kind)}, f.Content)
		if cached, ok := m.Cache.Get(key); ok {
			files[i].Content = cached
			continue
		}
		var (
			out []byte
			err error
		)
		switch m.Kind {
		case MinifyCSS:
			out, err = m.Minifier.CSS(f.Content)
		case MinifyJS:
			out, err = m.Minifier.JS(f.Content)
		default:
			err = fmt.Errorf("unknown minifier %q", m.Kind)
		}
		if err != nil {
			return nil, fileError(f.Path, err)
		}
		m.Cache.Put(key, out)
		files[i].Content = out
	}
	return files, nil
}
