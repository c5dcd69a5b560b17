package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// SourceMap emits "<name>.map" next to every concatenated stylesheet and
// appends a sourceMappingURL comment to it. Each generated line maps to the
// source line it was compiled from; lines of unknown origin map to the
// start of the source file.
type SourceMap struct {
	// Dir is the directory the stylesheet is written to; sources are made
	// relative to it.
	Dir string
}

func (s *SourceMap) Name() string { return "sourcemap" }

type sourceMapV3 struct {
	Version        int       `json:"version"`
	File           string    `json:"file"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

func (s *SourceMap) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	out := make([]File, 0, len(files)*2)
	for _, f := range files {
		if len(f.Segments) == 0 {
			out = append(out, f)
			continue
		}
		base := path.Base(f.Path)
		m := sourceMapV3{Version: 3, File: base, Names: []string{}}
		var sources []string
		m.Mappings, sources = encodeMappings(f.Segments)
		for _, src := range sources {
			m.Sources = append(m.Sources, relativeTo(s.Dir, src))
			// Imported partials are not read by src; their content is left
			// to the consumer to fetch.
			if content, ok := run.Sources[src]; ok {
				text := string(content)
				m.SourcesContent = append(m.SourcesContent, &text)
			} else {
				m.SourcesContent = append(m.SourcesContent, nil)
			}
		}

		data, err := json.Marshal(m)
		if err != nil {
			return nil, fileError(f.Path, fmt.Errorf("encode source map: %w", err))
		}

		content := make([]byte, 0, len(f.Content)+64)
		content = append(content, f.Content...)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content = append(content, '\n')
		}
		content = append(content, fmt.Sprintf("/*# sourceMappingURL=%s.map */\n", base)...)
		f.Content = content

		out = append(out, f, File{Path: f.Path + ".map", Content: data})
	}
	return out, nil
}

func relativeTo(dir, p string) string {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(p))
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// encodeMappings writes one mapping per generated line, at column zero,
// pointing at column zero of the line's origin. It returns the sources in
// order of first use.
func encodeMappings(segments []Segment) (string, []string) {
	var b strings.Builder
	var sources []string
	index := make(map[string]int)
	prevSource, prevLine := 0, 0
	first := true
	for _, seg := range segments {
		for l := 0; l < seg.Lines; l++ {
			src, line := seg.Source, 0
			if l < len(seg.Origins) && seg.Origins[l].Known() {
				src, line = seg.Origins[l].Source, seg.Origins[l].Line-1
			}
			i, ok := index[src]
			if !ok {
				i = len(sources)
				index[src] = i
				sources = append(sources, src)
			}

			if !first {
				b.WriteByte(';')
			}
			first = false
			writeVLQ(&b, 0)
			writeVLQ(&b, i-prevSource)
			writeVLQ(&b, line-prevLine)
			writeVLQ(&b, 0)
			prevSource, prevLine = i, line
		}
	}
	return b.String(), sources
}

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ appends v in the base64 VLQ encoding used by source maps.
func writeVLQ(b *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & 31
		u >>= 5
		if u > 0 {
			digit |= 32
		}
		b.WriteByte(base64Digits[digit])
		if u == 0 {
			return
		}
	}
}
