package pipeline

import (
	"path"
	"strings"

	"assetweaver/internal/css"
)

// File is one buffer flowing through a chain.
type File struct {
	// Path is the project-relative name of the buffer. Stages such as
	// concat and rename change it; dest uses its base name.
	Path string

	// Source is the input path the buffer was read from. Concatenated
	// buffers leave it empty and record Segments instead.
	Source string

	Content []byte

	// Segments records which sources a concatenated buffer is made of.
	Segments []Segment

	// Sheet is the compiled tree behind Content when a stage kept it, and
	// Lines the origin of each line of Content. Both are nil when the
	// origin of the content is unknown.
	Sheet *css.Stylesheet
	Lines []css.Origin
}

// Segment locates one source inside a concatenated buffer.
type Segment struct {
	Source string
	// Line is the zero-based output line the source starts at.
	Line  int
	Lines int

	// Origins maps each line of the segment to the source line it came
	// from. Nil when unknown.
	Origins []css.Origin
}

// Ext returns the file extension including the dot.
func (f File) Ext() string {
	return path.Ext(f.Path)
}

// withExt returns p with its extension replaced.
func withExt(p, ext string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}

func isPartial(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}

func lineCount(b []byte) int {
	n := 1
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}
