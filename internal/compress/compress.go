// Package compress minifies stylesheet and script bundles.
package compress

import (
	"bytes"
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// Media types understood by Minifier.
const (
	MediaCSS = "text/css"
	MediaJS  = "application/javascript"
)

// Minifier wraps a configured minify.M. It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

// New creates a minifier for stylesheets and scripts.
func New() *Minifier {
	m := minify.New()
	m.Add(MediaCSS, &css.Minifier{KeepCSS2: true})
	m.Add(MediaJS, &js.Minifier{})
	return &Minifier{m: m}
}

// CSS minifies a stylesheet.
func (c *Minifier) CSS(src []byte) ([]byte, error) {
	return c.run(MediaCSS, src)
}

// JS minifies a script.
func (c *Minifier) JS(src []byte) ([]byte, error) {
	return c.run(MediaJS, src)
}

func (c *Minifier) run(mediatype string, src []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := c.m.Minify(mediatype, &out, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("minify %s: %w", mediatype, err)
	}
	// Never return something larger than what came in.
	if out.Len() > len(src) {
		return append([]byte(nil), src...), nil
	}
	return out.Bytes(), nil
}
