package css

import (
	"bytes"
	"strings"
)

// Style selects the printer output format.
type Style int

const (
	// Expanded prints one declaration per line with two-space indentation.
	Expanded Style = iota
	// Compressed removes all optional whitespace and non-loud comments.
	Compressed
)

func (s Style) String() string {
	if s == Compressed {
		return "compressed"
	}
	return "expanded"
}

// Print renders the stylesheet. Rules without declarations and block
// at-rules left empty are omitted.
func Print(s *Stylesheet, style Style) []byte {
	out, _ := PrintMapped(s, style)
	return out
}

// PrintMapped is Print that also reports, for every output line, the
// origin of the node printed on it. Lines without a known origin of their
// own inherit the one before them. The result has one entry per line,
// including the empty line after a trailing newline.
func PrintMapped(s *Stylesheet, style Style) ([]byte, []Origin) {
	p := &printer{style: style}
	p.nodes(s.Nodes, 0)
	if style == Expanded && p.buf.Len() > 0 {
		p.newline()
	}
	return p.buf.Bytes(), append(p.lines, p.cur)
}

type printer struct {
	buf   bytes.Buffer
	style Style
	wrote bool

	lines []Origin
	cur   Origin
}

func (p *printer) mark(o Origin) {
	if o.Known() {
		p.cur = o
	}
}

func (p *printer) newline() {
	p.lines = append(p.lines, p.cur)
	p.buf.WriteByte('\n')
}

// text writes s, which may span lines.
func (p *printer) text(s string) {
	for n := strings.Count(s, "\n"); n > 0; n-- {
		p.lines = append(p.lines, p.cur)
	}
	p.buf.WriteString(s)
}

func (p *printer) nodes(nodes []Node, depth int) {
	for _, n := range nodes {
		if isEmpty(n) {
			continue
		}
		if c, ok := n.(*Comment); ok && p.style == Compressed && !strings.HasPrefix(c.Text, "/*!") {
			continue
		}
		p.separate(depth)
		switch v := n.(type) {
		case *Rule:
			p.rule(v, depth)
		case *AtRule:
			p.atRule(v, depth)
		case *Comment:
			p.indent(depth)
			p.text(v.Text)
		}
	}
}

// separate writes the gap between two sibling nodes.
func (p *printer) separate(depth int) {
	if !p.wrote {
		p.wrote = true
		return
	}
	if p.style == Compressed {
		return
	}
	p.newline()
	if depth == 0 {
		p.newline()
	}
}

func (p *printer) indent(depth int) {
	if p.style == Compressed {
		return
	}
	for i := 0; i < depth; i++ {
		p.buf.WriteString("  ")
	}
}

func (p *printer) rule(r *Rule, depth int) {
	p.indent(depth)
	p.mark(r.Origin)
	if p.style == Compressed {
		p.buf.WriteString(strings.Join(r.Selectors, ","))
	} else {
		p.buf.WriteString(strings.Join(r.Selectors, ", "))
	}
	p.open()
	p.declarations(r.Declarations, depth+1)
	p.close(depth)
}

func (p *printer) atRule(a *AtRule, depth int) {
	p.indent(depth)
	p.mark(a.Origin)
	p.buf.WriteByte('@')
	p.buf.WriteString(a.Name)
	if a.Prelude != "" {
		p.buf.WriteByte(' ')
		p.buf.WriteString(a.Prelude)
	}
	if !a.Block {
		p.buf.WriteByte(';')
		return
	}
	p.open()
	p.declarations(a.Declarations, depth+1)
	if len(a.Children) > 0 {
		saved := p.wrote
		p.wrote = len(a.Declarations) > 0
		if p.wrote {
			if p.style == Expanded {
				p.newline()
			} else {
				p.buf.WriteByte(';')
			}
			p.wrote = false
		}
		p.nodes(a.Children, depth+1)
		p.wrote = saved
	}
	p.close(depth)
}

func (p *printer) open() {
	if p.style == Compressed {
		p.buf.WriteByte('{')
		return
	}
	p.buf.WriteString(" {")
	p.newline()
}

func (p *printer) close(depth int) {
	if p.style == Compressed {
		p.buf.WriteByte('}')
		return
	}
	p.newline()
	p.indent(depth)
	p.buf.WriteByte('}')
}

func (p *printer) declarations(decls []Declaration, depth int) {
	for i, d := range decls {
		if p.style == Compressed {
			if i > 0 {
				p.buf.WriteByte(';')
			}
			p.buf.WriteString(d.Property)
			p.buf.WriteByte(':')
			p.buf.WriteString(d.Value)
			if d.Important {
				p.buf.WriteString("!important")
			}
			continue
		}
		if i > 0 {
			p.newline()
		}
		p.indent(depth)
		p.mark(d.Origin)
		p.buf.WriteString(d.Property)
		p.buf.WriteString(": ")
		p.buf.WriteString(d.Value)
		if d.Important {
			p.buf.WriteString(" !important")
		}
		p.buf.WriteByte(';')
	}
}
