package scss

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

var unsupported = map[string]bool{
	"extend": true, "if": true, "else": true, "each": true, "for": true,
	"while": true, "function": true, "return": true, "use": true,
	"forward": true, "content": true, "at-root": true, "debug": true,
	"warn": true, "error": true,
}

type parser struct {
	file string
	toks []token
	pos  int
}

func parseFile(file string, src []byte) ([]stmt, error) {
	toks, err := tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	return p.block(true)
}

func (p *parser) errorf(at token, format string, args ...interface{}) error {
	return &Error{File: p.file, Line: at.line, Column: at.col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.eof() {
		return token{tt: css.ErrorToken}
	}
	return p.toks[p.pos]
}

func (p *parser) last() token {
	if len(p.toks) == 0 {
		return token{line: 1, col: 1}
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) skipSpace() {
	for !p.eof() && p.toks[p.pos].tt == css.WhitespaceToken {
		p.pos++
	}
}

// block parses statements until the closing brace, which it consumes.
// The top level ends at end of input instead.
func (p *parser) block(top bool) ([]stmt, error) {
	var out []stmt
	for {
		p.skipSpace()
		if p.eof() {
			if top {
				return out, nil
			}
			return nil, p.errorf(p.last(), `expected "}"`)
		}
		t := p.peek()
		switch {
		case t.tt == css.RightBraceToken:
			p.pos++
			if top {
				return nil, p.errorf(t, `unexpected "}"`)
			}
			return out, nil
		case t.tt == css.SemicolonToken:
			p.pos++
		case t.tt == css.CommentToken:
			p.pos++
			out = append(out, &commentStmt{text: t.data})
		case t.tt == css.CDOToken || t.tt == css.CDCToken:
			p.pos++
		case t.tt == css.AtKeywordToken:
			s, err := p.atRule()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		case t.is(css.DelimToken, "$"):
			s, err := p.variable()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		default:
			s, err := p.ruleOrDeclaration()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
}

// collect gathers tokens up to one of the stop tokens at nesting depth
// zero. The stop token is not consumed.
func (p *parser) collect(stops ...css.TokenType) ([]token, token, error) {
	start := p.peek()
	var out []token
	depth := 0
	for !p.eof() {
		t := p.peek()
		if depth == 0 {
			for _, s := range stops {
				if t.tt == s {
					return trimSpace(out), t, nil
				}
			}
		}
		if t.is(css.DelimToken, "#") && p.pos+1 < len(p.toks) && p.toks[p.pos+1].tt == css.LeftBraceToken {
			return nil, t, p.errorf(t, "interpolation is not supported")
		}
		switch t.tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth == 0 {
				return nil, t, p.errorf(t, "unexpected %q", t.data)
			}
			depth--
		case css.LeftBraceToken, css.RightBraceToken:
			if depth > 0 {
				return nil, t, p.errorf(t, "unbalanced brackets")
			}
		}
		out = append(out, t)
		p.pos++
	}
	if depth > 0 {
		return nil, start, p.errorf(start, `expected ")"`)
	}
	return trimSpace(out), token{tt: css.ErrorToken}, nil
}

func trimSpace(toks []token) []token {
	for len(toks) > 0 && toks[0].tt == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].tt == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func (p *parser) variable() (stmt, error) {
	start := p.peek()
	p.pos++
	name := p.peek()
	if name.tt != css.IdentToken {
		return nil, p.errorf(start, "expected variable name")
	}
	p.pos++
	p.skipSpace()
	if p.peek().tt != css.ColonToken {
		return nil, p.errorf(name, `expected ":" after $%s`, name.data)
	}
	p.pos++
	value, end, err := p.collect(css.SemicolonToken, css.RightBraceToken)
	if err != nil {
		return nil, err
	}
	if end.tt == css.SemicolonToken {
		p.pos++
	}
	v := &varDecl{name: name.data, pos: start}
	for {
		n := len(value)
		if n >= 2 && value[n-2].is(css.DelimToken, "!") && value[n-1].tt == css.IdentToken {
			switch strings.ToLower(value[n-1].data) {
			case "default":
				v.def = true
			case "global":
				v.global = true
			default:
				return nil, p.errorf(value[n-1], "unknown flag !%s", value[n-1].data)
			}
			value = trimSpace(value[:n-2])
			continue
		}
		break
	}
	if len(value) == 0 {
		return nil, p.errorf(start, "expected value for $%s", name.data)
	}
	v.value = value
	return v, nil
}

func (p *parser) ruleOrDeclaration() (stmt, error) {
	start := p.peek()
	toks, end, err := p.collect(css.LeftBraceToken, css.SemicolonToken, css.RightBraceToken)
	if err != nil {
		return nil, err
	}
	if end.tt == css.LeftBraceToken {
		p.pos++
		body, err := p.block(false)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			return nil, p.errorf(start, "expected selector")
		}
		if prop, value, ok := propertyGroup(toks); ok {
			return &propGroupStmt{prop: prop, value: value, body: body, pos: start}, nil
		}
		return &ruleStmt{selector: toks, body: body, pos: start}, nil
	}
	if end.tt == css.SemicolonToken {
		p.pos++
	}

	colon := -1
	for i, t := range toks {
		if t.tt == css.ColonToken {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return nil, p.errorf(start, `expected ":" in declaration`)
	}
	prop := trimSpace(toks[:colon])
	value := trimSpace(toks[colon+1:])
	if len(value) == 0 {
		return nil, p.errorf(start, "expected value for %s", joinTokens(prop))
	}
	return &declStmt{prop: prop, value: value, pos: start}, nil
}

// propertyGroup reports whether the tokens before "{" name a nested
// property rather than a selector: "font:" or "font: bold". A colon
// followed directly by an identifier is a pseudo-class.
func propertyGroup(toks []token) (prop, value []token, ok bool) {
	if len(toks) < 2 || toks[0].tt != css.IdentToken {
		return nil, nil, false
	}
	colon := -1
	for i, t := range toks {
		if t.tt == css.ColonToken {
			colon = i
			break
		}
		if t.tt != css.IdentToken && t.tt != css.WhitespaceToken {
			return nil, nil, false
		}
	}
	if colon < 0 {
		return nil, nil, false
	}
	rest := toks[colon+1:]
	if len(rest) > 0 && rest[0].tt != css.WhitespaceToken {
		return nil, nil, false
	}
	return trimSpace(toks[:colon]), trimSpace(rest), true
}

func (p *parser) atRule() (stmt, error) {
	start := p.peek()
	p.pos++
	name := strings.ToLower(strings.TrimPrefix(start.data, "@"))
	if unsupported[name] {
		return nil, p.errorf(start, "@%s is not supported", name)
	}
	switch name {
	case "mixin":
		return p.mixin(start)
	case "include":
		return p.include(start)
	}

	prelude, end, err := p.collect(css.LeftBraceToken, css.SemicolonToken, css.RightBraceToken)
	if err != nil {
		return nil, err
	}
	if name == "import" {
		if end.tt == css.LeftBraceToken {
			return nil, p.errorf(start, "@import takes no block")
		}
		if end.tt == css.SemicolonToken {
			p.pos++
		}
		if len(prelude) == 0 {
			return nil, p.errorf(start, "expected import target")
		}
		return &importStmt{prelude: prelude, pos: start}, nil
	}

	s := &atStmt{name: name, prelude: prelude, pos: start}
	switch end.tt {
	case css.LeftBraceToken:
		p.pos++
		body, err := p.block(false)
		if err != nil {
			return nil, err
		}
		s.body = body
		s.hasBlock = true
	case css.SemicolonToken:
		p.pos++
	}
	return s, nil
}

// callee reads "name" or "name(" and reports whether an argument list
// follows.
func (p *parser) callee(at token) (string, bool, error) {
	p.skipSpace()
	t := p.peek()
	switch t.tt {
	case css.IdentToken:
		p.pos++
		p.skipSpace()
		if p.peek().tt == css.LeftParenthesisToken {
			p.pos++
			return t.data, true, nil
		}
		return t.data, false, nil
	case css.FunctionToken:
		p.pos++
		return strings.TrimSuffix(t.data, "("), true, nil
	}
	return "", false, p.errorf(at, "expected mixin name")
}

// arguments reads a comma-separated list up to and including ")".
func (p *parser) arguments(at token) ([][]token, error) {
	var args [][]token
	for {
		arg, end, err := p.collect(css.CommaToken, css.RightParenthesisToken)
		if err != nil {
			return nil, err
		}
		if end.tt == css.ErrorToken {
			return nil, p.errorf(at, `expected ")"`)
		}
		p.pos++
		if len(arg) > 0 {
			args = append(args, arg)
		}
		if end.tt == css.RightParenthesisToken {
			return args, nil
		}
	}
}

func (p *parser) mixin(start token) (stmt, error) {
	name, hasArgs, err := p.callee(start)
	if err != nil {
		return nil, err
	}
	m := &mixinStmt{name: name, pos: start}
	if hasArgs {
		args, err := p.arguments(start)
		if err != nil {
			return nil, err
		}
		for _, a := range args {
			if len(a) < 2 || !a[0].is(css.DelimToken, "$") || a[1].tt != css.IdentToken {
				return nil, p.errorf(a[0], "expected parameter name")
			}
			prm := param{name: a[1].data}
			rest := trimSpace(a[2:])
			if len(rest) > 0 {
				if rest[0].tt != css.ColonToken {
					return nil, p.errorf(rest[0], `expected ":" after $%s`, prm.name)
				}
				prm.def = trimSpace(rest[1:])
			}
			m.params = append(m.params, prm)
		}
	}
	p.skipSpace()
	if p.peek().tt != css.LeftBraceToken {
		return nil, p.errorf(start, `expected "{" after @mixin %s`, name)
	}
	p.pos++
	body, err := p.block(false)
	if err != nil {
		return nil, err
	}
	m.body = body
	return m, nil
}

func (p *parser) include(start token) (stmt, error) {
	name, hasArgs, err := p.callee(start)
	if err != nil {
		return nil, err
	}
	inc := &includeStmt{name: name, pos: start}
	if hasArgs {
		if inc.args, err = p.arguments(start); err != nil {
			return nil, err
		}
	}
	p.skipSpace()
	switch p.peek().tt {
	case css.SemicolonToken:
		p.pos++
	case css.RightBraceToken, css.ErrorToken:
	case css.LeftBraceToken:
		return nil, p.errorf(start, "@include with a content block is not supported")
	default:
		return nil, p.errorf(p.peek(), `expected ";" after @include %s`, name)
	}
	return inc, nil
}

// joinTokens renders tokens with whitespace runs collapsed to one space.
func joinTokens(toks []token) string {
	var b strings.Builder
	space := false
	for _, t := range toks {
		if t.tt == css.WhitespaceToken || t.tt == css.CommentToken {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteString(t.data)
	}
	return b.String()
}
