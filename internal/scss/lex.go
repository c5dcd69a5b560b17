package scss

import (
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type token struct {
	tt   css.TokenType
	data string
	line int
	col  int
}

func (t token) is(tt css.TokenType, data string) bool {
	return t.tt == tt && t.data == data
}

// tokenize strips line comments and lexes src into positioned tokens.
func tokenize(file string, src []byte) ([]token, error) {
	src = stripLineComments(src)
	l := css.NewLexer(parse.NewInputBytes(src))
	var toks []token
	line, col := 1, 1
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, &Error{File: file, Line: line, Column: col, Message: err.Error()}
			}
			return toks, nil
		}
		switch tt {
		case css.BadStringToken:
			return nil, &Error{File: file, Line: line, Column: col, Message: "unterminated string"}
		case css.BadURLToken:
			return nil, &Error{File: file, Line: line, Column: col, Message: "malformed url()"}
		}
		s := string(data)
		toks = append(toks, token{tt: tt, data: s, line: line, col: col})
		if n := strings.Count(s, "\n"); n > 0 {
			line += n
			col = len(s) - strings.LastIndex(s, "\n")
		} else {
			col += len(s)
		}
	}
}

// stripLineComments blanks "//" comments while keeping byte offsets and
// newlines, so token positions stay accurate. Strings, block comments and
// unquoted url() arguments are left alone.
func stripLineComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c == '"' || c == '\'':
			i = skipString(out, i)
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(string(out[i+2:]), "*/")
			if end < 0 {
				return out
			}
			i += end + 3
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case (c == 'u' || c == 'U') && hasURLPrefix(out[i:]):
			for i < len(out) && out[i] != ')' && out[i] != '\n' {
				if out[i] == '"' || out[i] == '\'' {
					i = skipString(out, i)
				}
				i++
			}
		}
	}
	return out
}

func skipString(b []byte, i int) int {
	q := b[i]
	for i++; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case q, '\n':
			return i
		}
	}
	return i
}

func hasURLPrefix(b []byte) bool {
	return len(b) >= 4 && strings.EqualFold(string(b[:4]), "url(")
}
