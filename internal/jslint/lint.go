// Package jslint reports advisory findings for first-party scripts.
//
// Findings never fail a build; they are logged with their location and the
// script continues down its stage chain.
package jslint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// Rule names.
const (
	RuleSyntax             = "syntax"
	RuleEqeqeq             = "eqeqeq"
	RuleDebugger           = "no-debugger"
	RuleTrailingWhitespace = "no-trailing-spaces"
)

// Finding is a single lint result.
type Finding struct {
	File    string
	Line    int
	Column  int
	Rule    string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d:%d: %s (%s)", f.File, f.Line, f.Column, f.Message, f.Rule)
}

// Findings is the advisory result of linting one or more files.
type Findings []Finding

// Files returns the distinct files with findings, sorted.
func (fs Findings) Files() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range fs {
		if !seen[f.File] {
			seen[f.File] = true
			out = append(out, f.File)
		}
	}
	sort.Strings(out)
	return out
}

func (fs Findings) String() string {
	lines := make([]string, 0, len(fs))
	for _, f := range fs {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}

// Lint checks one script and returns its findings ordered by position.
func Lint(file string, src []byte) Findings {
	var out Findings

	if _, err := js.Parse(parse.NewInputBytes(src), js.Options{}); err != nil {
		f := Finding{File: file, Line: 1, Column: 1, Rule: RuleSyntax, Message: err.Error()}
		var perr *parse.Error
		if errors.As(err, &perr) {
			f.Line, f.Column, f.Message = perr.Line, perr.Column, perr.Message
		}
		out = append(out, f)
	}

	out = append(out, lintTokens(file, src)...)
	out = append(out, lintWhitespace(file, src)...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// endsOperand lists tokens after which '/' is division rather than the
// start of a regular expression.
var endsOperand = map[js.TokenType]bool{
	js.IdentifierToken:   true,
	js.NumericToken:      true,
	js.StringToken:       true,
	js.TemplateToken:     true,
	js.CloseParenToken:   true,
	js.CloseBracketToken: true,
	js.CloseBraceToken:   true,
	js.ThisToken:         true,
	js.TrueToken:         true,
	js.FalseToken:        true,
	js.NullToken:         true,
}

func lintTokens(file string, src []byte) Findings {
	var out Findings
	l := js.NewLexer(parse.NewInputBytes(src))
	line, col := 1, 1
	prev := js.ErrorToken
	for {
		tt, data := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return out
			}
			return out
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && !endsOperand[prev] {
			tt, data = l.RegExp()
		}

		switch tt {
		case js.EqEqToken:
			out = append(out, Finding{File: file, Line: line, Column: col, Rule: RuleEqeqeq, Message: "Expected '===' and instead saw '=='."})
		case js.NotEqToken:
			out = append(out, Finding{File: file, Line: line, Column: col, Rule: RuleEqeqeq, Message: "Expected '!==' and instead saw '!='."})
		case js.DebuggerToken:
			out = append(out, Finding{File: file, Line: line, Column: col, Rule: RuleDebugger, Message: "Forbidden 'debugger' statement."})
		}

		switch tt {
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
		default:
			prev = tt
		}

		if n := bytes.Count(data, []byte("\n")); n > 0 {
			line += n
			col = len(data) - bytes.LastIndexByte(data, '\n')
		} else {
			col += len(data)
		}
	}
}

func lintWhitespace(file string, src []byte) Findings {
	var out Findings
	for i, line := range bytes.Split(src, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		trimmed := bytes.TrimRight(line, " \t")
		if len(trimmed) < len(line) {
			out = append(out, Finding{
				File:    file,
				Line:    i + 1,
				Column:  len(trimmed) + 1,
				Rule:    RuleTrailingWhitespace,
				Message: "Trailing whitespace.",
			})
		}
	}
	return out
}
