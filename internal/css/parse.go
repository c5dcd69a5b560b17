package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Parse reads plain CSS into a Stylesheet.
//
// Whitespace inside selectors, preludes and values is collapsed to single
// spaces and comments inside them are dropped; top-level and block
// comments are kept as nodes.
func Parse(src []byte) (*Stylesheet, error) {
	sheet := &Stylesheet{}
	p := css.NewParser(parse.NewInputBytes(src), false)

	// stack[0] is the sheet itself, represented by a nil *AtRule.
	stack := []*AtRule{nil}
	var rule *Rule
	var pending []string

	appendNode := func(n Node) {
		top := stack[len(stack)-1]
		if top == nil {
			sheet.Nodes = append(sheet.Nodes, n)
			return
		}
		top.Children = append(top.Children, n)
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if errors.Is(err, io.EOF) {
				if rule != nil || len(stack) > 1 {
					return nil, fmt.Errorf("unexpected end of stylesheet: unclosed block")
				}
				return sheet, nil
			}
			return nil, fmt.Errorf("parse stylesheet: %w", err)

		case css.CommentGrammar:
			if rule != nil {
				continue
			}
			appendNode(&Comment{Text: string(data)})

		case css.AtRuleGrammar:
			appendNode(&AtRule{Name: atName(data), Prelude: JoinTokens(p.Values())})

		case css.BeginAtRuleGrammar:
			a := &AtRule{Name: atName(data), Prelude: JoinTokens(p.Values()), Block: true}
			appendNode(a)
			stack = append(stack, a)

		case css.EndAtRuleGrammar:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}

		case css.QualifiedRuleGrammar:
			pending = append(pending, JoinTokens(p.Values()))

		case css.BeginRulesetGrammar:
			sel := append(pending, JoinTokens(p.Values()))
			pending = nil
			rule = &Rule{Selectors: sel}
			appendNode(rule)

		case css.EndRulesetGrammar:
			rule = nil

		case css.DeclarationGrammar:
			d := declaration(strings.ToLower(string(data)), p.Values())
			addDeclaration(rule, stack[len(stack)-1], d)

		case css.CustomPropertyGrammar:
			d := Declaration{Property: string(data), Value: strings.TrimSpace(string(joinRaw(p.Values())))}
			addDeclaration(rule, stack[len(stack)-1], d)
		}
	}
}

func addDeclaration(rule *Rule, at *AtRule, d Declaration) {
	switch {
	case rule != nil:
		rule.Declarations = append(rule.Declarations, d)
	case at != nil:
		at.Declarations = append(at.Declarations, d)
	}
}

func atName(data []byte) string {
	return strings.ToLower(string(bytes.TrimPrefix(data, []byte("@"))))
}

// declaration builds a Declaration from value tokens, lifting a trailing
// "!important" into the Important flag.
func declaration(property string, values []css.Token) Declaration {
	end := len(values)
	for end > 0 && values[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	important := false
	if end > 0 && values[end-1].TokenType == css.IdentToken && strings.EqualFold(string(values[end-1].Data), "important") {
		i := end - 1
		for i > 0 && values[i-1].TokenType == css.WhitespaceToken {
			i--
		}
		if i > 0 && values[i-1].TokenType == css.DelimToken && string(values[i-1].Data) == "!" {
			important = true
			end = i - 1
		}
	}
	return Declaration{Property: property, Value: JoinTokens(values[:end]), Important: important}
}

// JoinTokens renders tokens with whitespace runs collapsed to one space and
// comments removed. Leading and trailing whitespace is dropped.
func JoinTokens(toks []css.Token) string {
	var b strings.Builder
	space := false
	for _, t := range toks {
		if t.TokenType == css.WhitespaceToken || t.TokenType == css.CommentToken {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.Write(t.Data)
	}
	return b.String()
}

func joinRaw(toks []css.Token) []byte {
	var b bytes.Buffer
	for _, t := range toks {
		b.Write(t.Data)
	}
	return b.Bytes()
}
