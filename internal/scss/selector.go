package scss

import (
	"errors"
	"strings"
)

// splitSelectors splits a selector list on top-level commas.
func splitSelectors(list string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			if s := strings.TrimSpace(list[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(list[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// resolveSelectors combines nested selectors with their parents. A child
// containing '&' has it replaced by the parent; any other child becomes a
// descendant of the parent.
func resolveSelectors(parents, children []string) ([]string, error) {
	if len(children) == 0 {
		return nil, errors.New("expected selector")
	}
	if parents == nil {
		for _, c := range children {
			if strings.Contains(c, "&") {
				return nil, errors.New(`top-level selectors may not contain the parent selector "&"`)
			}
		}
		return children, nil
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
				continue
			}
			out = append(out, p+" "+c)
		}
	}
	return out, nil
}
