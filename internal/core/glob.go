package core

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is a compiled Source File Set entry.
//
// Syntax follows the usual build-tool conventions: '*' and '?' stay inside
// one path segment, '**' crosses segments and "**/" may match zero
// directories, "{a,b}" lists alternatives, and a leading '!' excludes.
type Pattern struct {
	raw      string
	clean    string
	base     string
	negated  bool
	literal  bool
	matchers []glob.Glob
}

// CompilePattern parses a single Source File Set entry.
func CompilePattern(raw string) (*Pattern, error) {
	p := &Pattern{raw: raw}
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "!") {
		p.negated = true
		s = s[1:]
	}
	s = NormalizePath(s)
	if s == "" || s == "." {
		return nil, fmt.Errorf("empty pattern %q", raw)
	}
	if strings.HasPrefix(s, "../") || s == ".." {
		return nil, fmt.Errorf("pattern %q escapes the project root", raw)
	}
	p.clean = s
	p.literal = !containsGlobChar(s)
	p.base = staticBase(s)

	for _, variant := range expandSuperstar(s) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", raw, err)
		}
		p.matchers = append(p.matchers, g)
	}
	return p, nil
}

// CompilePatterns compiles each entry of a Source File Set in order.
func CompilePatterns(raw []string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(raw))
	for _, r := range raw {
		p, err := CompilePattern(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether the project-relative path matches the pattern,
// ignoring negation.
func (p *Pattern) Match(name string) bool {
	name = NormalizePath(name)
	if p.literal {
		return name == p.clean
	}
	for _, g := range p.matchers {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Base is the longest directory prefix free of glob characters.
func (p *Pattern) Base() string { return p.base }

// Negated reports whether the pattern excludes matches.
func (p *Pattern) Negated() bool { return p.negated }

// Literal reports whether the pattern names exactly one path.
func (p *Pattern) Literal() bool { return p.literal }

// Path returns the normalized pattern without the negation marker.
func (p *Pattern) Path() string { return p.clean }

func (p *Pattern) String() string { return p.raw }

// NormalizePath converts a path to the slash-separated, cleaned,
// project-relative form used throughout the module.
func NormalizePath(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}

// containsGlobChar returns true if the pattern contains glob special characters.
func containsGlobChar(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', ']', '{', '}':
			return true
		}
	}
	return false
}

func staticBase(p string) string {
	if !containsGlobChar(p) {
		dir := path.Dir(p)
		return dir
	}
	segs := strings.Split(p, "/")
	var base []string
	for _, s := range segs {
		if containsGlobChar(s) {
			break
		}
		base = append(base, s)
	}
	if len(base) == 0 {
		return "."
	}
	return strings.Join(base, "/")
}

// expandSuperstar returns every spelling of p in which each "**/" either
// stays or matches zero directories.
func expandSuperstar(p string) []string {
	idx := strings.Index(p, "**/")
	if idx < 0 {
		return []string{p}
	}
	head := p[:idx]
	var out []string
	for _, rest := range expandSuperstar(p[idx+3:]) {
		out = append(out, head+"**/"+rest, head+rest)
	}
	return out
}
