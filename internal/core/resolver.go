package core

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrInputNotFound is returned when a literal (non-glob) input does not exist.
var ErrInputNotFound = errors.New("input not found")

// InputResolver resolves a Source File Set to an ordered InputSet.
//
// Resolution rules:
//   - Patterns are processed in declared order.
//   - Matches of one glob are sorted lexicographically.
//   - A path already produced by an earlier pattern is not repeated.
//   - Negated patterns ("!x") remove matches collected so far.
//   - A missing literal path is an error; a glob matching nothing is not.
type InputResolver struct {
	FS billy.Filesystem
}

// NewInputResolver creates a resolver over the given filesystem.
func NewInputResolver(fs billy.Filesystem) *InputResolver {
	return &InputResolver{FS: fs}
}

// Resolve expands all patterns and reads each matched file once.
func (r *InputResolver) Resolve(patterns []string) (*InputSet, error) {
	paths, err := r.Expand(patterns)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(paths))
	for _, p := range paths {
		content, err := util.ReadFile(r.FS, p)
		if err != nil {
			return nil, fmt.Errorf("reading input %q: %w", p, err)
		}
		inputs = append(inputs, Input{Path: p, Content: content})
	}
	return &InputSet{Inputs: inputs}, nil
}

// Expand returns the ordered list of paths matched by patterns without
// reading them.
func (r *InputResolver) Expand(patterns []string) ([]string, error) {
	if r == nil || r.FS == nil {
		return nil, errors.New("resolver has no filesystem")
	}
	compiled, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]struct{})
	for _, p := range compiled {
		if p.Negated() {
			out = exclude(out, seen, p)
			continue
		}
		matches, err := r.expandPattern(p)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", p.String(), err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *InputResolver) expandPattern(p *Pattern) ([]string, error) {
	if p.Literal() {
		info, err := r.FS.Stat(p.Path())
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrInputNotFound, p.Path())
			}
			return nil, fmt.Errorf("stat %q: %w", p.Path(), err)
		}
		if info.IsDir() {
			return nil, nil
		}
		return []string{p.Path()}, nil
	}

	base := p.Base()
	var matches []string
	err := util.Walk(r.FS, base, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if name == base && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := NormalizePath(name)
		if p.Match(rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Filesystem walk order is not part of the contract.
	sort.Strings(matches)
	return matches, nil
}

func exclude(paths []string, seen map[string]struct{}, p *Pattern) []string {
	kept := paths[:0]
	for _, path := range paths {
		if p.Match(path) {
			delete(seen, path)
			continue
		}
		kept = append(kept, path)
	}
	return kept
}
