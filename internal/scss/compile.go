package scss

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/tdewolff/parse/v2/css"

	stylesheet "assetweaver/internal/css"
)

// Compiler turns SCSS sources into stylesheet trees.
type Compiler struct {
	// FS resolves @import targets.
	FS billy.Filesystem

	// LoadPaths are extra directories searched for imports after the
	// importing file's own directory.
	LoadPaths []string
}

// NewCompiler creates a compiler reading imports from fs.
func NewCompiler(fs billy.Filesystem, loadPaths ...string) *Compiler {
	return &Compiler{FS: fs, LoadPaths: loadPaths}
}

// Compile compiles src, which was read from file.
func (c *Compiler) Compile(file string, src []byte) (*stylesheet.Stylesheet, error) {
	stmts, err := parseFile(file, src)
	if err != nil {
		return nil, err
	}
	sheet := &stylesheet.Stylesheet{}
	e := &evaluator{c: c, imports: []string{file}}
	ctx := evalCtx{file: file, out: &sheet.Nodes, scope: newScope(nil)}
	if err := e.stmts(stmts, ctx); err != nil {
		return nil, err
	}
	return sheet, nil
}

type mixin struct {
	def   *mixinStmt
	file  string
	scope *scope
}

type scope struct {
	parent *scope
	vars   map[string]string
	mixins map[string]*mixin
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]string{}, mixins: map[string]*mixin{}}
}

func (s *scope) lookup(name string) (string, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

func (s *scope) mixin(name string) (*mixin, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if m, ok := sc.mixins[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (s *scope) root() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

type evalCtx struct {
	file      string
	selectors []string
	rule      *stylesheet.Rule
	at        *stylesheet.AtRule
	out       *[]stylesheet.Node
	scope     *scope
}

type evaluator struct {
	c       *Compiler
	imports []string
}

func origin(file string, at token) stylesheet.Origin {
	return stylesheet.Origin{Source: file, Line: at.line}
}

func (e *evaluator) errorf(file string, at token, format string, args ...interface{}) error {
	return &Error{File: file, Line: at.line, Column: at.col, Message: fmt.Sprintf(format, args...)}
}

func (e *evaluator) stmts(stmts []stmt, ctx evalCtx) error {
	for _, s := range stmts {
		if err := e.stmt(s, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *evaluator) stmt(s stmt, ctx evalCtx) error {
	switch v := s.(type) {
	case *commentStmt:
		if ctx.rule == nil {
			*ctx.out = append(*ctx.out, &stylesheet.Comment{Text: v.text})
		}
		return nil

	case *varDecl:
		value, err := e.substitute(ctx, v.value)
		if err != nil {
			return err
		}
		target := ctx.scope
		if v.global {
			target = ctx.scope.root()
		}
		if v.def {
			if _, ok := target.lookup(v.name); ok {
				return nil
			}
		}
		target.vars[v.name] = value
		return nil

	case *declStmt:
		return e.declaration(v, ctx)

	case *propGroupStmt:
		return e.propertyGroup(v, ctx, "")

	case *ruleStmt:
		return e.rule(v, ctx)

	case *atStmt:
		return e.atRule(v, ctx)

	case *importStmt:
		return e.importRule(v, ctx)

	case *mixinStmt:
		ctx.scope.mixins[v.name] = &mixin{def: v, file: ctx.file, scope: ctx.scope}
		return nil

	case *includeStmt:
		return e.include(v, ctx)
	}
	return fmt.Errorf("unknown statement %T", s)
}

// substitute replaces $variables in toks and renders the result.
func (e *evaluator) substitute(ctx evalCtx, toks []token) (string, error) {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.is(css.DelimToken, "$") && i+1 < len(toks) && toks[i+1].tt == css.IdentToken {
			name := toks[i+1].data
			v, ok := ctx.scope.lookup(name)
			if !ok {
				return "", e.errorf(ctx.file, t, "undefined variable $%s", name)
			}
			out = append(out, token{tt: css.IdentToken, data: v})
			i++
			continue
		}
		out = append(out, t)
	}
	return joinTokens(out), nil
}

func (e *evaluator) declaration(d *declStmt, ctx evalCtx) error {
	return e.emit(ctx, "", d.prop, d.value, d.pos)
}

// propertyGroup flattens a nested property block into prefixed
// declarations: "font: { size: 1px }" becomes "font-size: 1px".
func (e *evaluator) propertyGroup(g *propGroupStmt, ctx evalCtx, prefix string) error {
	name, err := e.substitute(ctx, g.prop)
	if err != nil {
		return err
	}
	name = prefix + name
	if len(g.value) > 0 {
		if err := e.emit(ctx, prefix, g.prop, g.value, g.pos); err != nil {
			return err
		}
	}
	for _, s := range g.body {
		switch v := s.(type) {
		case *commentStmt:
		case *declStmt:
			if err := e.emit(ctx, name+"-", v.prop, v.value, v.pos); err != nil {
				return err
			}
		case *propGroupStmt:
			if err := e.propertyGroup(v, ctx, name+"-"); err != nil {
				return err
			}
		case *ruleStmt:
			return e.errorf(ctx.file, v.pos, "only properties may be nested inside %s", name)
		case *atStmt:
			return e.errorf(ctx.file, v.pos, "only properties may be nested inside %s", name)
		default:
			return e.errorf(ctx.file, g.pos, "only properties may be nested inside %s", name)
		}
	}
	return nil
}

func (e *evaluator) emit(ctx evalCtx, prefix string, propToks, valueToks []token, pos token) error {
	prop, err := e.substitute(ctx, propToks)
	if err != nil {
		return err
	}
	prop = prefix + prop
	value, err := e.substitute(ctx, valueToks)
	if err != nil {
		return err
	}
	decl := stylesheet.Declaration{Property: prop, Value: value, Origin: origin(ctx.file, pos)}
	if !strings.HasPrefix(prop, "--") {
		decl.Property = strings.ToLower(prop)
		if i := strings.LastIndex(value, "!"); i >= 0 && strings.EqualFold(strings.TrimSpace(value[i+1:]), "important") {
			decl.Value = strings.TrimSpace(value[:i])
			decl.Important = true
		}
	}
	switch {
	case ctx.rule != nil:
		ctx.rule.Declarations = append(ctx.rule.Declarations, decl)
	case ctx.at != nil:
		ctx.at.Declarations = append(ctx.at.Declarations, decl)
	default:
		return e.errorf(ctx.file, pos, "declarations may only be used within style rules")
	}
	return nil
}

func (e *evaluator) rule(r *ruleStmt, ctx evalCtx) error {
	own, err := e.substitute(ctx, r.selector)
	if err != nil {
		return err
	}
	sels, err := resolveSelectors(ctx.selectors, splitSelectors(own))
	if err != nil {
		return e.errorf(ctx.file, r.pos, "%v", err)
	}
	rule := &stylesheet.Rule{Selectors: sels, Origin: origin(ctx.file, r.pos)}
	*ctx.out = append(*ctx.out, rule)

	inner := ctx
	inner.selectors = sels
	inner.rule = rule
	inner.at = nil
	inner.scope = newScope(ctx.scope)
	return e.stmts(r.body, inner)
}

// bubbling at-rules wrap the enclosing selector when nested in a rule.
var bubbling = map[string]bool{"media": true, "supports": true, "document": true}

func (e *evaluator) atRule(a *atStmt, ctx evalCtx) error {
	prelude, err := e.substitute(ctx, a.prelude)
	if err != nil {
		return err
	}
	node := &stylesheet.AtRule{Name: a.name, Prelude: prelude, Block: a.hasBlock, Origin: origin(ctx.file, a.pos)}
	*ctx.out = append(*ctx.out, node)
	if !a.hasBlock {
		return nil
	}

	inner := ctx
	inner.out = &node.Children
	inner.scope = newScope(ctx.scope)
	inner.at = nil
	inner.rule = nil
	switch {
	case bubbling[a.name] && ctx.selectors != nil:
		wrapped := &stylesheet.Rule{Selectors: ctx.selectors, Origin: node.Origin}
		node.Children = append(node.Children, wrapped)
		inner.rule = wrapped
	case bubbling[a.name]:
		inner.selectors = nil
	default:
		inner.selectors = nil
		inner.at = node
	}
	return e.stmts(a.body, inner)
}

func (e *evaluator) include(inc *includeStmt, ctx evalCtx) error {
	m, ok := ctx.scope.mixin(inc.name)
	if !ok {
		return e.errorf(ctx.file, inc.pos, "undefined mixin %s", inc.name)
	}
	if len(inc.args) > len(m.def.params) {
		return e.errorf(ctx.file, inc.pos, "mixin %s takes %d arguments but %d were passed", inc.name, len(m.def.params), len(inc.args))
	}

	// Arguments evaluate in the caller's scope; defaults and the body in
	// the mixin's.
	bound := newScope(m.scope)
	for i, prm := range m.def.params {
		if i < len(inc.args) {
			v, err := e.substitute(ctx, inc.args[i])
			if err != nil {
				return err
			}
			bound.vars[prm.name] = v
			continue
		}
		if prm.def == nil {
			return e.errorf(ctx.file, inc.pos, "missing argument $%s for mixin %s", prm.name, inc.name)
		}
		v, err := e.substitute(evalCtx{file: m.file, scope: bound}, prm.def)
		if err != nil {
			return err
		}
		bound.vars[prm.name] = v
	}

	inner := ctx
	inner.file = m.file
	inner.scope = bound
	return e.stmts(m.def.body, inner)
}

func (e *evaluator) importRule(imp *importStmt, ctx evalCtx) error {
	for _, target := range splitImports(imp.prelude) {
		if isPlainImport(target) {
			*ctx.out = append(*ctx.out, &stylesheet.AtRule{Name: "import", Prelude: joinTokens(target)})
			continue
		}
		name := strings.Trim(target[0].data, `"'`)
		resolved, err := e.resolve(ctx.file, name)
		if err != nil {
			return e.errorf(ctx.file, imp.pos, "%v", err)
		}
		for _, open := range e.imports {
			if open == resolved {
				return e.errorf(ctx.file, imp.pos, "import cycle through %s", resolved)
			}
		}
		src, err := util.ReadFile(e.c.FS, resolved)
		if err != nil {
			return e.errorf(ctx.file, imp.pos, "reading %s: %v", resolved, err)
		}
		stmts, err := parseFile(resolved, src)
		if err != nil {
			return err
		}
		e.imports = append(e.imports, resolved)
		inner := ctx
		inner.file = resolved
		err = e.stmts(stmts, inner)
		e.imports = e.imports[:len(e.imports)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

func splitImports(toks []token) [][]token {
	var out [][]token
	var cur []token
	depth := 0
	for _, t := range toks {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				out = append(out, trimSpace(cur))
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	if c := trimSpace(cur); len(c) > 0 {
		out = append(out, c)
	}
	return out
}

// isPlainImport reports whether an import target is left to the browser
// rather than inlined.
func isPlainImport(target []token) bool {
	if len(target) != 1 || target[0].tt != css.StringToken {
		return true
	}
	name := strings.Trim(target[0].data, `"'`)
	return strings.HasSuffix(name, ".css") ||
		strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") ||
		strings.HasPrefix(name, "//")
}

// resolve finds an import target relative to the importing file and the
// load paths, trying the partial and .scss spellings.
func (e *evaluator) resolve(from, name string) (string, error) {
	if e.c.FS == nil {
		return "", fmt.Errorf("cannot import %q: no filesystem", name)
	}
	dirs := append([]string{path.Dir(from)}, e.c.LoadPaths...)
	dir, base := path.Split(name)
	candidates := []string{base, base + ".scss", "_" + base, "_" + base + ".scss"}
	if strings.HasSuffix(base, ".scss") {
		candidates = []string{base, "_" + base}
	}
	for _, d := range dirs {
		for _, cand := range candidates {
			p := path.Clean(path.Join(d, dir, cand))
			info, err := e.c.FS.Stat(p)
			if err == nil && !info.IsDir() {
				return p, nil
			}
			if err != nil && !os.IsNotExist(err) {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("can't find stylesheet to import: %s", name)
}
