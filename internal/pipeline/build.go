package pipeline

import (
	"fmt"

	"assetweaver/internal/compress"
	"assetweaver/internal/core"
	"assetweaver/internal/css"
)

// StyleOutputs locates the files a stylesheet task writes.
type StyleOutputs struct {
	Dir  string
	Name string

	RTLDir  string
	RTLName string

	// DevRTL also emits the right-to-left stylesheet in development.
	DevRTL bool
}

// ScriptOutputs locates the bundle a script task writes.
type ScriptOutputs struct {
	Dir            string
	Name           string
	MinifiedSuffix string

	// VendorFirst places vendor scripts before first-party scripts.
	VendorFirst bool
}

// Builder assembles the fixed stage chain of a task from shared
// collaborators. It is read-only after construction.
type Builder struct {
	Resolver *core.InputResolver
	Writer   *core.Writer
	Compiler StyleCompiler
	Prefixer *css.Prefixer
	Minifier *compress.Minifier
	Cache    *core.StageCache

	// PrefixParams identifies the browser matrix in cache keys.
	PrefixParams []string

	Styles  StyleOutputs
	Scripts ScriptOutputs
}

// Build returns the chain for t. Aggregate tasks have no chain.
func (b *Builder) Build(t core.Task) (*Chain, error) {
	switch t.Kind {
	case core.KindStyles:
		return b.styles(t), nil
	case core.KindScripts:
		return b.scripts(t), nil
	case core.KindGroup, core.KindWatch:
		return nil, nil
	default:
		return nil, fmt.Errorf("task %q: unknown kind %q", t.Name, t.Kind)
	}
}

func (b *Builder) styles(t core.Task) *Chain {
	dev := t.EffectiveVariant() == core.VariantDevelopment
	style := css.Compressed
	if dev {
		style = css.Expanded
	}

	stages := []Stage{
		&Src{Patterns: t.Inputs, Resolver: b.Resolver},
		&Compile{Compiler: b.Compiler, Style: style, Track: dev},
		&Prefix{Prefixer: b.Prefixer, Style: style, Cache: b.Cache, Params: b.PrefixParams},
		&Concat{Output: b.Styles.Name},
	}
	if dev {
		stages = append(stages, &SourceMap{Dir: b.Styles.Dir})
	} else {
		stages = append(stages, &Minify{Kind: MinifyCSS, Minifier: b.Minifier, Cache: b.Cache})
	}
	stages = append(stages, &Dest{Dir: b.Styles.Dir, Writer: b.Writer})
	if !dev || b.Styles.DevRTL {
		stages = append(stages,
			&Flip{Style: style},
			&Rename{Basename: b.Styles.RTLName},
			&Dest{Dir: b.Styles.RTLDir, Writer: b.Writer},
		)
	}
	return &Chain{Task: t.Name, Stages: stages}
}

func (b *Builder) scripts(t core.Task) *Chain {
	stages := []Stage{
		&Src{Patterns: t.Inputs, Resolver: b.Resolver},
		Lint{},
	}
	if len(t.Vendor) > 0 {
		stages = append(stages, &AddSrc{Patterns: t.Vendor, Resolver: b.Resolver, Prepend: b.Scripts.VendorFirst})
	}
	stages = append(stages,
		&Concat{Output: b.Scripts.Name},
		&Rename{Suffix: b.Scripts.MinifiedSuffix},
	)
	if t.EffectiveVariant() != core.VariantDevelopment {
		stages = append(stages, &Minify{Kind: MinifyJS, Minifier: b.Minifier, Cache: b.Cache})
	}
	stages = append(stages, &Dest{Dir: b.Scripts.Dir, Writer: b.Writer})
	return &Chain{Task: t.Name, Stages: stages}
}
