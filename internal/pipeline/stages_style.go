package pipeline

import (
	"context"
	"fmt"
	"strings"

	"assetweaver/internal/core"
	"assetweaver/internal/css"
)

// Compile turns stylesheet sources into CSS. Partials produce no output
// of their own; plain .css sources are parsed and reprinted.
type Compile struct {
	Compiler StyleCompiler
	Style    css.Style

	// Track keeps the compiled tree and the origin of each output line on
	// the file, when the compiler can provide them.
	Track bool
}

func (c *Compile) Name() string { return "compile" }

func (c *Compile) Apply(ctx context.Context, run *Run, files []File) ([]File, error) {
	out := make([]File, 0, len(files))
	for _, f := range files {
		var (
			content []byte
			err     error
		)
		switch strings.ToLower(f.Ext()) {
		case ".scss":
			if isPartial(f.Path) {
				continue
			}
			if tc, ok := c.Compiler.(TreeCompiler); ok && c.Track {
				var sheet *css.Stylesheet
				if sheet, err = tc.CompileTree(ctx, f.Path, f.Content); err == nil {
					f.Sheet = sheet
					content, f.Lines = css.PrintMapped(sheet, c.Style)
				}
				break
			}
			content, err = c.Compiler.CompileStyle(ctx, f.Path, f.Content, c.Style)
		case ".css":
			var sheet *css.Stylesheet
			if sheet, err = css.Parse(f.Content); err == nil {
				content = css.Print(sheet, c.Style)
			}
		default:
			err = fmt.Errorf("unsupported stylesheet type %q", f.Ext())
		}
		if err != nil {
			return nil, fileError(f.Path, err)
		}
		f.Path = withExt(f.Path, ".css")
		f.Content = content
		out = append(out, f)
	}
	return out, nil
}

// Prefix applies flexbox fixes and vendor prefixes per file. Files that
// carry their compiled tree are prefixed on it so line origins survive;
// other results are memoised by content so unchanged files are not
// reprocessed.
type Prefix struct {
	Prefixer *css.Prefixer
	Style    css.Style
	Cache    *core.StageCache

	// Params identifies the prefixer configuration in cache keys.
	Params []string
}

func (p *Prefix) Name() string { return "prefix" }

func (p *Prefix) Apply(_ context.Context, _ *Run, files []File) ([]File, error) {
	params := append([]string{p.Style.String()}, p.Params...)
	for i, f := range files {
		if f.Sheet != nil {
			p.Prefixer.Process(f.Sheet)
			files[i].Content, files[i].Lines = css.PrintMapped(f.Sheet, p.Style)
			continue
		}
		key := core.HashContent(p.Name(), params, f.Content)
		if cached, ok := p.Cache.Get(key); ok {
			files[i].Content = cached
			files[i].Lines = nil
			continue
		}
		sheet, err := css.Parse(f.Content)
		if err != nil {
			return nil, fileError(f.Path, err)
		}
		p.Prefixer.Process(sheet)
		content := css.Print(sheet, p.Style)
		p.Cache.Put(key, content)
		files[i].Content = content
		files[i].Lines = nil
	}
	return files, nil
}

// Flip produces the right-to-left variant of each stylesheet. Files that
// are not stylesheets, such as source maps, are dropped.
type Flip struct {
	Style css.Style
}

func (f *Flip) Name() string { return "rtl" }

func (f *Flip) Apply(_ context.Context, _ *Run, files []File) ([]File, error) {
	out := make([]File, 0, len(files))
	for _, file := range files {
		if !strings.EqualFold(file.Ext(), ".css") {
			continue
		}
		sheet, err := css.Parse(file.Content)
		if err != nil {
			return nil, fileError(file.Path, err)
		}
		sheet.Nodes = dropSourceMapComments(sheet.Nodes)
		css.Flip(sheet)
		file.Content = css.Print(sheet, f.Style)
		file.Segments = nil
		file.Sheet, file.Lines = nil, nil
		out = append(out, file)
	}
	return out, nil
}

func dropSourceMapComments(nodes []css.Node) []css.Node {
	kept := nodes[:0]
	for _, n := range nodes {
		if c, ok := n.(*css.Comment); ok && strings.HasPrefix(c.Text, "/*# sourceMappingURL=") {
			continue
		}
		kept = append(kept, n)
	}
	return kept
}
