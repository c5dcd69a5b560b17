package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"assetweaver/internal/core"
	"assetweaver/internal/css"
	"assetweaver/internal/scss"
)

// StyleCompiler turns one stylesheet source into CSS text in the requested
// output style.
type StyleCompiler interface {
	CompileStyle(ctx context.Context, file string, src []byte, style css.Style) ([]byte, error)
}

// BuiltinCompiler compiles with the in-process SCSS compiler.
type BuiltinCompiler struct {
	Compiler *scss.Compiler
}

// TreeCompiler is a StyleCompiler that can also hand back the compiled
// tree, with the origin of every node.
type TreeCompiler interface {
	StyleCompiler
	CompileTree(ctx context.Context, file string, src []byte) (*css.Stylesheet, error)
}

func (b *BuiltinCompiler) CompileStyle(ctx context.Context, file string, src []byte, style css.Style) ([]byte, error) {
	sheet, err := b.CompileTree(ctx, file, src)
	if err != nil {
		return nil, err
	}
	return css.Print(sheet, style), nil
}

func (b *BuiltinCompiler) CompileTree(_ context.Context, file string, src []byte) (*css.Stylesheet, error) {
	return b.Compiler.Compile(file, src)
}

// CommandCompiler pipes each source through an external command, for
// example "sass --stdin --load-path=src/sass". The command reads the source
// on stdin and writes CSS to stdout. ASSETWEAVER_SOURCE holds the source
// path and ASSETWEAVER_STYLE the requested output style.
type CommandCompiler struct {
	Command  string
	Executor *core.Executor
}

func (c *CommandCompiler) CompileStyle(ctx context.Context, file string, src []byte, style css.Style) ([]byte, error) {
	exec := core.NewExecutor(c.Executor.WorkingDir, make(map[string]string, len(c.Executor.Env)+2))
	for k, v := range c.Executor.Env {
		exec.Env[k] = v
	}
	exec.Env["ASSETWEAVER_SOURCE"] = file
	exec.Env["ASSETWEAVER_STYLE"] = style.String()

	res, err := exec.Execute(ctx, c.Command, src)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "no diagnostics"
		}
		return nil, fmt.Errorf("compiler exited with code %d: %s", res.ExitCode, msg)
	}
	return bytes.TrimPrefix(res.Stdout, []byte("\ufeff")), nil
}
