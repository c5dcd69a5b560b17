package pipeline

import (
	"context"
	"fmt"
	"path"

	"assetweaver/internal/core"
)

// Src reads a Source File Set. Every matched file is read exactly once per
// invocation.
type Src struct {
	Patterns []string
	Resolver *core.InputResolver
}

func (s *Src) Name() string { return "src" }

func (s *Src) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	set, err := s.Resolver.Resolve(s.Patterns)
	if err != nil {
		return nil, err
	}
	logMatched(run, s.Name(), s.Patterns, set)
	for _, in := range set.Inputs {
		run.addInput(in)
		files = append(files, File{Path: in.Path, Source: in.Path, Content: in.Content})
	}
	return files, nil
}

// logMatched reports what a Source File Set resolved to. A set matching
// nothing is not an error; the task then writes no output.
func logMatched(run *Run, stage string, patterns []string, set *core.InputSet) {
	if len(set.Inputs) == 0 {
		run.Log.Warn().Str("stage", stage).Strs("patterns", patterns).Msg("no files matched")
		return
	}
	run.Log.Debug().Str("stage", stage).Strs("files", set.Paths()).Msg("files matched")
}

// AddSrc reads a second Source File Set and places it before or after the
// files already in the chain.
type AddSrc struct {
	Patterns []string
	Resolver *core.InputResolver
	Prepend  bool
}

func (s *AddSrc) Name() string {
	if s.Prepend {
		return "addsrc.prepend"
	}
	return "addsrc.append"
}

func (s *AddSrc) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	set, err := s.Resolver.Resolve(s.Patterns)
	if err != nil {
		return nil, err
	}
	logMatched(run, s.Name(), s.Patterns, set)
	added := make([]File, 0, len(set.Inputs))
	for _, in := range set.Inputs {
		run.addInput(in)
		added = append(added, File{Path: in.Path, Source: in.Path, Content: in.Content})
	}
	if s.Prepend {
		return append(added, files...), nil
	}
	return append(files, added...), nil
}

// Dest writes every file into Dir under its base name and passes the files
// on unchanged.
type Dest struct {
	Dir    string
	Writer *core.Writer
}

func (d *Dest) Name() string { return "dest" }

func (d *Dest) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	for _, f := range files {
		target := path.Join(d.Dir, path.Base(f.Path))
		artifact, err := d.Writer.Write(target, f.Content)
		if err != nil {
			return nil, fileError(target, fmt.Errorf("write: %w", err))
		}
		run.Artifacts = append(run.Artifacts, artifact)
		run.Log.Debug().Str("path", artifact.Path).Int("bytes", artifact.Size).Msg("wrote")
	}
	return files, nil
}
