package pipeline

import (
	"context"

	"assetweaver/internal/jslint"
)

// Lint reports advisory findings for the files currently in the chain. It
// never fails and never changes the files.
type Lint struct{}

func (Lint) Name() string { return "lint" }

func (Lint) Apply(_ context.Context, run *Run, files []File) ([]File, error) {
	for _, f := range files {
		findings := jslint.Lint(f.Path, f.Content)
		for _, finding := range findings {
			run.Log.Warn().
				Str("file", finding.File).
				Int("line", finding.Line).
				Int("column", finding.Column).
				Str("rule", finding.Rule).
				Msg(finding.Message)
		}
		run.Findings = append(run.Findings, findings...)
	}
	return files, nil
}
