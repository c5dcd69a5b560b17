package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	icl "assetweaver/internal/cli"
)

const config = `style_sources = ["src/sass/**/*.scss"]

[option_sets.default]
version = "1.0.0"
vendor_order = "vendor-first"
vendor_scripts = ["vendor/v.js"]
`

func writeProject(t *testing.T, root string) {
	t.Helper()
	for rel, content := range map[string]string{
		"assetweaver.toml":  config,
		"src/sass/a.scss":   "$w: 2px;\n.a { border-left: $w solid red; }\n",
		"src/sass/_p.scss":  ".p { color: blue; }\n",
		"src/js/app.js":     "function hello() { return 1; }\n",
		"vendor/v.js":       "var vendor = 1;\n",
		"src/sass/b/b.scss": "@import \"../p\";\n.b { display: flex; }\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func TestDeterministicInvocation_IdenticalRunsIdenticalArtifacts(t *testing.T) {
	workDir := t.TempDir()
	writeProject(t, workDir)
	args := []string{"--workdir", workDir, "--trace", "trace.json", "default", "sass-dev", "js-dev"}

	outputs := []string{"assets/css/style.css", "rtl.css", "assets/js/app.min.js", "trace.json"}
	snapshot := func() map[string]string {
		res, err := icl.Run(context.Background(), args)
		if err != nil {
			t.Fatalf("run err: %v", err)
		}
		if res.ExitCode != icl.ExitSuccess {
			t.Fatalf("run exit: %d", res.ExitCode)
		}
		out := map[string]string{}
		for _, rel := range outputs {
			out[rel] = string(readFile(t, filepath.Join(workDir, rel)))
		}
		return out
	}

	first, second := snapshot(), snapshot()
	for _, rel := range outputs {
		if first[rel] != second[rel] {
			t.Fatalf("%s differs across identical runs", rel)
		}
	}
}

func TestPathResolution_RelativePathsResolveAgainstWorkDir(t *testing.T) {
	workDir := t.TempDir()
	otherCwd := t.TempDir()
	writeProject(t, workDir)

	oldCwd, _ := os.Getwd()
	_ = os.Chdir(otherCwd)
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	res, err := icl.Run(context.Background(), []string{
		"--workdir", workDir,
		"--config", "assetweaver.toml",
		"--trace", "traces/t.json",
		"js",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("exit: %d", res.ExitCode)
	}
	for _, rel := range []string{"assets/js/app.min.js", "traces/t.json"} {
		if _, err := os.Stat(filepath.Join(workDir, rel)); err != nil {
			t.Fatalf("expected %s under workdir: %v", rel, err)
		}
		if _, err := os.Stat(filepath.Join(otherCwd, rel)); err == nil {
			t.Fatalf("%s must not be written relative to the process cwd", rel)
		}
	}
}

func TestExitCodeStability_FailingTaskIsStable(t *testing.T) {
	workDir := t.TempDir()
	writeProject(t, workDir)
	if err := os.WriteFile(filepath.Join(workDir, "src/sass/a.scss"), []byte(".a { color: $nope; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	args := []string{"--workdir", workDir, "sass"}
	res1, _ := icl.Run(context.Background(), args)
	res2, _ := icl.Run(context.Background(), args)
	if res1.ExitCode != icl.ExitTaskFailure || res2.ExitCode != icl.ExitTaskFailure {
		t.Fatalf("expected stable task failure exit code; got %d and %d", res1.ExitCode, res2.ExitCode)
	}
	if res1.RunID == res2.RunID {
		t.Fatalf("each invocation needs its own run id")
	}
}

func TestMissingConfigFileIsConfigError(t *testing.T) {
	workDir := t.TempDir()
	writeProject(t, workDir)

	res, err := icl.Run(context.Background(), []string{"--workdir", workDir, "--config", "nope.toml"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.ExitCode != icl.ExitConfigError {
		t.Fatalf("expected exit %d, got %d", icl.ExitConfigError, res.ExitCode)
	}
}

func TestInvalidInvocation_DeterministicAndExplainable(t *testing.T) {
	args := []string{"--workdir", "relative/dir", "sass"}
	res1, err1 := icl.Run(context.Background(), args)
	res2, err2 := icl.Run(context.Background(), args)

	if res1.ExitCode != icl.ExitInvalidInvocation || res2.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("expected exit 2, got %d and %d", res1.ExitCode, res2.ExitCode)
	}
	if err1 == nil || err2 == nil {
		t.Fatalf("expected errors")
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("expected identical messages, got %q and %q", err1, err2)
	}
}
