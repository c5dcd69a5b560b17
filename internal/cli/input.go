package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// DefaultTask runs when no task is named.
const DefaultTask = "default"

type TraceConfig struct {
	Enabled bool
	Path    string
}

// CLIInvocation is the canonical description of one command line.
//
// All paths are cleaned, and relative paths are resolved against WorkDir,
// which must be absolute.
type CLIInvocation struct {
	WorkDir string

	// ConfigPath is empty when the default configuration file applies.
	ConfigPath string

	// Tasks are the requested task names, in command-line order.
	Tasks []string

	Trace TraceConfig
	List  bool

	OriginalConfig string
	OriginalTrace  string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses flags and task names into a CLIInvocation.
//
// It reads neither the environment nor the process working directory.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("assetweaver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var workDir string
	var configPath string
	var tracePath string
	var list bool

	fs.StringVar(&workDir, "workdir", "", "Absolute project directory. Required.")
	fs.StringVar(&configPath, "config", "", "Configuration file (default <workdir>/assetweaver.toml when present).")
	fs.StringVar(&tracePath, "trace", "", "Write a canonical JSON execution trace to this path.")
	fs.BoolVar(&list, "list", false, "List declared tasks and exit.")

	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}

	if workDir == "" {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	workDir = filepath.Clean(workDir)
	if !filepath.IsAbs(workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	tasks := fs.Args()
	for _, name := range tasks {
		if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "-") {
			return CLIInvocation{}, invalidInvocationf("invalid task name %q", name)
		}
	}
	if len(tasks) == 0 {
		tasks = []string{DefaultTask}
	}

	inv := CLIInvocation{
		WorkDir:        workDir,
		Tasks:          tasks,
		List:           list,
		OriginalConfig: configPath,
		OriginalTrace:  tracePath,
	}

	if strings.TrimSpace(configPath) != "" {
		resolved, err := resolveUnderWorkDir(workDir, configPath)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.ConfigPath = resolved
	}
	if strings.TrimSpace(tracePath) != "" {
		resolved, err := resolveUnderWorkDir(workDir, tracePath)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.Trace = TraceConfig{Enabled: true, Path: resolved}
	}

	return inv, nil
}

// WithWorkDir prepends --workdir dir to args unless a workdir flag is
// already present.
func WithWorkDir(args []string, dir string) []string {
	for _, a := range args {
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name != a && (name == "workdir" || strings.HasPrefix(name, "workdir=")) {
			return args
		}
	}
	return append([]string{"--workdir", dir}, args...)
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCode extracts the exit code from a ParseInvocation error. Unknown
// errors map to ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
