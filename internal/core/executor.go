package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"syscall"
)

// ExecutionResult contains the results of an external command.
type ExecutionResult struct {
	Stdout []byte
	Stderr []byte

	// ExitCode is the process exit code; 0 indicates success.
	ExitCode int
}

// Executor runs external collaborator commands (for example a stylesheet
// compiler) with content on stdin and the result on stdout.
//
// Only variables declared in Env are visible to the command.
type Executor struct {
	// WorkingDir is the directory the command runs in.
	WorkingDir string

	// Env is the complete environment of the command.
	Env map[string]string
}

// NewExecutor creates a new Executor with the given working directory.
func NewExecutor(workingDir string, env map[string]string) *Executor {
	return &Executor{WorkingDir: workingDir, Env: env}
}

// Execute runs command through "sh -c", feeding stdin.
//
// A non-zero exit code is reported through ExecutionResult, not as an
// error; an error means the command could not be run at all or ctx ended.
func (e *Executor) Execute(ctx context.Context, command string, stdin []byte) (*ExecutionResult, error) {
	if command == "" {
		return nil, fmt.Errorf("command is empty")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.WorkingDir
	cmd.Env = buildIsolatedEnv(e.Env)

	// Own process group so cancellation reaches the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &ExecutionResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// buildIsolatedEnv constructs the command environment from the declared
// variables only. Keys are sorted so the environment is reproducible.
func buildIsolatedEnv(env map[string]string) []string {
	if len(env) == 0 {
		return []string{}
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(env))
	for _, key := range keys {
		result = append(result, fmt.Sprintf("%s=%s", key, env[key]))
	}
	return result
}
