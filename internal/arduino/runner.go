package arduino

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes external programs. ExecRunner is the real implementation;
// tests substitute a fake.
type Runner interface {
	// LookPath resolves a program name to an executable path.
	LookPath(file string) (string, error)
	// Output runs a program to completion and returns its stdout.
	Output(ctx context.Context, path string, args ...string) ([]byte, error)
	// Run runs a program to completion, streaming its output.
	Run(ctx context.Context, path string, args ...string) error
	// Start launches a program without waiting for it.
	Start(path string, args ...string) error
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner streaming to the process's stdout and stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r *ExecRunner) Output(ctx context.Context, path string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, exitError(path, err, stderr.String())
	}
	return out, nil
}

func (r *ExecRunner) Run(ctx context.Context, path string, args ...string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		return exitError(path, err, "")
	}
	return nil
}

func (r *ExecRunner) Start(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	// Reap the child in the background; the IDE outlives this process.
	go cmd.Wait()
	return nil
}

func exitError(path string, err error, stderr string) error {
	if ee, ok := err.(*exec.ExitError); ok {
		return &ExitError{Tool: path, Code: ee.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("failed to run %s: %w", path, err)
}
