package provision

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes external tools for the workflow.
type Runner interface {
	LookPath(name string) (string, error)
	// Run executes name in dir with env appended to the process environment and
	// returns the combined output.
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}
