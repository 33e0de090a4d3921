package runner

import (
	"context"
	"os/exec"
	"strings"

	"zangarmarsh/internal/logger"
)

// PathFinder resolves command names on the execution search path.
type PathFinder interface {
	LookPath(name string) (string, error)
}

// Runner executes external commands one at a time.
// Run blocks until the command exits and returns its combined output.
type Runner interface {
	PathFinder
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Exec runs commands on the host through os/exec.
type Exec struct{}

// New returns a Runner backed by os/exec.
func New() *Exec {
	return &Exec{}
}

// LookPath reports where name resolves on PATH.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes name with args and captures stdout and stderr together.
// Cancellation of ctx kills the process; no other timeout is applied.
func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		logger.Debug("[DEBUG] Output of %s:\n%s\n", name, output)
	}
	return output, err
}
