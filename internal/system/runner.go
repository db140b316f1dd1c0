package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external commands. Implementations must honor ctx
// cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the exit status and stderr of a failed command.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands on the host, optionally through sudo.
type ExecRunner struct {
	sudo bool
}

func NewExecRunner(sudo bool) *ExecRunner {
	return &ExecRunner{sudo: sudo}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.sudo {
		args = append([]string{"-n", name}, args...)
		name = "sudo"
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Command:  strings.TrimSpace(name + " " + strings.Join(args, " ")),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			cmdErr.Err = ctxErr
		}
		return stdout.Bytes(), cmdErr
	}
	return stdout.Bytes(), nil
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}
