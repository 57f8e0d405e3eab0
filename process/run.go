package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ErrExit marks a process that ran and exited with a non-zero status. Such a
// failure usually belongs to the input, not to the binary.
var ErrExit = errors.New("non-zero exit")

// IsToolFailure reports whether err means the binary itself could not be run,
// as opposed to a non-zero exit or a cancelled or timed-out context.
func IsToolFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrExit) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Executor runs commands. Run and *Runner satisfy it; tests substitute fakes.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f ExecutorFunc) Run(ctx context.Context, cmd Command) (*Result, error) { return f(ctx, cmd) }

// Direct is an Executor without any resilience wrapping.
var Direct Executor = ExecutorFunc(Run)

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent to the process group first,
// then SIGKILL after GracePeriod.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running caller-built commands is the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err := c.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("process: %s killed by context: %w", cmd.Binary, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
		}
		if tail := result.StderrTail(3); tail != "" {
			return result, fmt.Errorf("process: %s exit code %d: %w: %w: %s", cmd.Binary, result.ExitCode, ErrExit, err, tail)
		}
		return result, fmt.Errorf("process: %s exit code %d: %w: %w", cmd.Binary, result.ExitCode, ErrExit, err)
	}
	return result, nil
}

// LookPath reports whether binary can be resolved on PATH.
func LookPath(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}
