//go:generate mockgen -source=$GOFILE -destination=mocks/mock_runner.go -package=mocks

package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/sys/unix"

	"github.com/nanovms/kforge/log"
)

// waitDelay bounds how long a cancelled child may take to exit after SIGTERM
// before it is killed.
const waitDelay = 5 * time.Second

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current one.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	// Stdout receives a copy of the combined output while it is captured.
	Stdout io.Writer

	// Interactive attaches the process to the terminal. Nothing is captured.
	Interactive bool
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Output   []byte
}

// Success reports a zero exit status.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external processes. A non-nil error means the process could
// not be started or was interrupted; a process that ran and failed is
// reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd and blocks until it exits.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	log.Debug("exec: " + cmd.String())

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Cancel = func() error {
		return c.Process.Signal(unix.SIGTERM)
	}
	c.WaitDelay = waitDelay

	var out bytes.Buffer
	if cmd.Interactive {
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	} else {
		var w io.Writer = &out
		if cmd.Stdout != nil {
			w = io.MultiWriter(&out, cmd.Stdout)
		}
		c.Stdout = w
		c.Stderr = w
	}

	if err := c.Start(); err != nil {
		return Result{}, goerrors.Wrap(err, 0)
	}

	err := c.Wait()
	res := Result{Output: out.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, nil
	}
	return res, goerrors.Wrap(err, 0)
}

// LookPath reports whether name can be executed.
func LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}

// Tail returns at most n trailing lines of output, for error reports.
func Tail(output []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
