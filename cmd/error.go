package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	goerrors "github.com/go-errors/errors"

	"github.com/nanovms/kforge/constants"
	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/qemu"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

// exitInterrupted is the shell convention for a process stopped by SIGINT.
const exitInterrupted = 130

// outputTail is how many lines of a failed tool's output are reported.
const outputTail = 20

// ExitStatus carries the non-zero status of the emulator or the debugger,
// which becomes the status of kforge itself.
type ExitStatus struct {
	Code int
}

func (e *ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	var status *ExitStatus
	switch {
	case err == nil:
		return 0
	case errors.As(err, &status):
		return status.Code
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	}
	return types.ExitCode(err)
}

// PrintError reports err with the failing tool's last lines of output and a
// hint when one is known.
func PrintError(w io.Writer, err error) {
	var status *ExitStatus
	if errors.As(err, &status) {
		return
	}

	fmt.Fprintln(w, fmt.Sprintf(constants.ErrorColor, err.Error()))

	var e *types.Error
	if errors.As(err, &e) && len(e.Output) > 0 {
		fmt.Fprintln(w, tools.Tail(e.Output, outputTail))
	}

	if hint := qemu.Hint(err); hint != "" {
		fmt.Fprintln(w, fmt.Sprintf(constants.WarningColor, hint))
	}

	var stack *goerrors.Error
	if log.Default().DebugEnabled() && errors.As(err, &stack) {
		fmt.Fprintln(w, stack.ErrorStack())
	}
}

func exitStatus(code int, err error) error {
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitStatus{Code: code}
	}
	return nil
}
