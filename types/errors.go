package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	// KindUnknown is any failure outside the pipeline taxonomy.
	KindUnknown ErrorKind = iota
	// KindUnknownBoard is raised before any stage runs.
	KindUnknownBoard
	// KindBuildFailed is a non-zero compiler or user build exit.
	KindBuildFailed
	// KindPackagingFailed is a failed raw image conversion.
	KindPackagingFailed
	// KindFsImageBuildFailed is a failed filesystem image build.
	KindFsImageBuildFailed
	// KindLaunchFailed means the emulator could not be started.
	KindLaunchFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownBoard:
		return "UnknownBoard"
	case KindBuildFailed:
		return "BuildFailed"
	case KindPackagingFailed:
		return "PackagingFailed"
	case KindFsImageBuildFailed:
		return "FsImageBuildFailed"
	case KindLaunchFailed:
		return "LaunchFailed"
	}
	return "Unknown"
}

// exit codes used when no external exit status is available
const (
	exitGeneric     = 1
	exitUsage       = 64
	exitUnavailable = 69
	exitSoftware    = 70
)

func (k ErrorKind) driverExitCode() int {
	switch k {
	case KindUnknownBoard:
		return exitUsage
	case KindLaunchFailed:
		return exitUnavailable
	case KindBuildFailed, KindPackagingFailed, KindFsImageBuildFailed:
		return exitSoftware
	}
	return exitGeneric
}

// Error is a classified pipeline failure. ExitCode is the external tool's
// exit status, or zero when the tool never produced one.
type Error struct {
	Kind     ErrorKind
	Msg      string
	ExitCode int
	Output   []byte
	Cause    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.ExitCode != 0 {
		sb.WriteString(fmt.Sprintf(" (exit status %d)", e.ExitCode))
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the Err* sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Cause == nil
}

// Sentinels for errors.Is.
var (
	ErrUnknownBoard       = &Error{Kind: KindUnknownBoard}
	ErrBuildFailed        = &Error{Kind: KindBuildFailed}
	ErrPackagingFailed    = &Error{Kind: KindPackagingFailed}
	ErrFsImageBuildFailed = &Error{Kind: KindFsImageBuildFailed}
	ErrLaunchFailed       = &Error{Kind: KindLaunchFailed}
)

// NewError builds a classified error.
func NewError(kind ErrorKind, cause error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status: zero for nil, the external
// tool's status when one was captured, a per-kind driver code otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return exitGeneric
	}
	if e.ExitCode > 0 {
		return e.ExitCode
	}
	return e.Kind.driverExitCode()
}
