package qemu

import (
	"errors"
)

type errCustom struct {
	Msg   string
	Cause error
}

func (e *errCustom) Error() string {
	if e.Cause == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Cause.Error()
}

func (e *errCustom) Unwrap() error {
	return e.Cause
}

type errEmulatorNotInstalled struct{ errCustom }
type errFirmwareMissing struct{ errCustom }
type errKernelMissing struct{ errCustom }
type errEmulatorCannotExecute struct{ errCustom }

// Hint returns advice for a launch failure, or "" when there is none.
func Hint(err error) string {
	var (
		targetErrEmulatorNotInstalled  *errEmulatorNotInstalled
		targetErrFirmwareMissing       *errFirmwareMissing
		targetErrKernelMissing         *errKernelMissing
		targetErrEmulatorCannotExecute *errEmulatorCannotExecute
	)
	if errors.As(err, &targetErrEmulatorNotInstalled) {
		return "Cannot find QEMU (looks like it is not installed)\n" +
			"Please install the RISC-V system emulator (qemu-system-misc) and re-run current command"
	}
	if errors.As(err, &targetErrFirmwareMissing) {
		return "The SBI firmware could not be read\n" +
			"Build it or point --firmware at a prebuilt rustsbi-qemu.bin"
	}
	if errors.As(err, &targetErrKernelMissing) {
		return "The kernel image has not been built, run `kforge build` first"
	}
	if errors.As(err, &targetErrEmulatorCannotExecute) {
		return "QEMU installed, but cannot be executed\n" +
			"Please check current user rights"
	}
	return ""
}
