package qemu

import (
	"context"
	"errors"
	"os"
	"regexp"

	"golang.org/x/sys/unix"

	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

// Emulator runs a composed launch.
type Emulator struct {
	runner tools.Runner
	log    *log.Logger
}

// New returns an Emulator running qemu through runner.
func New(runner tools.Runner) *Emulator {
	return &Emulator{runner: runner, log: log.Stage("run")}
}

// Check verifies that the launch can be started: the emulator is installed
// and the firmware and kernel image are readable.
func Check(l Launch) error {
	if err := tools.LookPath(l.Emulator); err != nil {
		return types.NewError(types.KindLaunchFailed, &errEmulatorNotInstalled{errCustom{l.Emulator + " not found", err}}, "checking emulator")
	}
	if err := readable(l.Firmware); err != nil {
		return types.NewError(types.KindLaunchFailed, &errFirmwareMissing{errCustom{"firmware " + l.Firmware, err}}, "checking firmware")
	}
	if err := readable(l.Kernel); err != nil {
		return types.NewError(types.KindLaunchFailed, &errKernelMissing{errCustom{"kernel image " + l.Kernel, err}}, "checking kernel image")
	}
	if a, ok := l.Storage(); ok {
		if err := readable(a.Backing); err != nil {
			return types.NewError(types.KindLaunchFailed, err, "checking filesystem image")
		}
	}
	return nil
}

func readable(path string) error {
	if path == "" {
		return os.ErrNotExist
	}
	return unix.Access(path, unix.R_OK)
}

// Start runs the emulator attached to the terminal and returns its exit
// status. A failure to start is LaunchFailed.
func (e *Emulator) Start(ctx context.Context, l Launch) (int, error) {
	if v, err := Version(ctx, e.runner, l.Emulator); err == nil {
		e.log.Debugf("%s version %s", l.Emulator, v)
	}

	e.log.Info(l.String())
	if l.GdbServer {
		e.log.Warnf("waiting for gdb on port %d, run `kforge gdbclient`", l.GdbPort)
	}

	res, err := e.runner.Run(ctx, tools.Command{
		Name:        l.Emulator,
		Args:        l.Args(),
		Interactive: true,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return res.ExitCode, err
		}
		return 0, types.NewError(types.KindLaunchFailed, &errEmulatorCannotExecute{errCustom{"cannot execute " + l.Emulator, err}}, "starting emulator")
	}
	return res.ExitCode, nil
}

// Version gives the version of the given qemu binary.
func Version(ctx context.Context, runner tools.Runner, emulator string) (string, error) {
	res, err := runner.Run(ctx, tools.Command{Name: emulator, Args: []string{"--version"}})
	if err != nil {
		return "", &errEmulatorCannotExecute{errCustom{"cannot execute " + emulator, err}}
	}
	if !res.Success() {
		return "", &errEmulatorCannotExecute{errCustom{"cannot get version of " + emulator, nil}}
	}
	return parseQemuVersion(res.Output), nil
}

var versionRgx = regexp.MustCompile(`[0-9]+\.[0-9]+\.[0-9]+`)

func parseQemuVersion(data []byte) string {
	return versionRgx.FindString(string(data))
}
