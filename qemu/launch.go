// Package qemu composes and runs the emulator invocation for a board.
package qemu

import (
	"fmt"
	"strings"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/types"
)

// Artifacts are the build outputs a launch references.
type Artifacts struct {
	// KernelBin is the raw kernel image.
	KernelBin string

	// FsImage is the filesystem image, empty when none was built.
	FsImage string
}

// Attachment is one device of a launch with its backing resource resolved.
type Attachment struct {
	Kind     board.DeviceKind
	Slot     int
	Driver   string
	Backing  string
	Forwards []board.Forward
}

// Launch is a fully resolved emulator invocation. It is recomputed for every
// run and never persisted.
type Launch struct {
	Emulator    string
	Machine     string
	Firmware    string
	Kernel      string
	LoadAddress uint64
	Display     bool
	Serial      string
	Devices     []Attachment
	GdbServer   bool
	GdbPort     int
}

// Compose builds the launch for profile. Devices follow the profile's slot
// order; the storage device is dropped when no filesystem image exists.
// Display only toggles the presentation flag.
func Compose(profile board.Profile, artifacts Artifacts, cfg types.BuildConfig) (Launch, error) {
	if artifacts.KernelBin == "" {
		return Launch{}, types.NewError(types.KindLaunchFailed, &errKernelMissing{errCustom{"kernel image path not set", nil}}, "composing launch")
	}

	l := Launch{
		Emulator:    profile.Emulator,
		Machine:     profile.Machine,
		Firmware:    cfg.Firmware,
		Kernel:      artifacts.KernelBin,
		LoadAddress: profile.EntryAddress,
		Display:     cfg.Display,
		Serial:      "stdio",
		GdbServer:   cfg.GdbServer,
		GdbPort:     cfg.GdbPort,
	}

	for _, d := range profile.Devices {
		a := Attachment{Kind: d.Kind, Slot: d.Slot, Driver: d.Driver}
		switch d.Kind {
		case board.Storage:
			if artifacts.FsImage == "" {
				continue
			}
			a.Backing = artifacts.FsImage
		case board.Network:
			a.Forwards = append([]board.Forward(nil), d.Forwards...)
		}
		l.Devices = append(l.Devices, a)
	}

	return l, nil
}

// Storage returns the storage attachment, if any.
func (l Launch) Storage() (Attachment, bool) {
	for _, a := range l.Devices {
		if a.Kind == board.Storage {
			return a, true
		}
	}
	return Attachment{}, false
}

// Args renders the emulator arguments. Every option is split into its flag
// and value only, so paths may contain spaces.
func (l Launch) Args() []string {
	opts := []string{
		"-machine " + l.Machine,
		"-bios " + l.Firmware,
		serial{serialtype: l.Serial}.String(),
	}
	if !l.Display {
		opts = append(opts, display{disptype: "none"}.String())
	}
	opts = append(opts, loader{file: l.Kernel, addr: l.LoadAddress}.String())

	for _, a := range l.Devices {
		opts = append(opts, a.render()...)
	}

	if l.GdbServer {
		if l.GdbPort == 0 || l.GdbPort == types.DefaultGdbPort {
			opts = append(opts, "-s")
		} else {
			opts = append(opts, fmt.Sprintf("-gdb tcp::%d", l.GdbPort))
		}
		opts = append(opts, "-S")
	}

	var args []string
	for _, o := range opts {
		flag, value, ok := strings.Cut(o, " ")
		args = append(args, flag)
		if ok {
			args = append(args, value)
		}
	}
	return args
}

func (a Attachment) render() []string {
	switch a.Kind {
	case board.Storage:
		id := fmt.Sprintf("x%d", a.Slot)
		return []string{
			drive{path: a.Backing, iftype: "none", format: "raw", ID: id}.String(),
			device{driver: a.Driver, slot: a.Slot, props: []string{"drive=" + id}}.String(),
		}
	case board.Network:
		id := fmt.Sprintf("net%d", a.Slot)
		nd := netdev{nettype: "user", id: id}
		for _, f := range a.Forwards {
			nd.hports = append(nd.hports, portfwd{proto: f.Proto, hostPort: f.HostPort, guestPort: f.GuestPort})
		}
		return []string{
			device{driver: a.Driver, slot: a.Slot, props: []string{"netdev=" + id}}.String(),
			nd.String(),
		}
	}
	return []string{device{driver: a.Driver, slot: a.Slot}.String()}
}

// String renders the whole command line.
func (l Launch) String() string {
	return l.Emulator + " " + strings.Join(l.Args(), " ")
}
