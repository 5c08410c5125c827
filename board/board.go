// Package board holds the board profiles: the kernel load address, the
// layout script and the emulated device topology the kernel drivers expect.
package board

import (
	"fmt"
	"sort"
	"strings"
)

// DeviceKind names a class of virtual device.
type DeviceKind string

// Known device kinds.
const (
	Storage  DeviceKind = "storage"
	Display  DeviceKind = "display"
	Keyboard DeviceKind = "keyboard"
	Mouse    DeviceKind = "mouse"
	Tablet   DeviceKind = "tablet"
	Network  DeviceKind = "network"
	Rng      DeviceKind = "rng"
	Console  DeviceKind = "console"
)

var knownKinds = map[DeviceKind]bool{
	Storage: true, Display: true, Keyboard: true, Mouse: true,
	Tablet: true, Network: true, Rng: true, Console: true,
}

// Host port forwards of the default board's network device. The kernel's
// network stack listens on the guest ports.
const (
	UDPHostPort  = 6200
	UDPGuestPort = 2000
	TCPHostPort  = 6201
	TCPGuestPort = 80
)

// Forward maps a host port to a guest port.
type Forward struct {
	Proto     string `yaml:"proto"`
	HostPort  int    `yaml:"host"`
	GuestPort int    `yaml:"guest"`
}

// Device is one virtual device on the board's virtio-mmio bus. Slot is the
// transport index the kernel drivers probe.
type Device struct {
	Kind     DeviceKind `yaml:"kind"`
	Slot     int        `yaml:"slot"`
	Driver   string     `yaml:"driver"`
	Forwards []Forward  `yaml:"forwards,omitempty"`
}

// Profile is the fixed parameter set of one board.
type Profile struct {
	Name         string   `yaml:"name"`
	EntryAddress uint64   `yaml:"entry"`
	LayoutScript string   `yaml:"layout"`
	Machine      string   `yaml:"machine"`
	Emulator     string   `yaml:"emulator"`
	Devices      []Device `yaml:"devices"`
}

// Validate checks the profile and sorts its devices by slot. Slots must be
// unique and contiguous from zero.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("board without name")
	}
	if p.EntryAddress == 0 {
		return fmt.Errorf("board %s: entry address not set", p.Name)
	}
	if p.LayoutScript == "" {
		return fmt.Errorf("board %s: layout script not set", p.Name)
	}
	if p.Machine == "" {
		p.Machine = "virt"
	}
	if p.Emulator == "" {
		p.Emulator = "qemu-system-riscv64"
	}

	sort.SliceStable(p.Devices, func(i, j int) bool {
		return p.Devices[i].Slot < p.Devices[j].Slot
	})

	storage := 0
	for i, d := range p.Devices {
		if d.Slot != i {
			return fmt.Errorf("board %s: device slots must be unique and contiguous from 0, got slot %d at position %d", p.Name, d.Slot, i)
		}
		if !knownKinds[d.Kind] {
			return fmt.Errorf("board %s: slot %d: unknown device kind %q", p.Name, d.Slot, d.Kind)
		}
		if d.Driver == "" {
			return fmt.Errorf("board %s: slot %d: driver not set", p.Name, d.Slot)
		}
		if d.Kind == Storage {
			storage++
		}
		if len(d.Forwards) > 0 && d.Kind != Network {
			return fmt.Errorf("board %s: slot %d: port forwards on a %s device", p.Name, d.Slot, d.Kind)
		}
		for _, f := range d.Forwards {
			if f.Proto != "tcp" && f.Proto != "udp" {
				return fmt.Errorf("board %s: slot %d: invalid forward protocol %q", p.Name, d.Slot, f.Proto)
			}
			if !validPort(f.HostPort) || !validPort(f.GuestPort) {
				return fmt.Errorf("board %s: slot %d: invalid forward %d->%d", p.Name, d.Slot, f.HostPort, f.GuestPort)
			}
		}
	}
	if storage > 1 {
		return fmt.Errorf("board %s: at most one storage device is supported", p.Name)
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p < 1<<16
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	c := p
	c.Devices = make([]Device, len(p.Devices))
	for i, d := range p.Devices {
		c.Devices[i] = d
		c.Devices[i].Forwards = append([]Forward(nil), d.Forwards...)
	}
	return c
}

// Device returns the first device of the given kind.
func (p Profile) Device(kind DeviceKind) (Device, bool) {
	for _, d := range p.Devices {
		if d.Kind == kind {
			return d, true
		}
	}
	return Device{}, false
}

// EntryHex renders the load address the way qemu and the linker expect it.
func (p Profile) EntryHex() string {
	return fmt.Sprintf("%#x", p.EntryAddress)
}

// Env returns the variables exported to the kernel build so that the
// kernel's compiled-in constants come from this profile.
func (p Profile) Env() []string {
	devs := make([]string, 0, len(p.Devices))
	for _, d := range p.Devices {
		devs = append(devs, fmt.Sprintf("%s@%d", d.Kind, d.Slot))
	}
	return []string{
		"KFORGE_BOARD=" + p.Name,
		"KFORGE_ENTRY_PA=" + p.EntryHex(),
		"KFORGE_DEVICES=" + strings.Join(devs, ","),
	}
}
