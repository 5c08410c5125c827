package qemu

import (
	"fmt"
	"strings"
)

type drive struct {
	path   string
	format string
	iftype string
	ID     string
}

func (d drive) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("-drive file=%s", d.path))
	if len(d.iftype) > 0 {
		sb.WriteString(fmt.Sprintf(",if=%s", d.iftype))
	}
	if len(d.format) > 0 {
		sb.WriteString(fmt.Sprintf(",format=%s", d.format))
	}
	if len(d.ID) > 0 {
		sb.WriteString(fmt.Sprintf(",id=%s", d.ID))
	}
	return sb.String()
}

// device is a virtio-mmio device pinned to one transport slot.
type device struct {
	driver string
	slot   int
	props  []string
}

func (dv device) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("-device %s,bus=virtio-mmio-bus.%d", dv.driver, dv.slot))
	for _, p := range dv.props {
		sb.WriteString("," + p)
	}
	return sb.String()
}

type netdev struct {
	nettype string
	id      string
	hports  []portfwd
}

func (nd netdev) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("-netdev %s,id=%s", nd.nettype, nd.id))
	for _, hport := range nd.hports {
		sb.WriteString(fmt.Sprintf(",%s", hport))
	}
	return sb.String()
}

type portfwd struct {
	proto     string
	hostPort  int
	guestPort int
}

func (pf portfwd) String() string {
	return fmt.Sprintf("hostfwd=%s::%d-:%d", pf.proto, pf.hostPort, pf.guestPort)
}

// loader places a raw file at a physical address before the firmware runs.
type loader struct {
	file string
	addr uint64
}

func (l loader) String() string {
	return fmt.Sprintf("-device loader,file=%s,addr=%#x", l.file, l.addr)
}

type display struct {
	disptype string
}

func (d display) String() string {
	return fmt.Sprintf("-display %s", d.disptype)
}

type serial struct {
	serialtype string
}

func (s serial) String() string {
	return fmt.Sprintf("-serial %s", s.serialtype)
}
