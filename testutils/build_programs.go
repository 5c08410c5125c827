package testutils

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	headerSize = 64
	progSize   = 56
)

// KernelELF returns a minimal RISC-V executable with one loadable segment
// holding payload at paddr, entering at entry.
func KernelELF(entry, paddr uint64, payload []byte) []byte {
	return kernelELF(entry, paddr, payload, 0, 0)
}

// KernelELFWithBss is KernelELF plus a zero-filled segment of bssSize bytes
// at bssAddr that occupies no file space.
func KernelELFWithBss(entry, paddr uint64, payload []byte, bssAddr, bssSize uint64) []byte {
	return kernelELF(entry, paddr, payload, bssAddr, bssSize)
}

func kernelELF(entry, paddr uint64, payload []byte, bssAddr, bssSize uint64) []byte {
	var b bytes.Buffer

	progs := []elf.Prog64{{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  paddr,
		Paddr:  paddr,
		Filesz: uint64(len(payload)),
		Memsz:  uint64(len(payload)),
		Align:  0x1000,
	}}
	if bssSize > 0 {
		progs = append(progs, elf.Prog64{
			Type:  uint32(elf.PT_LOAD),
			Flags: uint32(elf.PF_R | elf.PF_W),
			Vaddr: bssAddr,
			Paddr: bssAddr,
			Memsz: bssSize,
			Align: 0x1000,
		})
	}
	offs := uint64(headerSize + progSize*len(progs))
	for i := range progs {
		progs[i].Off = offs
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     headerSize,
		Ehsize:    headerSize,
		Phentsize: progSize,
		Phnum:     uint16(len(progs)),
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	binary.Write(&b, binary.LittleEndian, hdr)
	for _, p := range progs {
		binary.Write(&b, binary.LittleEndian, p)
	}
	b.Write(payload)
	return b.Bytes()
}

// UserProgramELF returns a minimal user program executable.
func UserProgramELF() []byte {
	return KernelELF(0x10000, 0x10000, []byte{0x73, 0x00, 0x00, 0x00})
}

// Payload extracts the file-backed bytes of an image built by KernelELF or
// KernelELFWithBss, the way objcopy -O binary would.
func Payload(image []byte) []byte {
	phnum := int(binary.LittleEndian.Uint16(image[56:58]))
	return append([]byte(nil), image[headerSize+progSize*phnum:]...)
}
