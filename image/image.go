// Package image turns the linked kernel into the raw binary the firmware
// loader places at the board's load address.
package image

import (
	"context"
	"debug/elf"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

// Image is a published raw kernel binary.
type Image struct {
	Path        string
	LoadAddress uint64
	Size        int64
}

// Packager runs the object copy tool.
type Packager struct {
	runner tools.Runner
	fs     afero.Fs
	log    *log.Logger
}

// New returns a Packager.
func New(runner tools.Runner, fs afero.Fs) *Packager {
	return &Packager{
		runner: runner,
		fs:     fs,
		log:    log.Stage("pack"),
	}
}

// LoadAddress returns the entry point and the physical address of the
// lowest loadable segment of the executable at path that has file
// contents. objcopy -O binary starts its output at that segment and skips
// zero-filled ones.
func LoadAddress(fs afero.Fs, path string) (entry, base uint64, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return 0, 0, err
	}
	defer ef.Close()

	found := false
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		if !found || p.Paddr < base {
			base = p.Paddr
			found = true
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("%s has no loadable segments", path)
	}
	return ef.Entry, base, nil
}

// Pack strips elfPath into cfg.KernelBin(). The output is written next to
// the destination under a temporary name and renamed into place, so the
// published path never holds a partial image.
func (p *Packager) Pack(ctx context.Context, cfg types.BuildConfig, profile board.Profile, elfPath string) (Image, error) {
	entry, base, err := LoadAddress(p.fs, elfPath)
	if err != nil {
		return Image{}, types.NewError(types.KindPackagingFailed, err, "reading %s", elfPath)
	}
	if base != profile.EntryAddress {
		return Image{}, types.NewError(types.KindPackagingFailed, nil,
			"kernel is linked at %#x but board %s loads it at %s", base, profile.Name, profile.EntryHex())
	}
	if entry != profile.EntryAddress {
		return Image{}, types.NewError(types.KindPackagingFailed, nil,
			"kernel entry %#x does not match board %s load address %s", entry, profile.Name, profile.EntryHex())
	}

	out := cfg.KernelBin()
	tmp := filepath.Join(filepath.Dir(out), fmt.Sprintf(".%s.%s.tmp", filepath.Base(out), uuid.NewString()))

	cmd := tools.Command{
		Name: cfg.Tools.Objcopy,
		Args: []string{"--strip-all", elfPath, "-O", "binary", tmp},
	}
	p.log.Infof("%s", cmd)
	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		p.discard(tmp)
		return Image{}, types.NewError(types.KindPackagingFailed, err, "running %s", cfg.Tools.Objcopy)
	}
	if !res.Success() {
		p.discard(tmp)
		return Image{}, &types.Error{
			Kind:     types.KindPackagingFailed,
			Msg:      "object copy failed",
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}

	fi, err := p.fs.Stat(tmp)
	if err != nil {
		return Image{}, types.NewError(types.KindPackagingFailed, err, "%s produced no output", cfg.Tools.Objcopy)
	}
	if err := p.fs.Rename(tmp, out); err != nil {
		p.discard(tmp)
		return Image{}, types.NewError(types.KindPackagingFailed, err, "publishing %s", out)
	}

	p.log.Infof("%s: %s at %s", out, humanize.Bytes(uint64(fi.Size())), profile.EntryHex())
	return Image{Path: out, LoadAddress: profile.EntryAddress, Size: fi.Size()}, nil
}

func (p *Packager) discard(path string) {
	if err := p.fs.Remove(path); err == nil {
		p.log.Debugf("removed partial output %s", path)
	}
}

// TempPattern matches the temporary outputs Pack may leave behind when the
// process is killed between conversion and publish.
func TempPattern(cfg types.BuildConfig) string {
	out := cfg.KernelBin()
	return filepath.Join(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
}
