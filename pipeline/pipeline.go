// Package pipeline drives the build stages of one kernel in order: compile,
// pack, user programs, filesystem image and launch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/crossbuild"
	"github.com/nanovms/kforge/fs"
	"github.com/nanovms/kforge/image"
	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/qemu"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
	"github.com/nanovms/kforge/util"
)

// Artifacts are the outputs of a full build.
type Artifacts struct {
	Kernel  crossbuild.Artifact
	Image   image.Image
	FsImage fs.Artifact
}

// Driver runs pipeline operations for one frozen configuration and one
// resolved board.
type Driver struct {
	cfg      types.BuildConfig
	profile  board.Profile
	runner   tools.Runner
	fs       afero.Fs
	out      io.Writer
	progress *util.ProgressSpinner
	log      *log.Logger
}

// New resolves the configured board and returns a Driver. An unknown board
// fails here, before any stage runs.
func New(cfg types.BuildConfig, reg *board.Registry, runner tools.Runner, fs afero.Fs) (*Driver, error) {
	profile, err := reg.Lookup(cfg.Board)
	if err != nil {
		return nil, err
	}
	return &Driver{
		cfg:     cfg,
		profile: profile,
		runner:  runner,
		fs:      fs,
		out:     os.Stdout,
		log:     log.Stage("pipeline"),
	}, nil
}

// Profile returns the resolved board.
func (d *Driver) Profile() board.Profile {
	return d.profile.Clone()
}

// Config returns the configuration the driver runs with.
func (d *Driver) Config() types.BuildConfig {
	return d.cfg
}

// SetOutput sets where dry runs print the emulator command line.
func (d *Driver) SetOutput(w io.Writer) {
	d.out = w
}

// SetProgress shows a spinner around each stage. nil disables it.
func (d *Driver) SetProgress(ps *util.ProgressSpinner) {
	d.progress = ps
}

func (d *Driver) step(label string, f func() error) error {
	if d.progress == nil {
		return f()
	}
	return d.progress.Do(f, label)
}

func (d *Driver) compile(ctx context.Context) (crossbuild.Artifact, error) {
	var art crossbuild.Artifact
	err := d.step("compiling kernel for "+d.profile.Name, func() (err error) {
		art, err = crossbuild.New(d.runner, d.fs).Compile(ctx, d.cfg, d.profile)
		return err
	})
	return art, err
}

// Build runs compile, pack and, when user programs are configured, the user
// program build and the filesystem image. The first failure stops it. The
// published raw image is removed first, so a failed compilation never leaves
// a stale one behind.
func (d *Driver) Build(ctx context.Context) (Artifacts, error) {
	var arts Artifacts

	if err := d.remove(d.cfg.KernelBin()); err != nil {
		return arts, types.NewError(types.KindBuildFailed, err, "removing stale kernel image")
	}

	kernel, err := d.compile(ctx)
	if err != nil {
		return arts, err
	}
	arts.Kernel = kernel

	err = d.step("packing kernel image", func() (err error) {
		arts.Image, err = image.New(d.runner, d.fs).Pack(ctx, d.cfg, d.profile, kernel.ELF)
		return err
	})
	if err != nil {
		return arts, err
	}

	if !d.cfg.HasUserPrograms() {
		d.log.Debug("user programs disabled")
		return arts, nil
	}

	arts.FsImage, err = d.FsImage(ctx)
	return arts, err
}

// FsImage builds the user programs and packs them into the filesystem image.
func (d *Driver) FsImage(ctx context.Context) (fs.Artifact, error) {
	if !d.cfg.HasUserPrograms() {
		d.log.Warn("no user program directory configured, filesystem image skipped")
		return fs.Artifact{}, nil
	}

	err := d.step("building user programs", func() error {
		return crossbuild.New(d.runner, d.fs).BuildUserPrograms(ctx, d.cfg)
	})
	if err != nil {
		return fs.Artifact{}, err
	}

	var art fs.Artifact
	err = d.step("packing filesystem image", func() (err error) {
		art, err = fs.NewImageCommandFromConfig(d.runner, d.fs, d.cfg).Execute(ctx)
		return err
	})
	return art, err
}

// Launch builds everything and composes the emulator invocation without
// starting it.
func (d *Driver) Launch(ctx context.Context) (qemu.Launch, error) {
	arts, err := d.Build(ctx)
	if err != nil {
		return qemu.Launch{}, err
	}
	return qemu.Compose(d.profile, qemu.Artifacts{
		KernelBin: arts.Image.Path,
		FsImage:   arts.FsImage.Path,
	}, d.cfg)
}

// Run builds and boots the kernel. It returns the emulator's exit status.
func (d *Driver) Run(ctx context.Context) (int, error) {
	l, err := d.Launch(ctx)
	if err != nil {
		return 0, err
	}
	if d.cfg.DryRun {
		fmt.Fprintln(d.out, l.String())
		return 0, nil
	}
	if err := qemu.Check(l); err != nil {
		return 0, err
	}
	return qemu.New(d.runner).Start(ctx, l)
}

// Clean removes every build output. Missing outputs are not an error, so
// Clean can run any number of times.
func (d *Driver) Clean(ctx context.Context) error {
	paths := []string{
		d.cfg.KernelELF(),
		d.cfg.KernelBin(),
		d.cfg.StagedLayout(),
	}
	if d.cfg.HasUserPrograms() {
		paths = append(paths, d.cfg.FsImage())
	}
	leftovers, err := afero.Glob(d.fs, image.TempPattern(d.cfg))
	if err != nil {
		return err
	}
	paths = append(paths, leftovers...)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.remove(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) remove(path string) error {
	err := d.fs.Remove(path)
	if err == nil {
		d.log.Debugf("removed %s", path)
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Disasm compiles the kernel and writes its disassembly to w. Published
// images are left alone.
func (d *Driver) Disasm(ctx context.Context, w io.Writer) error {
	kernel, err := d.compile(ctx)
	if err != nil {
		return err
	}

	cmd := tools.Command{
		Name:   d.cfg.Tools.Objdump,
		Args:   append(append([]string(nil), d.cfg.DisasmFlags...), kernel.ELF),
		Stdout: w,
	}
	d.log.Infof("%s", cmd)
	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return types.NewError(types.KindUnknown, err, "running %s", cmd.Name)
	}
	if !res.Success() {
		return &types.Error{Msg: "disassembly failed", ExitCode: res.ExitCode, Output: res.Output}
	}
	return nil
}

// GdbClient attaches the debugger to a kernel started with `run --gdb`. It
// returns the debugger's exit status.
func (d *Driver) GdbClient(ctx context.Context) (int, error) {
	elf := d.cfg.KernelELF()
	if _, err := d.fs.Stat(elf); err != nil {
		return 0, types.NewError(types.KindLaunchFailed, err, "kernel %s not built", filepath.Base(elf))
	}

	cmd := tools.Command{
		Name: d.cfg.Tools.Gdb,
		Args: []string{
			"-ex", "file " + elf,
			"-ex", "set arch riscv:rv64",
			"-ex", "target remote localhost:" + strconv.Itoa(d.cfg.GdbPort),
		},
		Interactive: true,
	}
	d.log.Infof("%s", cmd)
	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return res.ExitCode, types.NewError(types.KindLaunchFailed, err, "starting %s", cmd.Name)
	}
	return res.ExitCode, nil
}
