// Package crossbuild compiles the kernel and the user programs for the
// bare-metal target with cargo.
package crossbuild

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

// Artifact is a linked kernel executable.
type Artifact struct {
	ELF          string
	Board        string
	EntryAddress uint64
}

// Builder invokes the cross compiler.
type Builder struct {
	runner tools.Runner
	fs     afero.Fs
	log    *log.Logger
}

// New returns a Builder running external tools through runner and touching
// files through fs.
func New(runner tools.Runner, fs afero.Fs) *Builder {
	return &Builder{
		runner: runner,
		fs:     fs,
		log:    log.Stage("compile"),
	}
}

// layoutData is what a board layout script template can reference.
type layoutData struct {
	Board        string
	EntryAddress string
}

// StageLayout renders the board's layout script to the one name the
// kernel crate links with. The returned release removes it again and must
// be called on every path.
func (b *Builder) StageLayout(cfg types.BuildConfig, profile board.Profile) (release func(), err error) {
	src := filepath.Join(cfg.KernelDir, profile.LayoutScript)
	dst := cfg.StagedLayout()

	raw, err := afero.ReadFile(b.fs, src)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(filepath.Base(src)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, err
	}
	var rendered bytes.Buffer
	err = tmpl.Execute(&rendered, layoutData{Board: profile.Name, EntryAddress: profile.EntryHex()})
	if err != nil {
		return nil, err
	}

	if _, err := b.fs.Stat(dst); err == nil {
		b.log.Warnf("overwriting leftover layout script %s", dst)
	}
	if err := afero.WriteFile(b.fs, dst, rendered.Bytes(), 0644); err != nil {
		return nil, err
	}
	b.log.Debugf("staged %s as %s", src, dst)

	return func() {
		if err := b.fs.Remove(dst); err != nil && !os.IsNotExist(err) {
			b.log.Warnf("cannot remove staged layout script: %v", err)
		}
	}, nil
}

// Compile builds the kernel for profile. The layout script is staged for
// the duration of the compiler run only.
func (b *Builder) Compile(ctx context.Context, cfg types.BuildConfig, profile board.Profile) (Artifact, error) {
	release, err := b.StageLayout(cfg, profile)
	if err != nil {
		return Artifact{}, types.NewError(types.KindBuildFailed, err, "staging layout script for board %s", profile.Name)
	}
	defer release()

	args := []string{"build", "--target", cfg.Arch}
	if cfg.Mode == types.ModeRelease {
		args = append(args, "--release")
	}
	cmd := tools.Command{
		Name: cfg.Tools.Cargo,
		Args: args,
		Dir:  cfg.KernelDir,
		Env:  append(profile.Env(), "MODE="+cfg.Mode),
	}
	if cfg.Verbose {
		cmd.Stdout = os.Stderr
	}

	b.log.Infof("%s (board %s, %s)", cmd, profile.Name, cfg.Mode)
	res, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return Artifact{}, types.NewError(types.KindBuildFailed, err, "running %s", cfg.Tools.Cargo)
	}
	if !res.Success() {
		return Artifact{}, &types.Error{
			Kind:     types.KindBuildFailed,
			Msg:      "kernel compilation failed",
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}

	elf := cfg.KernelELF()
	if _, err := b.fs.Stat(elf); err != nil {
		return Artifact{}, types.NewError(types.KindBuildFailed, err, "linked kernel missing")
	}

	return Artifact{ELF: elf, Board: profile.Name, EntryAddress: profile.EntryAddress}, nil
}

// BuildUserPrograms runs the configured user program build. The test
// selector is passed through as TEST.
func (b *Builder) BuildUserPrograms(ctx context.Context, cfg types.BuildConfig) error {
	if !cfg.HasUserPrograms() || len(cfg.UserBuild) == 0 {
		return nil
	}

	cmd := tools.Command{
		Name: cfg.UserBuild[0],
		Args: cfg.UserBuild[1:],
		Dir:  cfg.UserDir,
		Env: []string{
			"TEST=" + cfg.Test,
			"MODE=" + cfg.UserMode,
			"TARGET=" + cfg.Arch,
		},
	}
	if cfg.Verbose {
		cmd.Stdout = os.Stderr
	}

	b.log.Infof("%s (user programs)", cmd)
	res, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return types.NewError(types.KindBuildFailed, err, "running %s", cmd.Name)
	}
	if !res.Success() {
		return &types.Error{
			Kind:     types.KindBuildFailed,
			Msg:      "user program build failed",
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}
	return nil
}
