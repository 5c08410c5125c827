// Package fs builds the filesystem image holding the user programs by
// driving the external packer.
package fs

import (
	"bytes"
	"context"
	"debug/elf"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"

	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

// Artifact is a built filesystem image. The zero value means no image was
// built.
type Artifact struct {
	Path     string
	Programs []string
	Size     int64
}

// Present reports whether an image exists.
func (a Artifact) Present() bool {
	return a.Path != ""
}

// ImageCommand wraps packer calls
type ImageCommand struct {
	runner         tools.Runner
	fs             afero.Fs
	log            *log.Logger
	packer         []string
	dir            string
	sourceDir      string
	targetDir      string
	outPath        string
	defaultProgram string
}

// NewImageCommand returns an instance of ImageCommand
func NewImageCommand(runner tools.Runner, fs afero.Fs) *ImageCommand {
	return &ImageCommand{
		runner: runner,
		fs:     fs,
		log:    log.Stage("fs-img"),
	}
}

// NewImageCommandFromConfig returns an ImageCommand set up for the user
// program layout of cfg.
func NewImageCommandFromConfig(runner tools.Runner, fs afero.Fs, cfg types.BuildConfig) *ImageCommand {
	m := NewImageCommand(runner, fs)
	m.SetPacker(cfg.Packer, cfg.Root)
	m.SetSourceDir(cfg.UserSourceDir())
	m.SetTargetDir(cfg.UserTargetDir())
	m.SetOutput(cfg.FsImage())
	m.SetDefaultProgram(cfg.Test)
	return m
}

// SetPacker sets the packer command line and the directory it runs in
func (m *ImageCommand) SetPacker(packer []string, dir string) {
	m.packer = append([]string(nil), packer...)
	m.dir = dir
}

// SetSourceDir sets the directory naming the programs, one source file per
// program. When empty the target directory is scanned instead.
func (m *ImageCommand) SetSourceDir(dir string) {
	m.sourceDir = dir
}

// SetTargetDir sets the directory holding the compiled programs
func (m *ImageCommand) SetTargetDir(dir string) {
	m.targetDir = dir
}

// SetOutput sets the path the packer writes the image to
func (m *ImageCommand) SetOutput(path string) {
	m.outPath = path
}

// SetDefaultProgram sets the test selector handed to the packer
func (m *ImageCommand) SetDefaultProgram(name string) {
	m.defaultProgram = name
}

// Programs lists the programs that go into the image, sorted by name.
func (m *ImageCommand) Programs() ([]string, error) {
	if m.targetDir == "" {
		return nil, nil
	}

	scan := m.sourceDir
	if scan == "" {
		scan = m.targetDir
	}
	entries, err := afero.ReadDir(m.fs, scan)
	if os.IsNotExist(err) {
		m.log.Warnf("%s does not exist, no user programs", scan)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if m.sourceDir == "" && name != e.Name() {
			continue
		}
		ok, err := m.isProgram(filepath.Join(m.targetDir, name))
		if err != nil {
			return nil, err
		}
		if !ok {
			if m.sourceDir != "" {
				m.log.Warnf("%s has no compiled binary, skipped", name)
			}
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *ImageCommand) isProgram(path string) (bool, error) {
	f, err := m.fs.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, 0)
	}
	defer f.Close()

	magic := make([]byte, len(elf.ELFMAG))
	if _, err := f.Read(magic); err != nil {
		return false, nil
	}
	return bytes.Equal(magic, []byte(elf.ELFMAG)), nil
}

// Remove deletes the published image, if any.
func (m *ImageCommand) Remove() error {
	if m.outPath == "" {
		return nil
	}
	if err := m.fs.Remove(m.outPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, 0)
	}
	return nil
}

// Execute runs the packer. Without programs no image is built and the zero
// Artifact is returned. On failure no image is left at the output path.
func (m *ImageCommand) Execute(ctx context.Context) (Artifact, error) {
	if m.outPath == "" {
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, nil, "output image file path not set")
	}
	if len(m.packer) == 0 {
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, nil, "packer not set")
	}

	programs, err := m.Programs()
	if err != nil {
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, err, "listing user programs")
	}

	if err := m.Remove(); err != nil {
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, err, "removing stale image")
	}

	if len(programs) == 0 {
		m.log.Info("no user programs, filesystem image skipped")
		return Artifact{}, nil
	}

	src := m.sourceDir
	if src == "" {
		src = m.targetDir
	}
	args := append(append([]string(nil), m.packer[1:]...), "-s", src+"/", "-t", m.targetDir+"/")
	cmd := tools.Command{
		Name: m.packer[0],
		Args: args,
		Dir:  m.dir,
		Env: []string{
			"KFORGE_TEST=" + m.defaultProgram,
			"KFORGE_FS_IMAGE=" + m.outPath,
		},
	}

	m.log.Infof("packing %d programs: %s", len(programs), strings.Join(programs, " "))
	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		m.discard()
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, err, "running %s", m.packer[0])
	}
	if !res.Success() {
		m.discard()
		return Artifact{}, &types.Error{
			Kind:     types.KindFsImageBuildFailed,
			Msg:      "packer failed",
			ExitCode: res.ExitCode,
			Output:   res.Output,
		}
	}

	fi, err := m.fs.Stat(m.outPath)
	if err != nil {
		return Artifact{}, types.NewError(types.KindFsImageBuildFailed, err, "packer produced no image")
	}

	return Artifact{Path: m.outPath, Programs: programs, Size: fi.Size()}, nil
}

func (m *ImageCommand) discard() {
	if err := m.Remove(); err != nil {
		m.log.Warnf("cannot remove partial image: %v", err)
	}
}
