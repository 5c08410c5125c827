package types

import (
	"path/filepath"
)

// BuildConfig is the validated configuration of one pipeline run. It is a
// value: stages receive copies and never write back.
type BuildConfig struct {
	Arch        string
	Mode        string
	Board       string
	BoardsFile  string
	Display     bool
	Test        string
	DisasmFlags []string

	Root       string
	KernelDir  string
	KernelName string
	UserDir    string
	UserMode   string
	UserBuild  []string
	Packer     []string
	Firmware   string
	Tools      ToolsConfig

	GdbServer bool
	GdbPort   int
	DryRun    bool
	Verbose   bool
}

// KernelELF is the linked kernel executable produced by cargo.
func (c BuildConfig) KernelELF() string {
	return filepath.Join(c.KernelDir, "target", c.Arch, c.Mode, c.KernelName)
}

// KernelBin is the raw binary image placed at the board load address.
func (c BuildConfig) KernelBin() string {
	return c.KernelELF() + ".bin"
}

// StagedLayout is the one linker script name the kernel crate links with.
func (c BuildConfig) StagedLayout() string {
	return filepath.Join(c.KernelDir, "src", "linker.ld")
}

// UserSourceDir holds one source file per user program.
func (c BuildConfig) UserSourceDir() string {
	if c.UserDir == "" {
		return ""
	}
	return filepath.Join(c.UserDir, "src", "bin")
}

// UserTargetDir holds the compiled user programs.
func (c BuildConfig) UserTargetDir() string {
	if c.UserDir == "" {
		return ""
	}
	return filepath.Join(c.UserDir, "target", c.Arch, c.UserMode)
}

// FsImage is where the filesystem image is published. Empty when user
// programs are disabled.
func (c BuildConfig) FsImage() string {
	if c.UserDir == "" {
		return ""
	}
	return filepath.Join(c.UserTargetDir(), "fs.img")
}

// HasUserPrograms reports whether a user program build is configured.
func (c BuildConfig) HasUserPrograms() bool {
	return c.UserDir != ""
}

// DisplayMode renders Display as on/off.
func (c BuildConfig) DisplayMode() string {
	if c.Display {
		return DisplayOn
	}
	return DisplayOff
}
