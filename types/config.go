package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultBoard is the board used when none is configured. It always resolves.
	DefaultBoard = "qemu"

	// DefaultArch is the bare-metal target triple handed to cargo.
	DefaultArch = "riscv64gc-unknown-none-elf"

	// ModeDebug selects an unoptimized kernel build.
	ModeDebug = "debug"

	// ModeRelease selects an optimized kernel build.
	ModeRelease = "release"

	// DisplayOn attaches a graphical window to the emulator.
	DisplayOn = "on"

	// DisplayOff runs the emulator headless.
	DisplayOff = "off"

	// DefaultGdbPort is the port qemu listens on for "-s".
	DefaultGdbPort = 1234
)

// Config is the mutable configuration assembled from defaults, the config
// file, the environment and command flags. It is frozen into a BuildConfig
// before any stage runs.
type Config struct {
	// Board selects the board profile.
	Board string `json:",omitempty"`

	// BoardsFile is an optional YAML file with additional board profiles.
	BoardsFile string `json:",omitempty"`

	// Arch is the cargo target triple of the kernel.
	Arch string `json:",omitempty"`

	// Mode is either "debug" or "release".
	Mode string `json:",omitempty"`

	// Display is either "on" or "off".
	Display string `json:",omitempty"`

	// Test selects the program the kernel shell starts by default. It is
	// passed through to the user program build and the packer untouched.
	Test string `json:",omitempty"`

	// DisasmFlags are handed to the disassembler before the kernel path.
	DisasmFlags []string `json:",omitempty"`

	// Root is the project directory every relative path is resolved against.
	Root string `json:",omitempty"`

	// KernelDir holds the kernel crate.
	KernelDir string `json:",omitempty"`

	// KernelName is the name of the linked kernel executable.
	KernelName string `json:",omitempty"`

	// UserDir holds the user program crate. Empty disables the filesystem image.
	UserDir string `json:",omitempty"`

	// UserMode is the build mode of the user programs.
	UserMode string `json:",omitempty"`

	// UserBuild is the command building the user programs, run inside UserDir.
	UserBuild []string `json:",omitempty"`

	// Packer is the command packing user programs into a filesystem image,
	// run inside Root. "-s <src> -t <target>" is appended.
	Packer []string `json:",omitempty"`

	// Firmware is the SBI firmware handed to the emulator with -bios.
	Firmware string `json:",omitempty"`

	// Tools names the external binaries.
	Tools ToolsConfig `json:",omitempty"`

	// RunConfig
	RunConfig RunConfig `json:",omitempty"`
}

// ToolsConfig names the external tools kforge drives.
type ToolsConfig struct {
	Cargo   string `json:",omitempty"`
	Objcopy string `json:",omitempty"`
	Objdump string `json:",omitempty"`
	Gdb     string `json:",omitempty"`
}

// RunConfig provides runtime details
type RunConfig struct {
	// GdbServer starts the emulator halted, waiting for a debugger.
	GdbServer bool `json:",omitempty"`

	// GdbPort
	GdbPort int `json:",omitempty"`

	// DryRun prints the emulator command line instead of running it.
	DryRun bool `json:",omitempty"`

	// ShowDebug
	ShowDebug bool `json:",omitempty"`

	// ShowErrors
	ShowErrors bool `json:",omitempty"`

	// ShowWarnings
	ShowWarnings bool `json:",omitempty"`

	// Verbose streams external tool output and prints invoked commands.
	Verbose bool `json:",omitempty"`
}

// NewConfig returns a Config holding every default.
func NewConfig() *Config {
	return &Config{
		Board:       DefaultBoard,
		Arch:        DefaultArch,
		Mode:        ModeRelease,
		Display:     DisplayOff,
		DisasmFlags: []string{"-x"},
		Root:        ".",
		KernelDir:   "os",
		KernelName:  "os",
		UserDir:     "user",
		UserMode:    ModeRelease,
		UserBuild:   []string{"make", "build"},
		Packer:      []string{"cargo", "run", "--release", "--manifest-path", "easy-fs-fuse/Cargo.toml", "--"},
		Firmware:    "bootloader/rustsbi-qemu.bin",
		Tools: ToolsConfig{
			Cargo:   "cargo",
			Objcopy: "rust-objcopy",
			Objdump: "rust-objdump",
			Gdb:     "riscv64-unknown-elf-gdb",
		},
		RunConfig: RunConfig{
			GdbPort: DefaultGdbPort,
		},
	}
}

// ParseDisplay accepts on/off and the usual boolean spellings.
func ParseDisplay(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case DisplayOn, "true", "1", "yes":
		return true, nil
	case DisplayOff, "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid display mode %q, want %s or %s", v, DisplayOn, DisplayOff)
}

func checkMode(mode string) error {
	if mode != ModeDebug && mode != ModeRelease {
		return fmt.Errorf("invalid build mode %q, want %s or %s", mode, ModeDebug, ModeRelease)
	}
	return nil
}

// Freeze validates c and returns the immutable BuildConfig derived from it.
// Relative directories are resolved against Root.
func (c *Config) Freeze() (BuildConfig, error) {
	if err := checkMode(c.Mode); err != nil {
		return BuildConfig{}, err
	}
	userMode := c.UserMode
	if userMode == "" {
		userMode = ModeRelease
	}
	if err := checkMode(userMode); err != nil {
		return BuildConfig{}, err
	}
	display, err := ParseDisplay(c.Display)
	if err != nil {
		return BuildConfig{}, err
	}
	if c.Arch == "" {
		return BuildConfig{}, fmt.Errorf("target architecture not set")
	}
	board := c.Board
	if board == "" {
		board = DefaultBoard
	}
	root := c.Root
	if root == "" {
		root = "."
	}
	gdbPort := c.RunConfig.GdbPort
	if gdbPort == 0 {
		gdbPort = DefaultGdbPort
	}

	userDir := ""
	if c.UserDir != "" {
		userDir = resolve(root, c.UserDir)
	}

	return BuildConfig{
		Arch:        c.Arch,
		Mode:        c.Mode,
		Board:       board,
		BoardsFile:  c.BoardsFile,
		Display:     display,
		Test:        c.Test,
		DisasmFlags: clone(c.DisasmFlags),
		Root:        root,
		KernelDir:   resolve(root, c.KernelDir),
		KernelName:  c.KernelName,
		UserDir:     userDir,
		UserMode:    userMode,
		UserBuild:   clone(c.UserBuild),
		Packer:      clone(c.Packer),
		Firmware:    resolve(root, c.Firmware),
		Tools:       c.Tools,
		GdbServer:   c.RunConfig.GdbServer,
		GdbPort:     gdbPort,
		DryRun:      c.RunConfig.DryRun,
		Verbose:     c.RunConfig.Verbose,
	}, nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
