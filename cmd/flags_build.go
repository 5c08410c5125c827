package cmd

import (
	"github.com/nanovms/kforge/types"
	"github.com/spf13/pflag"
)

// BuildCommandFlags select the board, build mode and project layout. Only
// flags given on the command line override the configuration.
type BuildCommandFlags struct {
	changed map[string]bool

	Board      string
	BoardsFile string
	Mode       string
	Display    string
	Test       string
	Arch       string
	Root       string
	Firmware   string
}

// MergeToConfig overrides configuration with the flags that were set.
func (flags *BuildCommandFlags) MergeToConfig(c *types.Config) error {
	if flags.changed["board"] {
		c.Board = flags.Board
	}
	if flags.changed["boards-file"] {
		c.BoardsFile = flags.BoardsFile
	}
	if flags.changed["mode"] {
		c.Mode = flags.Mode
	}
	if flags.changed["display"] {
		c.Display = flags.Display
	}
	if flags.changed["test"] {
		c.Test = flags.Test
	}
	if flags.changed["arch"] {
		c.Arch = flags.Arch
	}
	if flags.changed["root"] {
		c.Root = flags.Root
	}
	if flags.changed["firmware"] {
		c.Firmware = flags.Firmware
	}
	return nil
}

// NewBuildCommandFlags returns an instance of BuildCommandFlags
func NewBuildCommandFlags(cmdFlags *pflag.FlagSet) (flags *BuildCommandFlags) {
	flags = &BuildCommandFlags{changed: map[string]bool{}}

	for _, name := range []string{"board", "boards-file", "mode", "display", "test", "arch", "root", "firmware"} {
		flags.changed[name] = cmdFlags.Changed(name)
	}

	flags.Board, _ = cmdFlags.GetString("board")
	flags.BoardsFile, _ = cmdFlags.GetString("boards-file")
	flags.Mode, _ = cmdFlags.GetString("mode")
	flags.Display, _ = cmdFlags.GetString("display")
	flags.Test, _ = cmdFlags.GetString("test")
	flags.Arch, _ = cmdFlags.GetString("arch")
	flags.Root, _ = cmdFlags.GetString("root")
	flags.Firmware, _ = cmdFlags.GetString("firmware")

	return flags
}

// PersistBuildCommandFlags append the build selection flags to a command
func PersistBuildCommandFlags(cmdFlags *pflag.FlagSet) {
	cmdFlags.StringP("board", "b", types.DefaultBoard, "board profile")
	cmdFlags.String("boards-file", "", "YAML file with additional board profiles")
	cmdFlags.StringP("mode", "m", types.ModeRelease, "kernel build mode (debug or release)")
	cmdFlags.String("display", types.DisplayOff, "graphical display (on or off)")
	cmdFlags.StringP("test", "t", "", "program the kernel shell starts by default")
	cmdFlags.String("arch", types.DefaultArch, "kernel target triple")
	cmdFlags.StringP("root", "r", ".", "project directory")
	cmdFlags.String("firmware", "", "SBI firmware image")
}
