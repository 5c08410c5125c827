package cmd

import (
	"strings"

	"github.com/nanovms/kforge/types"
	"github.com/spf13/pflag"
)

// RunCommandFlags consolidates the emulator launch flags
type RunCommandFlags struct {
	GdbServer bool
	GdbPort   int
	DryRun    bool
}

// MergeToConfig overrides configuration passed by argument with run flags values
func (flags *RunCommandFlags) MergeToConfig(c *types.Config) error {
	c.RunConfig.GdbServer = flags.GdbServer
	if flags.GdbPort != 0 {
		c.RunConfig.GdbPort = flags.GdbPort
	}
	c.RunConfig.DryRun = flags.DryRun
	return nil
}

// NewRunCommandFlags returns an instance of RunCommandFlags
func NewRunCommandFlags(cmdFlags *pflag.FlagSet) (flags *RunCommandFlags) {
	flags = &RunCommandFlags{}

	flags.GdbServer, _ = cmdFlags.GetBool("gdb")
	flags.GdbPort, _ = cmdFlags.GetInt("gdb-port")
	flags.DryRun, _ = cmdFlags.GetBool("dry-run")

	return flags
}

// PersistRunCommandFlags append the run flags to a command
func PersistRunCommandFlags(cmdFlags *pflag.FlagSet) {
	cmdFlags.BoolP("gdb", "d", false, "start halted and wait for a debugger")
	cmdFlags.Int("gdb-port", 0, "debugger port (default 1234)")
	cmdFlags.Bool("dry-run", false, "print the emulator command line instead of running it")
}

// DisasmCommandFlags consolidates the disassembler flags
type DisasmCommandFlags struct {
	changed     bool
	DisasmFlags string
	Output      string
}

// MergeToConfig overrides the disassembler flags when given.
func (flags *DisasmCommandFlags) MergeToConfig(c *types.Config) error {
	if flags.changed {
		c.DisasmFlags = strings.Fields(flags.DisasmFlags)
	}
	return nil
}

// NewDisasmCommandFlags returns an instance of DisasmCommandFlags
func NewDisasmCommandFlags(cmdFlags *pflag.FlagSet) (flags *DisasmCommandFlags) {
	flags = &DisasmCommandFlags{changed: cmdFlags.Changed("disasm-flags")}

	flags.DisasmFlags, _ = cmdFlags.GetString("disasm-flags")
	flags.Output, _ = cmdFlags.GetString("output")

	return flags
}

// PersistDisasmCommandFlags append the disassembler flags to a command
func PersistDisasmCommandFlags(cmdFlags *pflag.FlagSet) {
	cmdFlags.String("disasm-flags", "-x", "disassembler flags")
	cmdFlags.StringP("output", "o", "", "write the disassembly to a file")
}
