package cmd

import (
	"github.com/spf13/cobra"
)

// RunCommand builds everything and boots the kernel in the emulator
func RunCommand() *cobra.Command {
	var cmdRun = &cobra.Command{
		Use:   "run",
		Short: "Build and boot the kernel in QEMU",
		Args:  cobra.NoArgs,
		RunE:  runCommandHandler,
	}

	PersistRunCommandFlags(cmdRun.PersistentFlags())

	return cmdRun
}

func runCommandHandler(cmd *cobra.Command, args []string) error {
	runFlags := NewRunCommandFlags(cmd.Flags())

	d, err := newDriver(cmd, runFlags)
	if err != nil {
		return err
	}

	return exitStatus(d.Run(cmd.Context()))
}

// GdbClientCommand attaches the debugger to a kernel started with run --gdb
func GdbClientCommand() *cobra.Command {
	var cmdGdb = &cobra.Command{
		Use:   "gdbclient",
		Short: "Attach gdb to a kernel started with run --gdb",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runFlags := NewRunCommandFlags(cmd.Flags())

			d, err := newDriver(cmd, runFlags)
			if err != nil {
				return err
			}
			return exitStatus(d.GdbClient(cmd.Context()))
		},
	}

	cmdGdb.PersistentFlags().Int("gdb-port", 0, "debugger port (default 1234)")

	return cmdGdb
}
