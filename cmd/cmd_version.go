package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/constants"
	"github.com/nanovms/kforge/qemu"
	"github.com/nanovms/kforge/tools"
)

// VersionCommand provides version command
func VersionCommand() *cobra.Command {
	var cmdVersion = &cobra.Command{
		Use:   "version",
		Short: "Version",
		Run:   printVersion,
	}
	return cmdVersion
}

func printVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "kforge version: %s\n", constants.Version)

	profile, err := board.Default().Lookup("")
	if err != nil {
		return
	}
	v, err := qemu.Version(cmd.Context(), tools.NewExecRunner(), profile.Emulator)
	if err != nil || v == "" {
		v = "not installed"
	}
	fmt.Fprintf(out, "%s version: %s\n", profile.Emulator, v)
}
