package cmd

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/log"
	"github.com/nanovms/kforge/pipeline"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
	"github.com/nanovms/kforge/util"
)

// GetRootCommand provides set all commands for kforge
func GetRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "kforge",
		Short:         "Build, package and boot a RISC-V teaching kernel under QEMU",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			log.InitDefault(os.Stdout, config)
			return nil
		},
	}

	// persist flags transversal to every command
	persistentFlags := rootCmd.PersistentFlags()
	PersistGlobalCommandFlags(persistentFlags)
	PersistConfigCommandFlags(persistentFlags)
	PersistBuildCommandFlags(persistentFlags)

	rootCmd.AddCommand(BuildCommand())
	rootCmd.AddCommand(RunCommand())
	rootCmd.AddCommand(CleanCommand())
	rootCmd.AddCommand(DisasmCommand())
	rootCmd.AddCommand(FsImageCommand())
	rootCmd.AddCommand(GdbClientCommand())
	rootCmd.AddCommand(BoardsCommand())
	rootCmd.AddCommand(VersionCommand())

	return rootCmd
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string) int {
	rootCmd := GetRootCommand()
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		PrintError(os.Stderr, err)
	}
	return ExitCode(err)
}

// loadConfig merges, in order of precedence, the config file, the
// environment, the command line flags and extra.
func loadConfig(flags *pflag.FlagSet, extra ...MergeConfigFlags) (*types.Config, error) {
	c := types.NewConfig()

	merge := append([]MergeConfigFlags{
		NewConfigCommandFlags(flags),
		NewEnvConfig(nil),
		NewBuildCommandFlags(flags),
		NewGlobalCommandFlags(flags),
	}, extra...)

	if err := NewMergeConfigContainer(merge...).Merge(c); err != nil {
		return nil, err
	}
	return c, nil
}

func loadRegistry(boardsFile string) (*board.Registry, error) {
	reg := board.Default()
	if boardsFile == "" {
		return reg, nil
	}
	extra, err := board.LoadFile(boardsFile)
	if err != nil {
		return nil, err
	}
	return reg.Merge(extra), nil
}

// newDriver builds the pipeline for the command's configuration. The board
// is resolved here, so an unknown board fails before any stage runs.
func newDriver(cmd *cobra.Command, extra ...MergeConfigFlags) (*pipeline.Driver, error) {
	c, err := loadConfig(cmd.Flags(), extra...)
	if err != nil {
		return nil, err
	}

	cfg, err := c.Freeze()
	if err != nil {
		return nil, err
	}

	reg, err := loadRegistry(cfg.BoardsFile)
	if err != nil {
		return nil, err
	}

	d, err := pipeline.New(cfg, reg, tools.NewExecRunner(), afero.NewOsFs())
	if err != nil {
		return nil, err
	}
	d.SetOutput(cmd.OutOrStdout())

	rc := c.RunConfig
	if util.IsTerminal(os.Stdout) && !rc.Verbose && !rc.ShowDebug {
		d.SetProgress(util.NewProgressSpinner(os.Stdout))
	}
	return d, nil
}
