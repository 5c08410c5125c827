package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nanovms/kforge/board"
)

// BoardsCommand lists the board profiles
func BoardsCommand() *cobra.Command {
	var cmdBoards = &cobra.Command{
		Use:   "boards",
		Short: "List board profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			reg, err := loadRegistry(c.BoardsFile)
			if err != nil {
				return err
			}

			board.PrintTable(cmd.OutOrStdout(), reg)
			return nil
		},
	}
	return cmdBoards
}
