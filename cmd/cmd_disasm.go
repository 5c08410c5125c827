package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// DisasmCommand prints the disassembled kernel
func DisasmCommand() *cobra.Command {
	var cmdDisasm = &cobra.Command{
		Use:   "disasm",
		Short: "Compile the kernel and disassemble it",
		Args:  cobra.NoArgs,
		RunE:  disasmCommandHandler,
	}

	PersistDisasmCommandFlags(cmdDisasm.PersistentFlags())

	return cmdDisasm
}

func disasmCommandHandler(cmd *cobra.Command, args []string) error {
	disasmFlags := NewDisasmCommandFlags(cmd.Flags())

	d, err := newDriver(cmd, disasmFlags)
	if err != nil {
		return err
	}

	if disasmFlags.Output == "" {
		return d.Disasm(cmd.Context(), cmd.OutOrStdout())
	}

	return writeFileAtomic(afero.NewOsFs(), disasmFlags.Output, func(w io.Writer) error {
		return d.Disasm(cmd.Context(), w)
	})
}

// writeFileAtomic runs write against a temporary file next to path and
// renames it into place only when write succeeds. path is untouched
// otherwise.
func writeFileAtomic(fs afero.Fs, path string, write func(w io.Writer) error) error {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := fs.Create(tmp)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}
