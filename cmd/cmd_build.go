package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// BuildCommand compiles the kernel and packs the kernel and filesystem images
func BuildCommand() *cobra.Command {
	var cmdBuild = &cobra.Command{
		Use:   "build",
		Short: "Build the kernel image and the filesystem image",
		Args:  cobra.NoArgs,
		RunE:  buildCommandHandler,
	}
	return cmdBuild
}

func buildCommandHandler(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}

	arts, err := d.Build(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Kernel image: %s (%s at %#x)\n", arts.Image.Path, humanize.Bytes(uint64(arts.Image.Size)), arts.Image.LoadAddress)
	if arts.FsImage.Present() {
		fmt.Fprintf(out, "Filesystem image: %s (%s, %d programs)\n", arts.FsImage.Path, humanize.Bytes(uint64(arts.FsImage.Size)), len(arts.FsImage.Programs))
	}
	return nil
}

// FsImageCommand builds the user programs and the filesystem image only
func FsImageCommand() *cobra.Command {
	var cmdFsImage = &cobra.Command{
		Use:   "fs-img",
		Short: "Build the user programs and pack them into the filesystem image",
		Args:  cobra.NoArgs,
		RunE:  fsImageCommandHandler,
	}
	return cmdFsImage
}

func fsImageCommandHandler(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}

	art, err := d.FsImage(cmd.Context())
	if err != nil {
		return err
	}
	if art.Present() {
		fmt.Fprintf(cmd.OutOrStdout(), "Filesystem image: %s (%s, %d programs)\n", art.Path, humanize.Bytes(uint64(art.Size)), len(art.Programs))
	}
	return nil
}

// CleanCommand removes build outputs
func CleanCommand() *cobra.Command {
	var cmdClean = &cobra.Command{
		Use:   "clean",
		Short: "Remove the kernel, the images and any partial output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver(cmd)
			if err != nil {
				return err
			}
			return d.Clean(cmd.Context())
		},
	}
	return cmdClean
}
