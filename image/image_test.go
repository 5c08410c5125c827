package image

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/testutils"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

var payload = []byte{0x17, 0x01, 0x00, 0x00, 0x13, 0x01, 0x01, 0x00}

// objcopy fakes "objcopy --strip-all <elf> -O binary <out>".
func objcopy(fs afero.Fs) tools.Runner {
	return tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
		raw, err := afero.ReadFile(fs, cmd.Args[1])
		if err != nil {
			return tools.Result{ExitCode: 1}, nil
		}
		return tools.Result{}, afero.WriteFile(fs, cmd.Args[4], testutils.Payload(raw), 0644)
	})
}

func setup(t *testing.T, entry, base uint64) (types.BuildConfig, afero.Fs) {
	t.Helper()
	cfg := testutils.NewConfig(t, "/src")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, cfg.KernelELF(), testutils.KernelELF(entry, base, payload), 0755))
	return cfg, fs
}

func TestPackEveryBoard(t *testing.T) {
	reg := board.Default()
	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			profile, err := reg.Lookup(name)
			require.NoError(t, err)
			cfg, fs := setup(t, profile.EntryAddress, profile.EntryAddress)

			img, err := New(objcopy(fs), fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
			require.NoError(t, err)

			assert.Equal(t, cfg.KernelBin(), img.Path)
			assert.Equal(t, profile.EntryAddress, img.LoadAddress)
			assert.Equal(t, int64(len(payload)), img.Size)

			raw, err := afero.ReadFile(fs, img.Path)
			require.NoError(t, err)
			assert.Equal(t, payload, raw, "image must start with the segment linked at the load address")

			leftovers, err := afero.Glob(fs, TempPattern(cfg))
			require.NoError(t, err)
			assert.Empty(t, leftovers)
		})
	}
}

func TestLoadAddressIgnoresZeroFilledSegments(t *testing.T) {
	profile, err := board.Default().Lookup("qemu")
	require.NoError(t, err)
	cfg := testutils.NewConfig(t, "/src")

	t.Run("bss below the image", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		elf := testutils.KernelELFWithBss(profile.EntryAddress, profile.EntryAddress, payload, 0x80100000, 0x1000)
		require.NoError(t, afero.WriteFile(fs, cfg.KernelELF(), elf, 0755))

		entry, base, err := LoadAddress(fs, cfg.KernelELF())
		require.NoError(t, err)
		assert.Equal(t, profile.EntryAddress, entry)
		assert.Equal(t, profile.EntryAddress, base)

		img, err := New(objcopy(fs), fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		require.NoError(t, err)
		raw, err := afero.ReadFile(fs, img.Path)
		require.NoError(t, err)
		assert.Equal(t, payload, raw)
	})

	t.Run("bss at the load address with code above it", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		elf := testutils.KernelELFWithBss(profile.EntryAddress, profile.EntryAddress+0x1000, payload, profile.EntryAddress, 0x1000)
		require.NoError(t, afero.WriteFile(fs, cfg.KernelELF(), elf, 0755))

		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			t.Fatal("objcopy invoked")
			return tools.Result{}, nil
		})
		_, err := New(runner, fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		assert.True(t, errors.Is(err, types.ErrPackagingFailed))
		assert.Contains(t, err.Error(), "linked at 0x80201000")
	})
}

func TestPackFailures(t *testing.T) {
	profile, err := board.Default().Lookup("qemu")
	require.NoError(t, err)

	t.Run("objcopy failure leaves nothing published", func(t *testing.T) {
		cfg, fs := setup(t, profile.EntryAddress, profile.EntryAddress)
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			// a partial write before failing
			_ = afero.WriteFile(fs, cmd.Args[4], []byte{1}, 0644)
			return tools.Result{ExitCode: 3, Output: []byte("bad section")}, nil
		})

		_, err := New(runner, fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		assert.True(t, errors.Is(err, types.ErrPackagingFailed))
		assert.Equal(t, 3, types.ExitCode(err))

		exists, _ := afero.Exists(fs, cfg.KernelBin())
		assert.False(t, exists)
		leftovers, _ := afero.Glob(fs, TempPattern(cfg))
		assert.Empty(t, leftovers)
	})

	t.Run("objcopy failure keeps a previously published image intact", func(t *testing.T) {
		cfg, fs := setup(t, profile.EntryAddress, profile.EntryAddress)
		require.NoError(t, afero.WriteFile(fs, cfg.KernelBin(), []byte("previous"), 0644))
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			return tools.Result{ExitCode: 1}, nil
		})

		_, err := New(runner, fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		require.Error(t, err)

		raw, _ := afero.ReadFile(fs, cfg.KernelBin())
		assert.Equal(t, "previous", string(raw))
	})

	t.Run("kernel linked at another address", func(t *testing.T) {
		cfg, fs := setup(t, 0x80000000, 0x80000000)
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			t.Fatal("objcopy invoked")
			return tools.Result{}, nil
		})

		_, err := New(runner, fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		assert.True(t, errors.Is(err, types.ErrPackagingFailed))
		assert.Contains(t, err.Error(), "linked at 0x80000000")
		assert.Equal(t, 70, types.ExitCode(err))
	})

	t.Run("entry point off the load address", func(t *testing.T) {
		cfg, fs := setup(t, profile.EntryAddress+0x100, profile.EntryAddress)

		_, err := New(objcopy(fs), fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		assert.True(t, errors.Is(err, types.ErrPackagingFailed))
		assert.Contains(t, err.Error(), "entry")
	})

	t.Run("not an executable", func(t *testing.T) {
		cfg := testutils.NewConfig(t, "/src")
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, cfg.KernelELF(), []byte("#!/bin/sh"), 0755))

		_, err := New(objcopy(fs), fs).Pack(context.Background(), cfg, profile, cfg.KernelELF())
		assert.True(t, errors.Is(err, types.ErrPackagingFailed))
	})
}
