package qemu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanovms/kforge/board"
	"github.com/nanovms/kforge/testutils"
	"github.com/nanovms/kforge/tools"
	"github.com/nanovms/kforge/types"
)

const (
	kernelBin = "/src/os/target/riscv64gc-unknown-none-elf/release/os.bin"
	fsImage   = "/src/user/target/riscv64gc-unknown-none-elf/release/fs.img"
)

func defaultProfile(t *testing.T) board.Profile {
	t.Helper()
	p, err := board.Default().Lookup("qemu")
	require.NoError(t, err)
	return p
}

func TestComposeDefaultBoard(t *testing.T) {
	cfg := testutils.NewConfig(t, "/src")
	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin, FsImage: fsImage}, cfg)
	require.NoError(t, err)

	want := []string{
		"-machine", "virt",
		"-bios", "/src/bootloader/rustsbi-qemu.bin",
		"-serial", "stdio",
		"-display", "none",
		"-device", "loader,file=" + kernelBin + ",addr=0x80200000",
		"-drive", "file=" + fsImage + ",if=none,format=raw,id=x0",
		"-device", "virtio-blk-device,bus=virtio-mmio-bus.0,drive=x0",
		"-device", "virtio-gpu-device,bus=virtio-mmio-bus.1",
		"-device", "virtio-keyboard-device,bus=virtio-mmio-bus.2",
		"-device", "virtio-mouse-device,bus=virtio-mmio-bus.3",
		"-device", "virtio-net-device,bus=virtio-mmio-bus.4,netdev=net4",
		"-netdev", "user,id=net4,hostfwd=udp::6200-:2000,hostfwd=tcp::6201-:80",
	}
	assert.Equal(t, want, l.Args())
	assert.Equal(t, "qemu-system-riscv64", l.Emulator)
	assert.True(t, strings.HasPrefix(l.String(), "qemu-system-riscv64 -machine virt "))
}

func TestComposeDisplayOnlyTogglesPresentation(t *testing.T) {
	profile := defaultProfile(t)
	art := Artifacts{KernelBin: kernelBin, FsImage: fsImage}

	off, err := Compose(profile, art, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)
	on, err := Compose(profile, art, testutils.NewConfig(t, "/src", func(c *types.Config) {
		c.Display = types.DisplayOn
	}))
	require.NoError(t, err)

	assert.False(t, off.Display)
	assert.True(t, on.Display)
	assert.Equal(t, off.Devices, on.Devices)

	assert.Contains(t, strings.Join(off.Args(), " "), "-display none")
	assert.NotContains(t, strings.Join(on.Args(), " "), "-display none")

	headless := on
	headless.Display = false
	assert.Equal(t, off, headless)
	assert.True(t, on.Display)
}

func TestComposeWithoutFsImage(t *testing.T) {
	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin}, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)

	_, ok := l.Storage()
	assert.False(t, ok)
	assert.NotContains(t, l.Args(), "-drive")

	slots := map[board.DeviceKind]int{}
	for _, a := range l.Devices {
		slots[a.Kind] = a.Slot
	}
	assert.Equal(t, map[board.DeviceKind]int{
		board.Display:  1,
		board.Keyboard: 2,
		board.Mouse:    3,
		board.Network:  4,
	}, slots)
}

func TestComposeSingleStorage(t *testing.T) {
	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin, FsImage: fsImage}, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)

	n := 0
	for _, a := range l.Devices {
		if a.Kind == board.Storage {
			n++
			assert.Equal(t, fsImage, a.Backing)
			assert.Equal(t, 0, a.Slot)
		}
	}
	assert.Equal(t, 1, n)
}

func TestComposeMissingKernel(t *testing.T) {
	_, err := Compose(defaultProfile(t), Artifacts{}, testutils.NewConfig(t, "/src"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrLaunchFailed))
	assert.Contains(t, Hint(err), "kforge build")
}

func TestComposeNetworkForwardsAreCopied(t *testing.T) {
	profile := defaultProfile(t)
	l, err := Compose(profile, Artifacts{KernelBin: kernelBin}, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)

	net := l.Devices[len(l.Devices)-1]
	require.Equal(t, board.Network, net.Kind)
	net.Forwards[0].HostPort = 1

	dev, _ := profile.Device(board.Network)
	assert.Equal(t, board.UDPHostPort, dev.Forwards[0].HostPort)
}

func TestGdbServerArgs(t *testing.T) {
	tests := []struct {
		name string
		port int
		want []string
	}{
		{"default port", types.DefaultGdbPort, []string{"-s", "-S"}},
		{"custom port", 4321, []string{"-gdb", "tcp::4321", "-S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutils.NewConfig(t, "/src", func(c *types.Config) {
				c.RunConfig.GdbServer = true
				c.RunConfig.GdbPort = tt.port
			})
			l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin}, cfg)
			require.NoError(t, err)
			args := l.Args()
			assert.Equal(t, tt.want, args[len(args)-len(tt.want):])
		})
	}

	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin}, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)
	assert.NotContains(t, l.Args(), "-S")
}

func TestArgsKeepPathsWithSpaces(t *testing.T) {
	cfg := testutils.NewConfig(t, "/my src")
	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: "/my src/os.bin"}, cfg)
	require.NoError(t, err)

	args := l.Args()
	assert.Equal(t, "/my src/bootloader/rustsbi-qemu.bin", args[3])
	assert.Contains(t, args, "loader,file=/my src/os.bin,addr=0x80200000")
}

func TestParseQemuVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"QEMU emulator version 7.0.0\nCopyright (c) 2003-2022 Fabrice Bellard", "7.0.0"},
		{"QEMU emulator version 8.2.2 (Debian 1:8.2.2+ds-0ubuntu1)", "8.2.2"},
		{"garbage", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQemuVersion([]byte(tt.in)))
	}
}

func TestHint(t *testing.T) {
	assert.Equal(t, "", Hint(errors.New("plain")))
	assert.Contains(t, Hint(&errEmulatorNotInstalled{errCustom{"x", nil}}), "not installed")
	assert.Contains(t, Hint(&errFirmwareMissing{errCustom{"x", nil}}), "firmware")
	assert.Contains(t, Hint(&errEmulatorCannotExecute{errCustom{"x", nil}}), "cannot be executed")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	firmware := filepath.Join(dir, "rustsbi-qemu.bin")
	kernel := filepath.Join(dir, "os.bin")
	require.NoError(t, os.WriteFile(firmware, []byte("sbi"), 0644))
	require.NoError(t, os.WriteFile(kernel, []byte("kernel"), 0644))

	base := Launch{Emulator: "sh", Firmware: firmware, Kernel: kernel}

	t.Run("all present", func(t *testing.T) {
		assert.NoError(t, Check(base))
	})

	t.Run("emulator not installed", func(t *testing.T) {
		l := base
		l.Emulator = "kforge-no-such-emulator"
		err := Check(l)
		assert.True(t, errors.Is(err, types.ErrLaunchFailed))
		assert.Contains(t, Hint(err), "not installed")
		assert.Equal(t, 69, types.ExitCode(err))
	})

	t.Run("firmware missing", func(t *testing.T) {
		l := base
		l.Firmware = filepath.Join(dir, "missing.bin")
		err := Check(l)
		assert.True(t, errors.Is(err, types.ErrLaunchFailed))
		assert.Contains(t, Hint(err), "firmware")
	})

	t.Run("kernel missing", func(t *testing.T) {
		l := base
		l.Kernel = ""
		err := Check(l)
		assert.True(t, errors.Is(err, types.ErrLaunchFailed))
		assert.Contains(t, Hint(err), "kforge build")
	})

	t.Run("fs image missing", func(t *testing.T) {
		l := base
		l.Devices = []Attachment{{Kind: board.Storage, Driver: "virtio-blk-device", Backing: filepath.Join(dir, "fs.img")}}
		assert.True(t, errors.Is(Check(l), types.ErrLaunchFailed))
	})
}

func TestStart(t *testing.T) {
	l, err := Compose(defaultProfile(t), Artifacts{KernelBin: kernelBin}, testutils.NewConfig(t, "/src"))
	require.NoError(t, err)

	t.Run("returns the emulator exit status", func(t *testing.T) {
		var got tools.Command
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
				return tools.Result{Output: []byte("QEMU emulator version 7.0.0")}, nil
			}
			got = cmd
			return tools.Result{ExitCode: 3}, nil
		})

		code, err := New(runner).Start(context.Background(), l)
		require.NoError(t, err)
		assert.Equal(t, 3, code)
		assert.True(t, got.Interactive)
		assert.Equal(t, l.Args(), got.Args)
	})

	t.Run("cannot start", func(t *testing.T) {
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			return tools.Result{}, errors.New("permission denied")
		})

		_, err := New(runner).Start(context.Background(), l)
		assert.True(t, errors.Is(err, types.ErrLaunchFailed))
		assert.Contains(t, Hint(err), "cannot be executed")
	})

	t.Run("interrupted", func(t *testing.T) {
		runner := tools.RunnerFunc(func(ctx context.Context, cmd tools.Command) (tools.Result, error) {
			if len(cmd.Args) == 1 {
				return tools.Result{}, nil
			}
			return tools.Result{ExitCode: -1}, context.Canceled
		})

		_, err := New(runner).Start(context.Background(), l)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
