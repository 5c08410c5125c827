package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreezeDefaults(t *testing.T) {
	c := NewConfig()
	c.Root = "/src"

	cfg, err := c.Freeze()
	require.NoError(t, err)

	assert.Equal(t, DefaultBoard, cfg.Board)
	assert.False(t, cfg.Display)
	assert.Equal(t, DisplayOff, cfg.DisplayMode())
	assert.Equal(t, "/src/os/target/riscv64gc-unknown-none-elf/release/os", cfg.KernelELF())
	assert.Equal(t, "/src/os/target/riscv64gc-unknown-none-elf/release/os.bin", cfg.KernelBin())
	assert.Equal(t, "/src/os/src/linker.ld", cfg.StagedLayout())
	assert.Equal(t, "/src/user/src/bin", cfg.UserSourceDir())
	assert.Equal(t, "/src/user/target/riscv64gc-unknown-none-elf/release/fs.img", cfg.FsImage())
	assert.Equal(t, "/src/bootloader/rustsbi-qemu.bin", cfg.Firmware)
	assert.Equal(t, DefaultGdbPort, cfg.GdbPort)
	assert.True(t, cfg.HasUserPrograms())
}

func TestFreezeDebugKeepsUserProgramsRelease(t *testing.T) {
	c := NewConfig()
	c.Mode = ModeDebug

	cfg, err := c.Freeze()
	require.NoError(t, err)

	assert.Equal(t, "os/target/riscv64gc-unknown-none-elf/debug/os", cfg.KernelELF())
	assert.Equal(t, "user/target/riscv64gc-unknown-none-elf/release", cfg.UserTargetDir())
}

func TestFreezeWithoutUserPrograms(t *testing.T) {
	c := NewConfig()
	c.UserDir = ""

	cfg, err := c.Freeze()
	require.NoError(t, err)

	assert.False(t, cfg.HasUserPrograms())
	assert.Empty(t, cfg.FsImage())
	assert.Empty(t, cfg.UserSourceDir())
}

func TestFreezeIsACopy(t *testing.T) {
	c := NewConfig()
	cfg, err := c.Freeze()
	require.NoError(t, err)

	c.DisasmFlags[0] = "-d"
	c.Packer[0] = "easy-fs-fuse"
	c.Board = "other"

	assert.Equal(t, []string{"-x"}, cfg.DisasmFlags)
	assert.Equal(t, "cargo", cfg.Packer[0])
	assert.Equal(t, DefaultBoard, cfg.Board)
}

func TestFreezeInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		msg    string
	}{
		{"mode", func(c *Config) { c.Mode = "fast" }, "invalid build mode"},
		{"user mode", func(c *Config) { c.UserMode = "fast" }, "invalid build mode"},
		{"display", func(c *Config) { c.Display = "maybe" }, "invalid display mode"},
		{"arch", func(c *Config) { c.Arch = "" }, "architecture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.mutate(c)
			_, err := c.Freeze()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseDisplay(t *testing.T) {
	for _, v := range []string{"on", "ON", "true", "1", "yes"} {
		on, err := ParseDisplay(v)
		assert.NoError(t, err)
		assert.True(t, on, v)
	}
	for _, v := range []string{"off", "false", "0", "no", ""} {
		on, err := ParseDisplay(v)
		assert.NoError(t, err)
		assert.False(t, on, v)
	}
}
