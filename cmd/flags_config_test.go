package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nanovms/kforge/cmd"
	"github.com/nanovms/kforge/types"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFlags(t *testing.T) {
	flagSet := newConfigFlagSet()

	flagSet.Set("config", " test.json ")

	configFlags := cmd.NewConfigCommandFlags(flagSet)

	assert.Equal(t, configFlags.Config, "test.json")
}

func TestConfigFlagsMergeToConfig(t *testing.T) {
	t.Setenv("KFORGE_DEFAULT_CONFIG", "")

	expected := &types.Config{
		Board:       "qemu-minimal",
		Mode:        types.ModeDebug,
		DisasmFlags: []string{"-d"},
		Tools: types.ToolsConfig{
			Objcopy: "llvm-objcopy",
		},
		RunConfig: types.RunConfig{
			GdbPort: 4321,
		},
	}
	configFileName := writeConfigToFile(t, expected)

	flagSet := newConfigFlagSet()
	flagSet.Set("config", configFileName)
	configFlags := cmd.NewConfigCommandFlags(flagSet)

	actual := &types.Config{}

	err := configFlags.MergeToConfig(actual)

	assert.Nil(t, err)
	assert.Equal(t, expected, actual)
}

func TestConfigFlagsKeepDefaults(t *testing.T) {
	configFileName := writeConfigToFile(t, &types.Config{Test: "hello"})

	flagSet := newConfigFlagSet()
	flagSet.Set("config", configFileName)

	c := types.NewConfig()
	require.NoError(t, cmd.NewConfigCommandFlags(flagSet).MergeToConfig(c))

	assert.Equal(t, "hello", c.Test)
	assert.Equal(t, types.DefaultBoard, c.Board)
	assert.Equal(t, "rust-objcopy", c.Tools.Objcopy)
}

func TestConfigFlagsDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("KFORGE_DEFAULT_CONFIG", writeConfigToFile(t, &types.Config{Board: "qemu-minimal"}))

	c := types.NewConfig()
	require.NoError(t, cmd.NewConfigCommandFlags(newConfigFlagSet()).MergeToConfig(c))

	assert.Equal(t, "qemu-minimal", c.Board)
}

func TestConfigFlagsErrors(t *testing.T) {
	dir := t.TempDir()

	flagSet := newConfigFlagSet()
	flagSet.Set("config", filepath.Join(dir, "missing.json"))
	err := cmd.NewConfigCommandFlags(flagSet).MergeToConfig(types.NewConfig())
	assert.Contains(t, err.Error(), "error reading config")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	flagSet.Set("config", bad)
	err = cmd.NewConfigCommandFlags(flagSet).MergeToConfig(types.NewConfig())
	assert.Contains(t, err.Error(), "error config")
}

func newConfigFlagSet() (flagSet *pflag.FlagSet) {
	flagSet = pflag.NewFlagSet("test", 0)

	cmd.PersistConfigCommandFlags(flagSet)
	return
}

func writeConfigToFile(t *testing.T, c *types.Config) string {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "kforge.json")
	require.NoError(t, os.WriteFile(file, data, 0644))
	return file
}
