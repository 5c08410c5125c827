package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nanovms/kforge/types"
	"github.com/spf13/pflag"
)

// ConfigCommandFlags handles config file path flag and build configuration from the file
type ConfigCommandFlags struct {
	Config string
}

// MergeToConfig reads a json configuration file
func (flags *ConfigCommandFlags) MergeToConfig(c *types.Config) (err error) {
	file := flags.Config
	if file == "" {
		file = os.Getenv("KFORGE_DEFAULT_CONFIG")
	}
	if file == "" {
		return
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading config: %v", err)
	}

	if err = json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error config: %v", err)
	}

	return
}

// NewConfigCommandFlags returns an instance of ConfigCommandFlags
func NewConfigCommandFlags(cmdFlags *pflag.FlagSet) (flags *ConfigCommandFlags) {
	flags = &ConfigCommandFlags{}

	flags.Config, _ = cmdFlags.GetString("config")
	flags.Config = strings.TrimSpace(flags.Config)

	return
}

// PersistConfigCommandFlags append a command the config file flag
func PersistConfigCommandFlags(cmdFlags *pflag.FlagSet) {
	cmdFlags.StringP("config", "c", "", "kforge config file")
}
