package cmd

import (
	"os"
	"strings"

	"github.com/nanovms/kforge/types"
)

// EnvConfig merges the variables the kernel Makefile understands: BOARD,
// MODE, GUI, TEST and DISASM.
type EnvConfig struct {
	lookup func(string) (string, bool)
}

// NewEnvConfig returns an EnvConfig reading from lookup. nil reads the
// process environment.
func NewEnvConfig(lookup func(string) (string, bool)) *EnvConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvConfig{lookup: lookup}
}

// MergeToConfig overrides configuration with the variables that are set.
func (e *EnvConfig) MergeToConfig(c *types.Config) error {
	if v, ok := e.get("BOARD"); ok {
		c.Board = v
	}
	if v, ok := e.get("MODE"); ok {
		c.Mode = v
	}
	if v, ok := e.get("GUI"); ok {
		c.Display = v
	}
	if v, ok := e.lookup("TEST"); ok {
		c.Test = v
	}
	if v, ok := e.get("DISASM"); ok {
		c.DisasmFlags = strings.Fields(v)
	}
	return nil
}

func (e *EnvConfig) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
