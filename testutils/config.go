package testutils

import (
	"testing"

	"github.com/nanovms/kforge/types"
)

// NewConfig returns a frozen default configuration rooted at root. mutate,
// when given, edits the configuration before it is frozen.
func NewConfig(t *testing.T, root string, mutate ...func(c *types.Config)) types.BuildConfig {
	t.Helper()
	c := types.NewConfig()
	c.Root = root
	for _, m := range mutate {
		m(c)
	}
	cfg, err := c.Freeze()
	if err != nil {
		t.Fatalf("freezing config: %v", err)
	}
	return cfg
}
