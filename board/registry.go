package board

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/nanovms/kforge/types"
)

//go:embed boards.yaml
var builtin []byte

// Registry maps board names to profiles.
type Registry struct {
	defaultName string
	profiles    map[string]Profile
}

type profileFile struct {
	Default string    `yaml:"default"`
	Boards  []Profile `yaml:"boards"`
}

// Default returns the built-in boards.
func Default() *Registry {
	r, err := Load(bytes.NewReader(builtin))
	if err != nil {
		panic(err)
	}
	return r
}

// Load parses a YAML profile set.
func Load(in io.Reader) (*Registry, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "reading board profiles")
	}

	var f profileFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing board profiles")
	}

	r := &Registry{defaultName: f.Default, profiles: map[string]Profile{}}
	for i := range f.Boards {
		p := f.Boards[i]
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "board #%d", i)
		}
		if _, dup := r.profiles[p.Name]; dup {
			return nil, errors.Errorf("board %s defined twice", p.Name)
		}
		r.profiles[p.Name] = p
	}
	if r.defaultName != "" {
		if _, ok := r.profiles[r.defaultName]; !ok {
			return nil, errors.Errorf("default board %s is not defined", r.defaultName)
		}
	}
	return r, nil
}

// LoadFile parses a YAML profile file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening board profiles")
	}
	defer f.Close()

	r, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return r, nil
}

// Merge returns a registry holding r's profiles overridden by other's.
// other's default wins when set.
func (r *Registry) Merge(other *Registry) *Registry {
	m := &Registry{defaultName: r.defaultName, profiles: map[string]Profile{}}
	for n, p := range r.profiles {
		m.profiles[n] = p
	}
	if other == nil {
		return m
	}
	for n, p := range other.profiles {
		m.profiles[n] = p
	}
	if other.defaultName != "" {
		m.defaultName = other.defaultName
	}
	return m
}

// DefaultName is the board used when none is requested.
func (r *Registry) DefaultName() string {
	if r.defaultName == "" {
		return types.DefaultBoard
	}
	return r.defaultName
}

// Lookup returns a copy of the named profile. An empty name selects the
// default board.
func (r *Registry) Lookup(name string) (Profile, error) {
	if name == "" {
		name = r.DefaultName()
	}
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, types.NewError(types.KindUnknownBoard, nil, "no board named %q", name)
	}
	return p.Clone(), nil
}

// Names returns the board names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
