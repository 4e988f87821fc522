// Package graph holds the target data model, the resolved target graph,
// and the deterministic topological sort over it.
package graph

import "slices"

// Target types.
const (
	TypeExecutable    = "executable"
	TypeStaticLibrary = "static_library"
	TypeSharedLibrary = "shared_library"
	TypeNone          = "none" // aggregate target, produces no artifact
)

// KnownTypes lists the valid target types in display order.
var KnownTypes = []string{TypeExecutable, TypeStaticLibrary, TypeSharedLibrary, TypeNone}

// ValidType reports whether t is one of the known target types.
func ValidType(t string) bool {
	return slices.Contains(KnownTypes, t)
}

// Settings is one bag of build settings. List-valued fields append when
// bags are layered; scalar fields override.
type Settings struct {
	Defines     []string `toml:"defines"`
	IncludeDirs []string `toml:"include_dirs"`
	Cflags      []string `toml:"cflags"`
	Ldflags     []string `toml:"ldflags"`
	Libraries   []string `toml:"libraries"`
	OptLevel    string   `toml:"opt_level"`
}

// Clone returns a deep copy, so merged results never alias target state.
func (s Settings) Clone() Settings {
	return Settings{
		Defines:     slices.Clone(s.Defines),
		IncludeDirs: slices.Clone(s.IncludeDirs),
		Cflags:      slices.Clone(s.Cflags),
		Ldflags:     slices.Clone(s.Ldflags),
		Libraries:   slices.Clone(s.Libraries),
		OptLevel:    s.OptLevel,
	}
}

// Equal compares bags field by field. nil and empty lists compare equal.
func (s Settings) Equal(o Settings) bool {
	return slices.Equal(s.Defines, o.Defines) &&
		slices.Equal(s.IncludeDirs, o.IncludeDirs) &&
		slices.Equal(s.Cflags, o.Cflags) &&
		slices.Equal(s.Ldflags, o.Ldflags) &&
		slices.Equal(s.Libraries, o.Libraries) &&
		s.OptLevel == o.OptLevel
}

// Condition is a settings bag guarded by a boolean expression over the
// run's flavor, configuration name and defines. Conditions are ordered:
// they layer in declaration order.
type Condition struct {
	When     string
	Settings Settings
}

// Target is a single buildable unit in the graph.
type Target struct {
	Name                 string
	Type                 string
	Sources              []string
	Dependencies         []string
	Settings             Settings            // base bag
	Configurations       map[string]Settings // per-configuration overrides
	Conditions           []Condition
	DefaultConfiguration string
}
