// Package loader reads kiln.toml target descriptions into the target
// graph model. Source globs are expanded relative to the description
// file; includes pull in further description files, local or remote.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/kiln-build/kiln/internal/graph"
)

// DefaultFileName is the description file looked up when none is given.
const DefaultFileName = "kiln.toml"

type document struct {
	Includes []string    `toml:"includes"`
	Targets  []targetDoc `toml:"target"`
}

type targetDoc struct {
	Name                 string                    `toml:"name"`
	Type                 string                    `toml:"type"`
	Sources              []string                  `toml:"sources"`
	Dependencies         []string                  `toml:"dependencies"`
	Settings             graph.Settings            `toml:"settings"`
	Configurations       map[string]graph.Settings `toml:"configurations"`
	Conditions           []conditionDoc            `toml:"conditions"`
	DefaultConfiguration string                    `toml:"default_configuration"`
}

type conditionDoc struct {
	When     string         `toml:"when"`
	Settings graph.Settings `toml:"settings"`
}

// Load reads the description file at path plus everything it includes
// and returns the declared targets in declaration order. Remote
// includes are fetched into <dir(path)>/build/_includes.
func Load(path string) ([]*graph.Target, error) {
	seen := make(map[string]bool)
	return load(path, seen)
}

func load(path string, seen map[string]bool) ([]*graph.Target, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[abs] {
		// Diamond includes are fine; each file contributes once.
		return nil, nil
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, fmt.Errorf("%s: %s", path, derr.String())
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(abs)

	var targets []*graph.Target
	for _, include := range doc.Includes {
		includePath, err := resolveInclude(include, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", path, include, err)
		}
		included, err := load(includePath, seen)
		if err != nil {
			return nil, err
		}
		targets = append(targets, included...)
	}

	for _, td := range doc.Targets {
		t, err := buildTarget(td, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: target %q: %w", path, td.Name, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func buildTarget(td targetDoc, dir string) (*graph.Target, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if td.Type == "" {
		td.Type = graph.TypeExecutable
	}
	if !graph.ValidType(td.Type) {
		return nil, fmt.Errorf("unknown type %q, expected one of %v", td.Type, graph.KnownTypes)
	}

	sources, err := expandSources(td.Sources, dir)
	if err != nil {
		return nil, err
	}

	conditions := make([]graph.Condition, 0, len(td.Conditions))
	for _, c := range td.Conditions {
		if c.When == "" {
			return nil, fmt.Errorf("condition without a when expression")
		}
		conditions = append(conditions, graph.Condition{When: c.When, Settings: c.Settings})
	}

	return &graph.Target{
		Name:                 td.Name,
		Type:                 td.Type,
		Sources:              sources,
		Dependencies:         td.Dependencies,
		Settings:             td.Settings,
		Configurations:       td.Configurations,
		Conditions:           conditions,
		DefaultConfiguration: td.DefaultConfiguration,
	}, nil
}

// expandSources resolves doublestar patterns relative to dir. Plain
// paths pass through unexpanded so a typo surfaces later as a missing
// file instead of silently producing an empty target. A source listed
// literally and matched again by a glob contributes once, at its first
// position; duplicate build statements are a hard error for ninja.
func expandSources(patterns []string, dir string) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)
	add := func(src string) {
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			add(filepath.ToSlash(pattern))
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(dir), pattern)
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(match)
		}
	}
	return sources, nil
}

func hasGlobMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
