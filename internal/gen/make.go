package gen

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/kiln-build/kiln/internal/graph"
)

// makeUpToDate are the signals make prints for a null build. GNU make
// wording differs between phony and file targets, so both are accepted.
var makeUpToDate = []string{"Nothing to be done", "is up to date"}

// MakeGen emits a single Makefile; the configuration is selected at
// invocation time through the BUILDTYPE variable, with artifacts under
// out/$(BUILDTYPE)/.
type MakeGen struct {
	flavor string
}

func (g *MakeGen) Name() string { return FormatMake }

func (g *MakeGen) BuildLocation(dir, configuration string) string {
	// One Makefile covers every configuration.
	return dir
}

func (g *MakeGen) BuiltArtifactPath(name, targetType string, opts ArtifactOptions) string {
	cfg := opts.Configuration
	if cfg == "" {
		cfg = "Default"
	}
	return path.Join("out", cfg, decorate(name, targetType, g.flavor, opts.Bare))
}

func (g *MakeGen) Generate(in *Input) ([]OutputFile, error) {
	if len(in.Configurations) == 0 {
		return nil, fmt.Errorf("make generator needs at least one configuration")
	}
	return []OutputFile{{Path: "Makefile", Content: g.makefile(in)}}, nil
}

// makeVar sanitizes a target name for use inside a make variable name.
func makeVar(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (g *MakeGen) makefile(in *Input) string {
	var sb strings.Builder

	writeln(&sb, "# Generated build file, do not edit.")
	writeln(&sb, "BUILDTYPE ?= ", in.Configurations[0])
	writeln(&sb, "builddir := out/$(BUILDTYPE)")
	writeln(&sb, "CC ?= ", in.CC)
	writeln(&sb, "CXX ?= ", in.CXX)
	writeln(&sb)

	// Per-configuration flag blocks.
	for _, cfg := range in.Configurations {
		writeln(&sb, "ifeq ($(BUILDTYPE),", cfg, ")")
		for _, t := range in.Targets {
			if t.Type == graph.TypeNone {
				continue
			}
			settings := t.Settings[cfg]
			v := makeVar(t.Name)
			writeln(&sb, "cflags_", v, " := ", strings.Join(compileFlags(settings), " "))
			writeln(&sb, "ldflags_", v, " := ", strings.Join(linkFlags(settings), " "))
		}
		writeln(&sb, "endif")
	}
	writeln(&sb)

	var artifacts []string
	for _, t := range in.Targets {
		artifacts = append(artifacts, "$(builddir)/"+decorate(t.Name, t.Type, g.flavor, false))
	}
	writeln(&sb, "all: ", strings.Join(artifacts, " "))
	writeln(&sb, ".PHONY: all")
	writeln(&sb)

	for i, t := range in.Targets {
		artifact := artifacts[i]
		v := makeVar(t.Name)

		// Phony alias so `make <target>` works regardless of decoration.
		writeln(&sb, t.Name, ": ", artifact)
		writeln(&sb, ".PHONY: ", t.Name)

		if t.Type == graph.TypeNone {
			writeln(&sb, artifact, ": ", strings.Join(g.depArtifacts(in, t), " "))
			writeln(&sb, "\t@touch $@")
			writeln(&sb)
			continue
		}

		var objs []string
		for _, src := range t.Sources {
			obj := "$(builddir)/" + objectPath(t.Name, src)
			objs = append(objs, obj)
			writeln(&sb, obj, ": ", src)
			writeln(&sb, "\t@mkdir -p $(dir $@)")
			writeln(&sb, "\t$(CC) $(cflags_", v, ") -c $< -o $@")
		}

		// Dependency artifacts are linker inputs, not just prerequisites:
		// an executable must link the libraries it depends on.
		linkInputs := strings.Join(append(slices.Clone(objs), g.depArtifacts(in, t)...), " ")
		writeln(&sb, artifact, ": ", linkInputs)
		switch t.Type {
		case graph.TypeStaticLibrary:
			writeln(&sb, "\tar rcs $@ ", strings.Join(objs, " "))
		case graph.TypeSharedLibrary:
			writeln(&sb, "\t$(CC) -shared -o $@ ", linkInputs, " $(ldflags_", v, ")")
		default:
			writeln(&sb, "\t$(CC) -o $@ ", linkInputs, " $(ldflags_", v, ")")
		}
		writeln(&sb)
	}

	return sb.String()
}

func (g *MakeGen) depArtifacts(in *Input, t ResolvedTarget) []string {
	var deps []string
	for _, dep := range t.Dependencies {
		dt, ok := in.target(dep)
		if !ok {
			continue
		}
		deps = append(deps, "$(builddir)/"+decorate(dt.Name, dt.Type, g.flavor, false))
	}
	return deps
}

func (g *MakeGen) InvokeBuild(location string, sel Selector, noParallel bool) (*BuildResult, error) {
	return runTool("", "make", makeArgs(location, sel, noParallel)...)
}

func makeArgs(location string, sel Selector, noParallel bool) []string {
	args := []string{"-C", location}
	if noParallel {
		args = append(args, "-j", "1")
	}
	switch sel {
	case Default:
		// make's default goal, which is the `all` rule.
	case All:
		args = append(args, "all")
	default:
		args = append(args, string(sel))
	}
	return args
}

func (g *MakeGen) IsUpToDate(location string, sel Selector) (bool, error) {
	res, err := g.InvokeBuild(location, sel, true)
	if err != nil {
		var toolErr *ExternalToolFailure
		if errors.As(err, &toolErr) {
			return false, nil
		}
		return false, err
	}
	for _, marker := range makeUpToDate {
		if strings.Contains(res.Stdout, marker) {
			return true, nil
		}
	}
	return false, nil
}
