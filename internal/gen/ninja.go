package gen

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/kiln-build/kiln/internal/graph"
)

// ninjaNoWork is the fixed-point signal ninja prints when a build has
// nothing to do.
const ninjaNoWork = "ninja: no work to do."

var ninjaPathEscaper = strings.NewReplacer(":", "$:", " ", "$ ")

func ninjaQuote(s string) string { return ninjaPathEscaper.Replace(s) }

// NinjaGen emits one build.ninja per configuration under
// out/<configuration>/.
type NinjaGen struct {
	flavor string
}

func (g *NinjaGen) Name() string { return FormatNinja }

func (g *NinjaGen) BuildLocation(dir, configuration string) string {
	return filepath.Join(dir, "out", configuration)
}

func (g *NinjaGen) BuiltArtifactPath(name, targetType string, opts ArtifactOptions) string {
	cfg := opts.Configuration
	if cfg == "" {
		cfg = "Default"
	}
	return filepath.Join("out", cfg, decorate(name, targetType, g.flavor, opts.Bare))
}

func (g *NinjaGen) Generate(in *Input) ([]OutputFile, error) {
	files := make([]OutputFile, 0, len(in.Configurations))
	for _, cfg := range in.Configurations {
		files = append(files, OutputFile{
			Path:    path.Join("out", cfg, "build.ninja"),
			Content: g.buildFile(in, cfg),
		})
	}
	return files, nil
}

func (g *NinjaGen) buildFile(in *Input, cfg string) string {
	var sb strings.Builder

	writeln(&sb, "# Generated build file, do not edit.")
	writeln(&sb, "ninja_required_version = 1.1")
	writeln(&sb, "cc = ", in.CC)
	writeln(&sb, "cxx = ", in.CXX)
	writeln(&sb)

	write(&sb,
		`rule cc
  command = $cc $cflags -c $in -o $out
  description = CC $out
`)
	write(&sb,
		`rule ar
  command = ar rcs $out $in
  description = AR $out
`)
	write(&sb,
		`rule link
  command = $cc $ldflags -o $out $in
  description = LINK $out
`)
	write(&sb,
		`rule solink
  command = $cc -shared $ldflags -o $out $in
  description = SOLINK $out
`)
	writeln(&sb)

	var artifacts []string
	for _, t := range in.Targets {
		settings := t.Settings[cfg]
		artifact := decorate(t.Name, t.Type, g.flavor, false)
		artifacts = append(artifacts, artifact)

		if t.Type == graph.TypeNone {
			write(&sb, "build ", ninjaQuote(artifact), ": phony")
			for _, dep := range g.depInputs(in, t) {
				write(&sb, " ", dep)
			}
			writeln(&sb)
			continue
		}

		cflags := strings.Join(compileFlags(settings), " ")
		var objs []string
		for _, src := range t.Sources {
			obj := ninjaQuote(objectPath(t.Name, src))
			objs = append(objs, obj)
			writeln(&sb, "build ", obj, ": cc ", ninjaQuote(src))
			if cflags != "" {
				writeln(&sb, "  cflags = ", cflags)
			}
		}

		write(&sb, "build ", ninjaQuote(artifact), ": ")
		switch t.Type {
		case graph.TypeStaticLibrary:
			write(&sb, "ar")
			for _, obj := range objs {
				write(&sb, " ", obj)
			}
		case graph.TypeSharedLibrary:
			write(&sb, "solink")
			for _, input := range append(objs, g.depInputs(in, t)...) {
				write(&sb, " ", input)
			}
		default:
			write(&sb, "link")
			for _, input := range append(objs, g.depInputs(in, t)...) {
				write(&sb, " ", input)
			}
		}
		writeln(&sb)
		if t.Type != graph.TypeStaticLibrary {
			if ldflags := strings.Join(linkFlags(settings), " "); ldflags != "" {
				writeln(&sb, "  ldflags = ", ldflags)
			}
		}

		// Alias so `ninja <target>` works where decoration renamed the
		// artifact.
		if artifact != t.Name {
			writeln(&sb, "build ", ninjaQuote(t.Name), ": phony ", ninjaQuote(artifact))
		}
	}
	writeln(&sb)

	write(&sb, "build all: phony")
	for _, artifact := range artifacts {
		write(&sb, " ", ninjaQuote(artifact))
	}
	writeln(&sb)
	writeln(&sb, "default all")

	return sb.String()
}

// depInputs returns the build-graph inputs contributed by a target's
// dependencies: the decorated artifact for targets that produce one, the
// phony name for aggregates.
func (g *NinjaGen) depInputs(in *Input, t ResolvedTarget) []string {
	var inputs []string
	for _, dep := range t.Dependencies {
		dt, ok := in.target(dep)
		if !ok {
			continue
		}
		inputs = append(inputs, ninjaQuote(decorate(dt.Name, dt.Type, g.flavor, false)))
	}
	return inputs
}

func (g *NinjaGen) InvokeBuild(location string, sel Selector, noParallel bool) (*BuildResult, error) {
	return runTool("", "ninja", ninjaArgs(location, sel, noParallel)...)
}

func ninjaArgs(location string, sel Selector, noParallel bool) []string {
	args := []string{"-C", location}
	if noParallel {
		args = append(args, "-j", "1")
	}
	switch sel {
	case Default:
		// ninja's own default, which Generate points at "all".
	case All:
		args = append(args, "all")
	default:
		args = append(args, string(sel))
	}
	return args
}

func (g *NinjaGen) IsUpToDate(location string, sel Selector) (bool, error) {
	res, err := g.InvokeBuild(location, sel, true)
	if err != nil {
		var toolErr *ExternalToolFailure
		if errors.As(err, &toolErr) {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(res.Stdout, ninjaNoWork), nil
}
