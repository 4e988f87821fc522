// Package gen contains the generator backends. Each backend turns a
// resolved, configuration-merged target graph into build files for one
// underlying tool and knows how to invoke that tool and locate its
// artifacts.
package gen

import (
	"github.com/kiln-build/kiln/internal/flavor"
	"github.com/kiln-build/kiln/internal/graph"
)

// Format names accepted by New.
const (
	FormatNinja = "ninja"
	FormatMake  = "make"
	FormatMSVS  = "msvs"
)

// Formats returns the recognized format names in display order.
func Formats() []string {
	return []string{FormatNinja, FormatMake, FormatMSVS}
}

// Selector designates what to build: the tool's default target,
// everything, or one named target.
type Selector string

const (
	Default Selector = "__default__"
	All     Selector = "__all__"
)

// ResolvedTarget is one target with its effective settings per
// configuration, as produced by the merger.
type ResolvedTarget struct {
	Name         string
	Type         string
	Sources      []string
	Dependencies []string
	Settings     map[string]graph.Settings // configuration -> effective bag
}

// Input is everything a backend needs for one generation. Backends hold
// no target state of their own: passing the same Input twice yields the
// same output files.
type Input struct {
	Targets        []ResolvedTarget // dependencies-first build order
	Configurations []string
	CC             string
	CXX            string
}

func (in *Input) target(name string) (ResolvedTarget, bool) {
	for _, t := range in.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return ResolvedTarget{}, false
}

// OutputFile is one generated build file. Path is relative to the build
// directory; the orchestrator performs the write so that regeneration
// can be compared byte for byte against the previous run.
type OutputFile struct {
	Path    string
	Content string
}

// ArtifactOptions adjust BuiltArtifactPath.
type ArtifactOptions struct {
	Configuration string // configuration subdirectory; backend default when empty
	Bare          bool   // no prefix/suffix decoration
}

// BuildResult carries the outcome of one build-tool invocation with both
// streams fully captured.
type BuildResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Generator is the capability set every backend implements.
type Generator interface {
	Name() string

	// Generate produces the backend's build files. Deterministic: no
	// wall-clock, no random identifiers, no process-specific paths.
	Generate(in *Input) ([]OutputFile, error)

	// BuiltArtifactPath returns where the compiled artifact for a target
	// will land, relative to the build directory.
	BuiltArtifactPath(name, targetType string, opts ArtifactOptions) string

	// BuildLocation returns the directory the underlying tool must be
	// pointed at for one configuration, given the build directory.
	BuildLocation(dir, configuration string) string

	// InvokeBuild runs the underlying tool. A non-zero exit is returned
	// as *ExternalToolFailure alongside the captured result.
	InvokeBuild(location string, sel Selector, noParallel bool) (*BuildResult, error)

	// IsUpToDate re-invokes the build single-job and inspects the tool's
	// "no work" signal. Unexpected output means not up to date.
	IsUpToDate(location string, sel Selector) (bool, error)
}

// New maps a format name to a backend. Unrecognized names fail with
// *UnsupportedFormatError; there is no fallback format.
func New(format, flv string, locator MSBuildLocator) (Generator, error) {
	switch format {
	case FormatNinja:
		return &NinjaGen{flavor: flv}, nil
	case FormatMake:
		return &MakeGen{flavor: flv}, nil
	case FormatMSVS:
		if locator == nil {
			locator = VSSetupLocator{}
		}
		return &MSVSGen{locator: locator}, nil
	default:
		return nil, &UnsupportedFormatError{Format: format, Known: Formats()}
	}
}

// decorate applies platform artifact naming conventions: executable
// suffix, library prefix/suffix per flavor. The resolver passes raw
// identifiers through unchanged, so the host spellings "darwin" and
// "win32" are accepted alongside the canonical flavors.
func decorate(name, targetType, flv string, bare bool) string {
	if bare {
		return name
	}
	windows := flv == flavor.Windows || flv == "win32"
	switch targetType {
	case graph.TypeExecutable:
		if windows {
			return name + ".exe"
		}
		return name
	case graph.TypeStaticLibrary:
		if windows {
			return name + ".lib"
		}
		return "lib" + name + ".a"
	case graph.TypeSharedLibrary:
		if windows {
			return name + ".dll"
		}
		if flv == flavor.Mac || flv == "darwin" {
			return "lib" + name + ".dylib"
		}
		return "lib" + name + ".so"
	default:
		return name
	}
}
