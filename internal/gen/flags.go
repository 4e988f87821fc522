package gen

import (
	"path"
	"slices"
	"strings"

	"github.com/kiln-build/kiln/internal/graph"
)

// compileFlags flattens an effective settings bag into gcc-style
// compiler arguments, preserving the bag's ordering.
func compileFlags(s graph.Settings) []string {
	flags := slices.Clone(s.Cflags)
	if s.OptLevel != "" {
		flags = append(flags, "-O"+s.OptLevel)
	}
	for _, def := range s.Defines {
		flags = append(flags, "-D"+def)
	}
	for _, inc := range s.IncludeDirs {
		flags = append(flags, "-I"+inc)
	}
	return flags
}

// linkFlags flattens linker inputs from an effective settings bag.
func linkFlags(s graph.Settings) []string {
	flags := slices.Clone(s.Ldflags)
	for _, lib := range s.Libraries {
		flags = append(flags, "-l"+lib)
	}
	return flags
}

// objectPath maps a source path to a stable object path under the
// target's object directory. Roots and drive colons are stripped so the
// result stays inside the build tree on every platform.
func objectPath(targetName, src string) string {
	rel := strings.ReplaceAll(src, `\`, "/")
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.ReplaceAll(rel, ":", "")
	return path.Join("obj", targetName+".dir", rel) + ".o"
}
