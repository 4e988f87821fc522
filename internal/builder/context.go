// Package builder orchestrates one kiln run: graph resolution,
// configuration merging, build file generation and, optionally,
// invoking the underlying build tool.
package builder

import (
	"github.com/kiln-build/kiln/internal/gen"
)

// RunContext carries everything run-scoped. It is assembled once by the
// CLI; nothing below it reads ambient process state, so two runs with
// equal contexts produce identical build files.
type RunContext struct {
	// Flavor is the resolved platform flavor.
	Flavor string

	// Configurations to generate, in order. The first one is the build
	// invocation default for single-location backends.
	Configurations []string

	// Format names the generator backend.
	Format string

	// NoParallel limits merging to one goroutine and passes single-job
	// flags to the underlying tool.
	NoParallel bool

	// Defines is the KEY=VALUE map exposed to condition expressions.
	Defines map[string]string

	// Compiler commands baked into the generated files.
	CC  string
	CXX string

	// BuildDir is where build files land.
	BuildDir string

	// Check makes regeneration a verification: any drift from the files
	// on disk fails instead of rewriting them.
	Check bool

	// Locale records an LC_ALL override for child processes. File
	// comparisons are byte-based, so it never affects generation.
	Locale string

	// Locator finds MSBuild for the msvs backend. Nil selects the
	// production Visual Studio setup probe.
	Locator gen.MSBuildLocator
}
