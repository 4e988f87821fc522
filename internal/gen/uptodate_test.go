package gen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-build/kiln/internal/flavor"
)

// stubTool substitutes the tool runner for one test and records the
// arguments of the last invocation.
func stubTool(t *testing.T, res *BuildResult, err error) *[]string {
	t.Helper()
	var lastArgs []string
	orig := runTool
	runTool = func(dir, tool string, args ...string) (*BuildResult, error) {
		lastArgs = args
		return res, err
	}
	t.Cleanup(func() { runTool = orig })
	return &lastArgs
}

func TestNinjaIsUpToDate(t *testing.T) {
	g := &NinjaGen{flavor: flavor.Linux}

	t.Run("no work marker", func(t *testing.T) {
		args := stubTool(t, &BuildResult{Stdout: "ninja: Entering directory `out/Debug'\nninja: no work to do.\n"}, nil)
		upToDate, err := g.IsUpToDate("out/Debug", Default)
		require.NoError(t, err)
		assert.True(t, upToDate)
		// The probe must not kick off a parallel build.
		assert.Contains(t, *args, "-j")
	})

	t.Run("work performed", func(t *testing.T) {
		stubTool(t, &BuildResult{Stdout: "[1/2] CC obj/app.dir/src/main.c.o\n[2/2] LINK app\n"}, nil)
		upToDate, err := g.IsUpToDate("out/Debug", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("tool failure is not up to date", func(t *testing.T) {
		res := &BuildResult{ExitCode: 1, Stderr: "ninja: error: loading 'build.ninja'"}
		stubTool(t, res, &ExternalToolFailure{Tool: "ninja", Result: res})
		upToDate, err := g.IsUpToDate("out/Debug", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("start failure propagates", func(t *testing.T) {
		stubTool(t, nil, fmt.Errorf("failed to invoke ninja: executable file not found"))
		_, err := g.IsUpToDate("out/Debug", Default)
		assert.Error(t, err)
	})
}

func TestMakeIsUpToDate(t *testing.T) {
	g := &MakeGen{flavor: flavor.Linux}

	t.Run("phony goal wording", func(t *testing.T) {
		args := stubTool(t, &BuildResult{Stdout: "make: Nothing to be done for 'all'.\n"}, nil)
		upToDate, err := g.IsUpToDate("build", All)
		require.NoError(t, err)
		assert.True(t, upToDate)
		assert.Contains(t, *args, "-j")
	})

	t.Run("file goal wording", func(t *testing.T) {
		stubTool(t, &BuildResult{Stdout: "make: 'app' is up to date.\n"}, nil)
		upToDate, err := g.IsUpToDate("build", Selector("app"))
		require.NoError(t, err)
		assert.True(t, upToDate)
	})

	t.Run("work performed", func(t *testing.T) {
		stubTool(t, &BuildResult{Stdout: "cc -g -c src/main.c -o ...\n"}, nil)
		upToDate, err := g.IsUpToDate("build", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("tool failure is not up to date", func(t *testing.T) {
		res := &BuildResult{ExitCode: 2, Stderr: "make: *** No rule to make target 'app'."}
		stubTool(t, res, &ExternalToolFailure{Tool: "make", Result: res})
		upToDate, err := g.IsUpToDate("build", Selector("app"))
		require.NoError(t, err)
		assert.False(t, upToDate)
	})
}

func TestMSVSIsUpToDate(t *testing.T) {
	g := &MSVSGen{locator: fakeLocator{path: "msbuild"}}

	t.Run("no compile or link tasks", func(t *testing.T) {
		args := stubTool(t, &BuildResult{Stdout: "Build succeeded.\n    0 Warning(s)\n    0 Error(s)\n"}, nil)
		upToDate, err := g.IsUpToDate("build", Default)
		require.NoError(t, err)
		assert.True(t, upToDate)
		assert.Contains(t, *args, "/m:1")
	})

	t.Run("compile task ran", func(t *testing.T) {
		stubTool(t, &BuildResult{Stdout: "ClCompile:\n  main.c\nBuild succeeded.\n"}, nil)
		upToDate, err := g.IsUpToDate("build", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("link task ran", func(t *testing.T) {
		stubTool(t, &BuildResult{Stdout: "Link:\n  app.vcxproj -> app.exe\nBuild succeeded.\n"}, nil)
		upToDate, err := g.IsUpToDate("build", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("tool failure is not up to date", func(t *testing.T) {
		res := &BuildResult{ExitCode: 1, Stderr: "MSBUILD : error MSB1009"}
		stubTool(t, res, &ExternalToolFailure{Tool: "msbuild", Result: res})
		upToDate, err := g.IsUpToDate("build", Default)
		require.NoError(t, err)
		assert.False(t, upToDate)
	})

	t.Run("missing toolchain propagates", func(t *testing.T) {
		missing := &MSVSGen{locator: fakeLocator{err: &ToolchainNotFoundError{Tool: "msbuild"}}}
		_, err := missing.IsUpToDate("build", Default)
		var toolErr *ToolchainNotFoundError
		assert.ErrorAs(t, err, &toolErr)
	})
}
