package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-build/kiln/internal/gen"
	"github.com/kiln-build/kiln/internal/graph"
)

func testTargets() []*graph.Target {
	return []*graph.Target{
		{
			Name:    "app",
			Type:    graph.TypeExecutable,
			Sources: []string{"src/main.c"},
			Dependencies: []string{
				"core",
			},
			Configurations: map[string]graph.Settings{
				"Debug":   {Libraries: []string{"m"}},
				"Release": {Libraries: []string{"m"}},
			},
		},
		{
			Name:    "core",
			Type:    graph.TypeStaticLibrary,
			Sources: []string{"src/core.c"},
			Configurations: map[string]graph.Settings{
				"Debug":   {Defines: []string{"DEBUG"}},
				"Release": {Defines: []string{"NDEBUG"}, OptLevel: "2"},
			},
		},
	}
}

func testContext(dir string) RunContext {
	return RunContext{
		Flavor:         "linux",
		Configurations: []string{"Debug", "Release"},
		Format:         gen.FormatNinja,
		CC:             "cc",
		CXX:            "c++",
		BuildDir:       dir,
	}
}

func TestDriverRunWritesBuildFiles(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver(testContext(dir), testTargets())

	res, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "app"}, res.BuildOrder)
	assert.Equal(t, []string{"out/Debug/build.ninja", "out/Release/build.ninja"}, res.Written)
	assert.Empty(t, res.Unchanged)

	data, err := os.ReadFile(filepath.Join(dir, "out", "Debug", "build.ninja"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "build libcore.a: ar")
}

func TestDriverRerunSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver(testContext(dir), testTargets())
	_, err := d.Run()
	require.NoError(t, err)

	res, err := NewDriver(testContext(dir), testTargets()).Run()
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Equal(t, []string{"out/Debug/build.ninja", "out/Release/build.ninja"}, res.Unchanged)
}

func TestDriverCheckModeDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	_, err := NewDriver(testContext(dir), testTargets()).Run()
	require.NoError(t, err)

	// Clean regeneration passes.
	ctx := testContext(dir)
	ctx.Check = true
	_, err = NewDriver(ctx, testTargets()).Run()
	require.NoError(t, err)

	// A hand-edited build file fails.
	path := filepath.Join(dir, "out", "Debug", "build.ninja")
	require.NoError(t, os.WriteFile(path, []byte("tampered\n"), 0644))
	_, err = NewDriver(ctx, testTargets()).Run()
	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "out/Debug/build.ninja", drift.Path)
	assert.Contains(t, drift.Diff, "-tampered")
}

func TestDriverCycleAbortsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	targets := []*graph.Target{
		{Name: "a", Type: graph.TypeNone, Dependencies: []string{"b"}},
		{Name: "b", Type: graph.TypeNone, Dependencies: []string{"a"}},
	}
	ctx := testContext(dir)
	ctx.Configurations = []string{"Debug"}
	_, err := NewDriver(ctx, targets).Run()
	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDriverUnresolvedDependencyAborts(t *testing.T) {
	dir := t.TempDir()
	targets := []*graph.Target{
		{Name: "app", Type: graph.TypeExecutable, Dependencies: []string{"missing"}},
	}
	_, err := NewDriver(testContext(dir), targets).Run()
	var unresolved *graph.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "missing", unresolved.Dependency)
}

func TestDriverUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(dir)
	ctx.Format = "scons"
	_, err := NewDriver(ctx, testTargets()).Run()
	var formatErr *gen.UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestDriverNoConfigurations(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(dir)
	ctx.Configurations = nil
	_, err := NewDriver(ctx, testTargets()).Run()
	assert.Error(t, err)
}

func TestDriverNoParallelSameOutput(t *testing.T) {
	serialDir := t.TempDir()
	parallelDir := t.TempDir()

	serialCtx := testContext(serialDir)
	serialCtx.NoParallel = true
	_, err := NewDriver(serialCtx, testTargets()).Run()
	require.NoError(t, err)
	_, err = NewDriver(testContext(parallelDir), testTargets()).Run()
	require.NoError(t, err)

	for _, rel := range []string{"out/Debug/build.ninja", "out/Release/build.ninja"} {
		serial, err := os.ReadFile(filepath.Join(serialDir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		parallel, err := os.ReadFile(filepath.Join(parallelDir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, string(serial), string(parallel), rel)
	}
}

func TestDriverBuildBeforeRun(t *testing.T) {
	d := NewDriver(testContext(t.TempDir()), testTargets())
	_, err := d.Build(gen.Default)
	assert.Error(t, err)
	_, err = d.IsUpToDate(gen.Default)
	assert.Error(t, err)
}

func TestDriverArtifactPath(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver(testContext(dir), testTargets())
	_, err := d.Run()
	require.NoError(t, err)

	got, err := d.ArtifactPath("core", graph.TypeStaticLibrary)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "Debug", "libcore.a"), got)
}
