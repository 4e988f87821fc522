package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-build/kiln/internal/flavor"
	"github.com/kiln-build/kiln/internal/graph"
)

func sampleInput() *Input {
	return &Input{
		Targets: []ResolvedTarget{
			{
				Name:    "core",
				Type:    graph.TypeStaticLibrary,
				Sources: []string{"src/core.c", "src/util.c"},
				Settings: map[string]graph.Settings{
					"Debug":   {Defines: []string{"DEBUG"}, Cflags: []string{"-g"}},
					"Release": {Defines: []string{"NDEBUG"}, OptLevel: "2"},
				},
			},
			{
				Name:         "app",
				Type:         graph.TypeExecutable,
				Sources:      []string{"src/main.c"},
				Dependencies: []string{"core"},
				Settings: map[string]graph.Settings{
					"Debug":   {IncludeDirs: []string{"include"}, Libraries: []string{"m"}},
					"Release": {IncludeDirs: []string{"include"}, Libraries: []string{"m"}},
				},
			},
		},
		Configurations: []string{"Debug", "Release"},
		CC:             "cc",
		CXX:            "c++",
	}
}

func TestNewDispatch(t *testing.T) {
	for _, format := range Formats() {
		g, err := New(format, flavor.Linux, fakeLocator{})
		require.NoError(t, err)
		assert.Equal(t, format, g.Name())
	}
}

func TestNewUnsupportedFormat(t *testing.T) {
	_, err := New("xcode", flavor.Mac, nil)
	var formatErr *UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "xcode", formatErr.Format)
	assert.Equal(t, Formats(), formatErr.Known)
}

func TestDecorate(t *testing.T) {
	tests := []struct {
		name       string
		targetType string
		flavor     string
		bare       bool
		want       string
	}{
		{"app", graph.TypeExecutable, flavor.Linux, false, "app"},
		{"app", graph.TypeExecutable, flavor.Windows, false, "app.exe"},
		{"core", graph.TypeStaticLibrary, flavor.Linux, false, "libcore.a"},
		{"core", graph.TypeStaticLibrary, flavor.Windows, false, "core.lib"},
		{"core", graph.TypeSharedLibrary, flavor.Linux, false, "libcore.so"},
		{"core", graph.TypeSharedLibrary, flavor.Mac, false, "libcore.dylib"},
		{"core", graph.TypeSharedLibrary, "darwin", false, "libcore.dylib"},
		{"app", graph.TypeExecutable, "win32", false, "app.exe"},
		{"core", graph.TypeSharedLibrary, flavor.Windows, false, "core.dll"},
		{"docs", graph.TypeNone, flavor.Linux, false, "docs"},
		{"core", graph.TypeSharedLibrary, flavor.Linux, true, "core"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decorate(tt.name, tt.targetType, tt.flavor, tt.bare),
			"decorate(%q, %q, %q, %v)", tt.name, tt.targetType, tt.flavor, tt.bare)
	}
}

func TestCompileFlags(t *testing.T) {
	s := graph.Settings{
		Cflags:      []string{"-Wall"},
		OptLevel:    "2",
		Defines:     []string{"NDEBUG"},
		IncludeDirs: []string{"include"},
	}
	assert.Equal(t, []string{"-Wall", "-O2", "-DNDEBUG", "-Iinclude"}, compileFlags(s))
}

func TestLinkFlags(t *testing.T) {
	s := graph.Settings{
		Ldflags:   []string{"-rdynamic"},
		Libraries: []string{"m", "dl"},
	}
	assert.Equal(t, []string{"-rdynamic", "-lm", "-ldl"}, linkFlags(s))
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "obj/app.dir/src/main.c.o", objectPath("app", "src/main.c"))
	assert.Equal(t, "obj/app.dir/abs/main.c.o", objectPath("app", "/abs/main.c"))
	assert.Equal(t, "obj/app.dir/C/src/main.c.o", objectPath("app", `C:\src\main.c`))
}
