package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-build/kiln/internal/graph"
)

func sampleTarget() *graph.Target {
	return &graph.Target{
		Name: "app",
		Type: graph.TypeExecutable,
		Settings: graph.Settings{
			Defines: []string{"BASE"},
			Cflags:  []string{"-Wall"},
		},
		Configurations: map[string]graph.Settings{
			"Debug": {
				Defines: []string{"DEBUG"},
				Cflags:  []string{"-g"},
			},
			"Release": {
				Defines:  []string{"NDEBUG"},
				OptLevel: "2",
			},
		},
		Conditions: []graph.Condition{
			{
				When:     `flavor == "linux"`,
				Settings: graph.Settings{Libraries: []string{"dl"}, Defines: []string{"USE_DLOPEN"}},
			},
			{
				When:     `configuration == "Release"`,
				Settings: graph.Settings{OptLevel: "3"},
			},
		},
	}
}

func TestLayerSettings(t *testing.T) {
	dst := graph.Settings{Defines: []string{"A"}, Cflags: []string{"-Wall"}, OptLevel: "0"}
	layerSettings(&dst, graph.Settings{Defines: []string{"B"}, OptLevel: "2"})
	assert.Equal(t, []string{"A", "B"}, dst.Defines)
	assert.Equal(t, []string{"-Wall"}, dst.Cflags)
	assert.Equal(t, "2", dst.OptLevel)

	// A zero-valued scalar never clears an earlier layer.
	layerSettings(&dst, graph.Settings{})
	assert.Equal(t, "2", dst.OptLevel)
}

func TestMergeLayeringOrder(t *testing.T) {
	m := New("linux", nil)
	got, err := m.Merge(sampleTarget(), "Debug")
	require.NoError(t, err)

	// Lists append base-then-configuration-then-conditional, each
	// contributing its own relative order.
	assert.Equal(t, []string{"BASE", "DEBUG", "USE_DLOPEN"}, got.Defines)
	assert.Equal(t, []string{"-Wall", "-g"}, got.Cflags)
	assert.Equal(t, []string{"dl"}, got.Libraries)
	assert.Empty(t, got.OptLevel)
}

func TestMergeScalarOverride(t *testing.T) {
	m := New("mac", nil)
	got, err := m.Merge(sampleTarget(), "Release")
	require.NoError(t, err)

	// The conditional bag layers last, so its scalar wins.
	assert.Equal(t, "3", got.OptLevel)
	assert.Equal(t, []string{"BASE", "NDEBUG"}, got.Defines)
	assert.Empty(t, got.Libraries)
}

func TestMergeIdempotent(t *testing.T) {
	m := New("linux", nil)
	tgt := sampleTarget()

	first, err := m.Merge(tgt, "Debug")
	require.NoError(t, err)
	second, err := m.Merge(tgt, "Debug")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	// Results must not alias the target's own bags.
	first.Defines[0] = "CLOBBERED"
	assert.Equal(t, "BASE", tgt.Settings.Defines[0])
}

func TestMergeConfigurationNotFound(t *testing.T) {
	m := New("linux", nil)
	_, err := m.Merge(sampleTarget(), "Profiling")
	var cerr *ConfigurationNotFoundError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "app", cerr.Target)
	assert.Equal(t, "Profiling", cerr.Configuration)
}

func TestMergeDefaultConfigurationFallback(t *testing.T) {
	tgt := sampleTarget()
	tgt.DefaultConfiguration = "Debug"

	m := New("windows", nil)
	got, err := m.Merge(tgt, "Profiling")
	require.NoError(t, err)
	assert.Equal(t, []string{"BASE", "DEBUG"}, got.Defines)
}

func TestMergeEmptyConfigurationContributesNothing(t *testing.T) {
	tgt := sampleTarget()
	tgt.Configurations["Empty"] = graph.Settings{}

	m := New("windows", nil)
	got, err := m.Merge(tgt, "Empty")
	require.NoError(t, err)
	assert.Equal(t, []string{"BASE"}, got.Defines)
	assert.Equal(t, []string{"-Wall"}, got.Cflags)
}

func TestMergeDefinesInConditions(t *testing.T) {
	tgt := sampleTarget()
	tgt.Conditions = []graph.Condition{
		{
			When:     `defines["component"] == "shared"`,
			Settings: graph.Settings{Cflags: []string{"-fPIC"}},
		},
	}

	m := New("linux", map[string]string{"component": "shared"})
	got, err := m.Merge(tgt, "Debug")
	require.NoError(t, err)
	assert.Contains(t, got.Cflags, "-fPIC")

	m = New("linux", map[string]string{"component": "static"})
	got, err = m.Merge(tgt, "Debug")
	require.NoError(t, err)
	assert.NotContains(t, got.Cflags, "-fPIC")
}

func TestMergeBadCondition(t *testing.T) {
	tgt := sampleTarget()
	tgt.Conditions = []graph.Condition{{When: `flavor +`, Settings: graph.Settings{}}}

	m := New("linux", nil)
	_, err := m.Merge(tgt, "Debug")
	assert.ErrorContains(t, err, "failed to compile condition")

	tgt.Conditions = []graph.Condition{{When: `flavor`, Settings: graph.Settings{}}}
	_, err = m.Merge(tgt, "Debug")
	assert.ErrorContains(t, err, "want bool")
}
