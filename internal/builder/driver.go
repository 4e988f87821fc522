package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/kiln-build/kiln/internal/diffutil"
	"github.com/kiln-build/kiln/internal/gen"
	"github.com/kiln-build/kiln/internal/graph"
	"github.com/kiln-build/kiln/internal/merge"
)

// DriftError is raised in check mode when a generated file differs from
// what is on disk.
type DriftError struct {
	Path string
	Diff string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("generated file %q drifted from disk:\n%s", e.Path, e.Diff)
}

// RunResult is the outcome of one generation run. When a subsequent
// build step fails the result is still returned, so callers can report
// which files were produced before the failure.
type RunResult struct {
	// BuildOrder lists targets dependencies-first.
	BuildOrder []string

	// Written holds the files created or updated, relative to the build
	// directory. Unchanged files are in Unchanged instead.
	Written   []string
	Unchanged []string
}

// Driver runs the pipeline over one set of targets. Resolution errors
// abort before anything is written; generation output is written or
// verified file by file.
type Driver struct {
	ctx     RunContext
	targets []*graph.Target
	gen     gen.Generator
}

func NewDriver(ctx RunContext, targets []*graph.Target) *Driver {
	return &Driver{ctx: ctx, targets: targets}
}

// Run resolves the graph, merges every (target, configuration) pair and
// writes the backend's build files.
func (d *Driver) Run() (*RunResult, error) {
	if len(d.ctx.Configurations) == 0 {
		return nil, fmt.Errorf("no configurations requested")
	}

	g, err := graph.FromTargets(d.targets)
	if err != nil {
		return nil, err
	}

	sorted, err := g.Sorted()
	if err != nil {
		return nil, err
	}
	// Sorted is dependents-first; building wants the reverse.
	buildOrder := slices.Clone(sorted)
	slices.Reverse(buildOrder)

	resolved, err := d.mergeAll(g, buildOrder)
	if err != nil {
		return nil, err
	}

	d.gen, err = gen.New(d.ctx.Format, d.ctx.Flavor, d.ctx.Locator)
	if err != nil {
		return nil, err
	}

	files, err := d.gen.Generate(&gen.Input{
		Targets:        resolved,
		Configurations: d.ctx.Configurations,
		CC:             d.ctx.CC,
		CXX:            d.ctx.CXX,
	})
	if err != nil {
		return nil, err
	}

	res := &RunResult{BuildOrder: buildOrder}
	for _, f := range files {
		written, err := d.writeFile(f)
		if err != nil {
			return nil, err
		}
		if written {
			res.Written = append(res.Written, f.Path)
		} else {
			res.Unchanged = append(res.Unchanged, f.Path)
		}
	}
	return res, nil
}

// mergeAll resolves effective settings for every target and
// configuration. Targets merge in parallel; the output keeps the given
// order regardless of completion order.
func (d *Driver) mergeAll(g *graph.TargetGraph, order []string) ([]gen.ResolvedTarget, error) {
	merger := merge.New(d.ctx.Flavor, d.ctx.Defines)
	resolved := make([]gen.ResolvedTarget, len(order))

	var eg errgroup.Group
	if d.ctx.NoParallel {
		eg.SetLimit(1)
	}
	for i, name := range order {
		t, ok := g.Target(name)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		eg.Go(func() error {
			settings := make(map[string]graph.Settings, len(d.ctx.Configurations))
			for _, cfg := range d.ctx.Configurations {
				s, err := merger.Merge(t, cfg)
				if err != nil {
					return err
				}
				settings[cfg] = s
			}
			resolved[i] = gen.ResolvedTarget{
				Name:         t.Name,
				Type:         t.Type,
				Sources:      t.Sources,
				Dependencies: t.Dependencies,
				Settings:     settings,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// writeFile writes one generated file under the build directory,
// skipping the write when the on-disk content already matches. In check
// mode a mismatch is a DriftError instead of a rewrite.
func (d *Driver) writeFile(f gen.OutputFile) (bool, error) {
	path := filepath.Join(d.ctx.BuildDir, filepath.FromSlash(f.Path))

	existing, err := os.ReadFile(path)
	if err == nil && diffutil.Equal(string(existing), f.Content, diffutil.StripLineNumbers) {
		return false, nil
	}
	if d.ctx.Check {
		if err != nil {
			return false, &DriftError{Path: f.Path, Diff: diffutil.Unified("", f.Content)}
		}
		return false, &DriftError{Path: f.Path, Diff: diffutil.Unified(string(existing), f.Content)}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// Build invokes the underlying tool for the first configuration. Run
// must have succeeded first.
func (d *Driver) Build(sel gen.Selector) (*gen.BuildResult, error) {
	if d.gen == nil {
		return nil, fmt.Errorf("build before generation")
	}
	location := d.gen.BuildLocation(d.ctx.BuildDir, d.ctx.Configurations[0])
	return d.gen.InvokeBuild(location, sel, d.ctx.NoParallel)
}

// IsUpToDate reports whether the first configuration's build has
// nothing to do. Run must have succeeded first.
func (d *Driver) IsUpToDate(sel gen.Selector) (bool, error) {
	if d.gen == nil {
		return false, fmt.Errorf("up-to-date check before generation")
	}
	location := d.gen.BuildLocation(d.ctx.BuildDir, d.ctx.Configurations[0])
	return d.gen.IsUpToDate(location, sel)
}

// ArtifactPath returns where the named target's artifact lands for the
// first configuration, relative to the build directory.
func (d *Driver) ArtifactPath(name, targetType string) (string, error) {
	if d.gen == nil {
		return "", fmt.Errorf("artifact path before generation")
	}
	return d.gen.BuiltArtifactPath(name, targetType, gen.ArtifactOptions{
		Configuration: d.ctx.Configurations[0],
	}), nil
}
