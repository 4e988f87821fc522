package graph

import (
	"fmt"
	"slices"
)

// UnresolvedDependencyError is raised at graph construction when a target
// references a dependency that is not present in the graph.
type UnresolvedDependencyError struct {
	Target     string
	Dependency string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("target %q lists a non-existent dependency: %q", e.Target, e.Dependency)
}

// TargetGraph is the set of all targets plus a derived adjacency view.
// The adjacency view is rebuilt from the target definitions by Finalize;
// it is never edited independently of them.
type TargetGraph struct {
	targets   map[string]*Target
	names     []string // insertion order, drives all deterministic iteration
	adjacency map[string][]string
	finalized bool
}

func New() *TargetGraph {
	return &TargetGraph{targets: make(map[string]*Target)}
}

// FromTargets builds and finalizes a graph in one step.
func FromTargets(targets []*Target) (*TargetGraph, error) {
	g := New()
	for _, t := range targets {
		if err := g.Add(t); err != nil {
			return nil, err
		}
	}
	if err := g.Finalize(); err != nil {
		return nil, err
	}
	return g, nil
}

// Add inserts a target. Dependency references are not checked here; they
// may name targets added later. Finalize validates them.
func (g *TargetGraph) Add(t *Target) error {
	if t.Name == "" {
		return fmt.Errorf("target with empty name")
	}
	if _, exists := g.targets[t.Name]; exists {
		return fmt.Errorf("duplicate target %q", t.Name)
	}
	g.targets[t.Name] = t
	g.names = append(g.names, t.Name)
	g.finalized = false
	return nil
}

// Finalize validates every dependency reference and recomputes the
// adjacency view. It must be called again after further Adds.
func (g *TargetGraph) Finalize() error {
	adjacency := make(map[string][]string, len(g.targets))
	for _, name := range g.names {
		t := g.targets[name]
		for _, dep := range t.Dependencies {
			if _, ok := g.targets[dep]; !ok {
				return &UnresolvedDependencyError{Target: name, Dependency: dep}
			}
		}
		adjacency[name] = slices.Clone(t.Dependencies)
	}
	g.adjacency = adjacency
	g.finalized = true
	return nil
}

// Names returns target identities in insertion order.
func (g *TargetGraph) Names() []string {
	return slices.Clone(g.names)
}

func (g *TargetGraph) Len() int { return len(g.targets) }

func (g *TargetGraph) Target(name string) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// DependenciesOf returns the adjacency view for one target, in the order
// the dependencies were declared. The graph must be finalized.
func (g *TargetGraph) DependenciesOf(name string) []string {
	if !g.finalized {
		panic("graph: DependenciesOf before Finalize")
	}
	return g.adjacency[name]
}

// Sorted returns the targets in reverse-finish DFS order (dependents
// before dependencies), or a CycleError.
func (g *TargetGraph) Sorted() ([]string, error) {
	if !g.finalized {
		if err := g.Finalize(); err != nil {
			return nil, err
		}
	}
	return TopologicallySorted(g.names, g.DependenciesOf)
}
