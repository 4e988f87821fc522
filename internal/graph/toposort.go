package graph

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a dependency cycle. Path holds the chain of
// in-progress nodes from the point the cycle closes back on itself, with
// the repeated node at both ends, e.g. [a b c a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// DFS node states.
const (
	unvisited = iota
	visiting
	done
)

// TopologicallySorted orders nodes so that every node appears before the
// nodes it depends on (reverse finish order); reverse the result for a
// dependencies-first build order. The traversal visits nodes in the
// supplied order and edges in the order edgesOf returns them, so output
// is exactly reproducible for a fixed input. Nodes already finished are
// skipped without re-descending, which keeps diamond-shaped graphs
// linear. Cyclic input fails with a *CycleError carrying the chain.
func TopologicallySorted(nodes []string, edgesOf func(string) []string) ([]string, error) {
	state := make(map[string]int, len(nodes))
	stack := make([]string, 0, len(nodes))
	order := make([]string, 0, len(nodes))

	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case done:
			return nil
		case visiting:
			// The in-progress stack from the first occurrence of this
			// node down to the current frame is the cycle.
			i := slices.Index(stack, node)
			path := slices.Clone(stack[i:])
			return &CycleError{Path: append(path, node)}
		}
		state[node] = visiting
		stack = append(stack, node)
		for _, dep := range edgesOf(node) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		order = append(order, node)
		return nil
	}

	for _, node := range nodes {
		if err := visit(node); err != nil {
			return nil, err
		}
	}

	slices.Reverse(order)
	return order, nil
}
