// kiln graph [path]
package cmd

import (
	"fmt"

	"github.com/m1gwings/treedrawer/tree"
	"github.com/spf13/cobra"

	"github.com/kiln-build/kiln/internal/graph"
	"github.com/kiln-build/kiln/internal/loader"
	"github.com/kiln-build/kiln/internal/msg"
)

// addDependencies fills in one target's dependency subtree. Diamonds
// repeat per branch; acyclicity is validated before drawing, so the
// recursion terminates.
func addDependencies(node *tree.Tree, g *graph.TargetGraph, name string) {
	for _, dep := range g.DependenciesOf(name) {
		child := node.AddChild(tree.NodeString(dep))
		addDependencies(child, g, dep)
	}
}

// roots returns the targets nothing depends on, in declaration order.
func roots(g *graph.TargetGraph) []string {
	depended := make(map[string]bool)
	for _, name := range g.Names() {
		for _, dep := range g.DependenciesOf(name) {
			depended[dep] = true
		}
	}
	var out []string
	for _, name := range g.Names() {
		if !depended[name] {
			out = append(out, name)
		}
	}
	return out
}

func doGraph(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	targets, err := loader.Load(descriptionFile(target))
	if err != nil {
		msg.Fatal("%v", err)
	}

	g, err := graph.FromTargets(targets)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if _, err := g.Sorted(); err != nil {
		msg.Fatal("%v", err)
	}

	for _, root := range roots(g) {
		t := tree.NewTree(tree.NodeString(root))
		addDependencies(t, g, root)
		fmt.Println(t)
	}
}

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Render the resolved dependency tree",
	Args:  cobra.MaximumNArgs(1),
	Run:   doGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
