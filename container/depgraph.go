package container

import (
	"github.com/nestd-go/nestd/errors"
)

// DependencyGraph orders bindings so that every binding comes after the
// bindings it depends on.
type DependencyGraph struct {
	nodes map[string]*node
	order []string // Preserve registration order
}

type node struct {
	id           string
	label        string
	dependencies []string
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*node),
		order: make([]string, 0),
	}
}

// AddNode adds a node with its dependencies. label names the node in cycle
// reports and defaults to id.
// Nodes are processed in the order they are added (FIFO) when no dependencies exist.
func (g *DependencyGraph) AddNode(id, label string, dependencies []string) {
	if label == "" {
		label = id
	}
	g.nodes[id] = &node{
		id:           id,
		label:        label,
		dependencies: dependencies,
	}
	g.order = append(g.order, id)
}

// TopologicalSort returns node ids in dependency order.
// Nodes without dependencies maintain their registration order (FIFO).
// Returns a CircularDependency error carrying the cycle's labels, first
// label repeated at the end, if the graph has a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]int) // id -> position on the stack
	stack := make([]string, 0)
	result := make([]string, 0, len(g.nodes))

	for _, id := range g.order {
		if err := g.visit(id, visited, visiting, &stack, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// visit performs DFS traversal.
func (g *DependencyGraph) visit(id string, visited map[string]bool, visiting map[string]int, stack, result *[]string) error {
	if visited[id] {
		return nil
	}

	if pos, ok := visiting[id]; ok {
		cycle := make([]string, 0, len(*stack)-pos+1)
		for _, onStack := range (*stack)[pos:] {
			cycle = append(cycle, g.nodes[onStack].label)
		}
		cycle = append(cycle, g.nodes[id].label)

		return errors.ErrCircularDependency(cycle)
	}

	n := g.nodes[id]
	if n == nil {
		// Not in graph, skip
		return nil
	}

	visiting[id] = len(*stack)
	*stack = append(*stack, id)

	// Visit dependencies first
	for _, dep := range n.dependencies {
		if err := g.visit(dep, visited, visiting, stack, result); err != nil {
			return err
		}
	}

	*stack = (*stack)[:len(*stack)-1]
	delete(visiting, id)
	visited[id] = true
	*result = append(*result, id)

	return nil
}
