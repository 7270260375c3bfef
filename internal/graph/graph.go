package graph

// Graph is a directed dependency graph keyed by any comparable identity.
// It is not safe for concurrent mutation; callers build it, then query it.
type Graph[K comparable] struct {
	nodes map[K]struct{}
	edges map[K][]K
	order []K
}

func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		nodes: make(map[K]struct{}),
		edges: make(map[K][]K),
	}
}

func (g *Graph[K]) AddNode(id K, dependencies []K) {
	if _, exists := g.nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	g.nodes[id] = struct{}{}

	deps := make([]K, len(dependencies))
	copy(deps, dependencies)
	g.edges[id] = deps
}

func (g *Graph[K]) HasNode(id K) bool {
	_, exists := g.nodes[id]
	return exists
}

func (g *Graph[K]) Dependencies(id K) []K {
	deps, exists := g.edges[id]
	if !exists {
		return nil
	}

	result := make([]K, len(deps))
	copy(result, deps)
	return result
}

func (g *Graph[K]) Dependents(id K) []K {
	var dependents []K
	for _, nodeID := range g.order {
		for _, dep := range g.edges[nodeID] {
			if dep == id {
				dependents = append(dependents, nodeID)
				break
			}
		}
	}
	return dependents
}

// Nodes returns node ids in insertion order.
func (g *Graph[K]) Nodes() []K {
	nodes := make([]K, len(g.order))
	copy(nodes, g.order)
	return nodes
}

func (g *Graph[K]) Size() int {
	return len(g.nodes)
}

// Missing returns dependencies that are not nodes themselves, in first-seen
// order.
func (g *Graph[K]) Missing() []K {
	var missing []K
	seen := make(map[K]bool)

	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			if _, exists := g.nodes[dep]; !exists && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}

	return missing
}
