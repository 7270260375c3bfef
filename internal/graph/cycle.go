package graph

type cycleDetector[K comparable] struct {
	graph   *Graph[K]
	index   int
	stack   []K
	onStack map[K]bool
	indices map[K]int
	lowlink map[K]int
	sccs    [][]K
}

// DetectCycles returns every strongly connected component that forms a
// cycle, including self-loops.
func (g *Graph[K]) DetectCycles() [][]K {
	detector := &cycleDetector[K]{
		graph:   g,
		onStack: make(map[K]bool),
		indices: make(map[K]int),
		lowlink: make(map[K]int),
	}

	for _, id := range g.order {
		if _, visited := detector.indices[id]; !visited {
			detector.strongConnect(id)
		}
	}

	var cycles [][]K
	for _, scc := range detector.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
			continue
		}
		id := scc[0]
		for _, dep := range g.edges[id] {
			if dep == id {
				cycles = append(cycles, scc)
				break
			}
		}
	}

	return cycles
}

func (d *cycleDetector[K]) strongConnect(id K) {
	d.indices[id] = d.index
	d.lowlink[id] = d.index
	d.index++
	d.stack = append(d.stack, id)
	d.onStack[id] = true

	for _, dep := range d.graph.edges[id] {
		if _, exists := d.graph.nodes[dep]; !exists {
			continue
		}

		if _, visited := d.indices[dep]; !visited {
			d.strongConnect(dep)
			d.lowlink[id] = min(d.lowlink[id], d.lowlink[dep])
		} else if d.onStack[dep] {
			d.lowlink[id] = min(d.lowlink[id], d.indices[dep])
		}
	}

	if d.lowlink[id] == d.indices[id] {
		var scc []K
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == id {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}

func (g *Graph[K]) HasCycle() bool {
	return len(g.DetectCycles()) > 0
}

// FindCyclePath returns a path that starts and ends on the same node,
// reachable from start, or nil when there is none.
func (g *Graph[K]) FindCyclePath(start K) []K {
	visited := make(map[K]bool)
	inPath := make(map[K]bool)
	var path []K

	var dfs func(id K) []K
	dfs = func(id K) []K {
		if inPath[id] {
			var cyclePath []K
			found := false
			for _, p := range path {
				if p == id {
					found = true
				}
				if found {
					cyclePath = append(cyclePath, p)
				}
			}
			return append(cyclePath, id)
		}

		if visited[id] {
			return nil
		}

		visited[id] = true
		path = append(path, id)
		inPath[id] = true

		for _, dep := range g.edges[id] {
			if _, exists := g.nodes[dep]; !exists {
				continue
			}
			if cycle := dfs(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		inPath[id] = false
		return nil
	}

	return dfs(start)
}

// CyclePaths returns one concrete path per detected cycle.
func (g *Graph[K]) CyclePaths() [][]K {
	var paths [][]K
	for _, scc := range g.DetectCycles() {
		if path := g.FindCyclePath(scc[len(scc)-1]); path != nil {
			paths = append(paths, path)
		}
	}
	return paths
}
