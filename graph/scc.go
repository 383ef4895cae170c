package graph

// hasCycle is an independent cross-check on bubbleReorder's cyclic flag: a
// DFS over the producer edges (node -> producer-of-each-input) using the
// visited/recursionStack idiom, the same shape the teacher used for its
// tensor graph's topologicalSort.
func (g *DependencyGraph) hasCycle() bool {
	visited := make(map[string]bool, len(g.nodes))
	recursionStack := make(map[string]bool, len(g.nodes))

	var visit func(name string) bool
	visit = func(name string) bool {
		if recursionStack[name] {
			return true
		}
		if visited[name] {
			return false
		}
		visited[name] = true
		recursionStack[name] = true

		idx, ok := g.index[name]
		if ok {
			for v := range g.nodes[idx].Inputs {
				producer, resolved := g.Producer(v)
				if !resolved || producer == "sampled" {
					continue
				}
				if visit(producer) {
					return true
				}
			}
		}

		recursionStack[name] = false
		return false
	}

	for _, n := range g.nodes {
		if !visited[n.Name] {
			if visit(n.Name) {
				return true
			}
		}
	}
	return false
}
