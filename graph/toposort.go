package graph

// bubbleReorder computes an execution order with a layering pass: each pass
// walks the still-pending nodes in declaration order, appends every node
// whose inputs are sampled or produced by a node already placed, and keeps
// the rest for the next pass. The loop is bounded at N² passes. When a pass
// places no node, the remaining nodes are appended in declaration order and
// the graph is flagged cyclic; Build treats the graph as cyclic if either
// this flag or the independent hasCycle check says so.
func (g *DependencyGraph) bubbleReorder() (order []string, cyclic bool) {
	n := len(g.nodes)
	pending := make([]NodeSpec, n)
	copy(pending, g.nodes)

	satisfied := make(map[string]struct{}, n)
	order = make([]string, 0, n)

	maxPasses := n * n
	passes := 0
	for len(pending) > 0 && passes < maxPasses {
		passes++
		next := pending[:0:0]
		progressed := false
		for _, node := range pending {
			if g.inputsSatisfied(node, satisfied) {
				order = append(order, node.Name)
				for v := range node.Outputs {
					satisfied[v] = struct{}{}
				}
				progressed = true
			} else {
				next = append(next, node)
			}
		}
		pending = next
		if !progressed {
			// No node could run this pass: every remaining node depends,
			// directly or transitively, on another remaining node. Emit
			// the rest in declaration order and flag the graph cyclic.
			for _, node := range pending {
				order = append(order, node.Name)
			}
			return order, true
		}
	}
	if len(pending) > 0 {
		for _, node := range pending {
			order = append(order, node.Name)
		}
		return order, true
	}
	return order, false
}

// inputsSatisfied reports whether every input of node is either a sampled
// variable or has already been produced by a node earlier in the order.
func (g *DependencyGraph) inputsSatisfied(node NodeSpec, satisfied map[string]struct{}) bool {
	for v := range node.Inputs {
		if _, isSampled := g.sampled[v]; isSampled {
			continue
		}
		if _, isSatisfied := satisfied[v]; isSatisfied {
			continue
		}
		return false
	}
	return true
}
