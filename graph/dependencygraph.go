// Package graph builds the inter-model dataflow graph from sub-model
// input/output declarations and emits a linear execution order together
// with a cycle flag.
package graph

// NodeSpec is one sub-model's static declaration: its name and the input
// and output variable sets it was configured with.
type NodeSpec struct {
	Name    string
	Inputs  map[string]struct{}
	Outputs map[string]struct{}
}

// ExecutionOrder is a linearization of sub-models for one forward sweep.
// For cyclic configurations the order is arbitrary among cycle members but
// stable, and Cyclic is true.
type ExecutionOrder struct {
	Order  []string
	Cyclic bool
}

// DependencyGraph resolves the dataflow between a fixed set of sub-models
// against a global set of sampled variable names.
type DependencyGraph struct {
	nodes     []NodeSpec
	index     map[string]int
	sampled   map[string]struct{}
	producers map[string]string // variable -> first-declared producer model name
}

// New builds a DependencyGraph over nodes (in declaration order) resolved
// against the sampled variable set S.
func New(nodes []NodeSpec, sampled map[string]struct{}) *DependencyGraph {
	index := make(map[string]int, len(nodes))
	producers := make(map[string]string)
	for i, n := range nodes {
		index[n.Name] = i
		for v := range n.Outputs {
			// Tie-break: first-declared producer is the nominal source.
			if _, exists := producers[v]; !exists {
				producers[v] = n.Name
			}
		}
	}
	return &DependencyGraph{nodes: nodes, index: index, sampled: sampled, producers: producers}
}

// Producer returns the model name that produces variable v, or "sampled"
// if v comes from the sampler, or ("", false) if v is unresolved.
func (g *DependencyGraph) Producer(v string) (name string, ok bool) {
	if _, isSampled := g.sampled[v]; isSampled {
		return "sampled", true
	}
	if p, isProduced := g.producers[v]; isProduced {
		return p, true
	}
	return "", false
}

// Build runs the full algorithm: validate resolvability, compute the
// bubble-reordering pass bounded at N², and cross-check with an
// independent SCC-based cycle detection. Returns a ConfigurationError if
// any input is unresolvable.
func (g *DependencyGraph) Build() (ExecutionOrder, error) {
	if err := g.validate(); err != nil {
		return ExecutionOrder{}, err
	}

	order, reorderCyclic := g.bubbleReorder()
	sccCyclic := g.hasCycle()

	return ExecutionOrder{Order: order, Cyclic: reorderCyclic || sccCyclic}, nil
}

// validate ensures every declared input is either sampled or produced by
// some sub-model. Step 4 of the algorithm.
func (g *DependencyGraph) validate() error {
	for _, n := range g.nodes {
		for v := range n.Inputs {
			if _, ok := g.Producer(v); !ok {
				return &ConfigurationError{ModelName: n.Name, Variable: v}
			}
		}
	}
	return nil
}
