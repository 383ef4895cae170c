package graph

import "testing"

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func TestBuild_AcyclicChainLinearizes(t *testing.T) {
	// A: in x, out y. B: in y, out z. Sampled: x.
	nodes := []NodeSpec{
		{Name: "A", Inputs: set("x"), Outputs: set("y")},
		{Name: "B", Inputs: set("y"), Outputs: set("z")},
	}
	g := New(nodes, set("x"))
	order, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	idx := map[string]int{}
	for i, name := range order.Order {
		idx[name] = i
	}
	if idx["A"] >= idx["B"] {
		t.Fatalf("expected A before B, got order %v", order.Order)
	}
}

func TestBuild_FeedbackLoopIsCyclic(t *testing.T) {
	// A: in x, z; out y. B: in y; out z.
	nodes := []NodeSpec{
		{Name: "A", Inputs: set("x", "z"), Outputs: set("y")},
		{Name: "B", Inputs: set("y"), Outputs: set("z")},
	}
	g := New(nodes, set("x"))
	order, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.Cyclic {
		t.Fatalf("expected cyclic graph")
	}
	if len(order.Order) != 2 {
		t.Fatalf("expected both models in the order, got %v", order.Order)
	}
}

func TestBuild_SelfLoopIsCyclic(t *testing.T) {
	nodes := []NodeSpec{
		{Name: "A", Inputs: set("y"), Outputs: set("y")},
	}
	g := New(nodes, set())
	order, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.Cyclic {
		t.Fatalf("expected self-loop to be flagged cyclic")
	}
}

func TestBuild_UnresolvedInputFails(t *testing.T) {
	nodes := []NodeSpec{
		{Name: "A", Inputs: set("x"), Outputs: set("y")},
		{Name: "B", Inputs: set("w"), Outputs: set("z")},
	}
	g := New(nodes, set("x"))
	_, err := g.Build()
	if err == nil {
		t.Fatalf("expected a ConfigurationError")
	}
	cfgErr, ok := err.(*ConfigurationError)
	if !ok {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
	if cfgErr.ModelName != "B" || cfgErr.Variable != "w" {
		t.Fatalf("expected error naming B/w, got %+v", cfgErr)
	}
}

func TestProducer_TieBreakFirstDeclared(t *testing.T) {
	nodes := []NodeSpec{
		{Name: "A", Inputs: set(), Outputs: set("y")},
		{Name: "B", Inputs: set(), Outputs: set("y")},
	}
	g := New(nodes, set())
	producer, ok := g.Producer("y")
	if !ok || producer != "A" {
		t.Fatalf("expected A as the nominal tie-break producer, got %q, %v", producer, ok)
	}
}

func TestProducer_SampledTakesPrecedenceOverUnresolved(t *testing.T) {
	g := New(nil, set("x"))
	producer, ok := g.Producer("x")
	if !ok || producer != "sampled" {
		t.Fatalf("expected sampled, got %q, %v", producer, ok)
	}
	if _, ok := g.Producer("unknown"); ok {
		t.Fatalf("expected unresolved variable to report ok=false")
	}
}

func TestBuild_ThreeModelAcyclicChainOrder(t *testing.T) {
	// Three-model chain used by the sub-model-failure scenario (§8.4):
	// A -> B -> C, sampled x.
	nodes := []NodeSpec{
		{Name: "A", Inputs: set("x"), Outputs: set("y")},
		{Name: "B", Inputs: set("y"), Outputs: set("w")},
		{Name: "C", Inputs: set("w"), Outputs: set("z")},
	}
	g := New(nodes, set("x"))
	order, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	want := []string{"A", "B", "C"}
	for i, name := range want {
		if order.Order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order.Order)
		}
	}
}
