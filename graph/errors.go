package graph

import "fmt"

// ErrCycleDetected is the sentinel for a cyclic dependency graph. Build does
// not return it: a cyclic graph is reported through ExecutionOrder.Cyclic.
var ErrCycleDetected = fmt.Errorf("cycle detected in graph")

// ConfigurationError reports a dependency the graph could not resolve at
// build time: a sub-model input that is neither sampled nor produced by
// any other sub-model.
type ConfigurationError struct {
	ModelName string
	Variable  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("input %q of sub-model %q has not been found among other models' outputs and sampled variables", e.Variable, e.ModelName)
}
