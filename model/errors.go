package model

import "fmt"

// ConfigurationError reports a static misconfiguration discovered inside a
// sub-model adapter itself (as opposed to graph.ConfigurationError, which
// reports unresolved dependencies between sub-models).
type ConfigurationError struct {
	ModelName string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sub-model %q misconfigured: %s", e.ModelName, e.Reason)
}

// ErrScratchValueType is returned by FromGoValue for a Go value outside the
// closed ScratchValue sum type.
var ErrScratchValueType = fmt.Errorf("model: value is not a valid ScratchValue (scalar, integer, boolean, or array)")
