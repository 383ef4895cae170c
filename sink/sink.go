// Package sink implements the external data-sink handshake EnsembleCore's
// collectOutput writes into, and a concrete grouped parquet-backed sink.
package sink

import "github.com/zerfoo/ensemble/model"

// Type enumerates the four sink shapes the runtime handshake supports.
// The grouped shapes (TabularGrouped, HierarchicalGrouped) keep one group
// per AddGroup call; the point-set TraceSink uses AddGroup only to select
// the sample prefix its records go under.
type Type string

const (
	PointSet           Type = "point-set"
	HistorySet         Type = "history-set"
	TabularGrouped      Type = "tabular-grouped"
	HierarchicalGrouped Type = "hierarchical-grouped"
)

// DataSink is the runtime handshake EnsembleCore.CollectOutput drives: a
// uniform record shape built from UpdateInputValue/UpdateOutputValue/
// UpdateMetadata calls, with AddGroup opening a new group (one per sample
// prefix) for the grouped shapes.
type DataSink interface {
	model.OutputSink

	// Kind reports which of the four shapes this sink implements.
	Kind() Type

	// GetParaKeys returns the variable names this sink expects for the
	// given role ("input" or "output"). EnsembleCore does not call it, and
	// every sink in this package returns nil.
	GetParaKeys(role string) []string

	// AddGroup opens a new group keyed by attrs (at minimum the sample
	// prefix); subsequent Update* calls apply to that group until the
	// next AddGroup. EnsembleCore.CollectOutput calls it once per sample
	// on every sink kind.
	AddGroup(attrs map[string]any) error
}

// SinkOverlapError reports that the target sink wraps a sub-model's private
// trace store; SinkName is that sub-model's name.
type SinkOverlapError struct {
	SinkName string
}

func (e *SinkOverlapError) Error() string {
	return "sink \"" + e.SinkName + "\" is also registered as a sub-model trace store"
}
