// Package model defines the polymorphic Model abstraction every sub-model
// adapter implements, and the registry that turns a sub-model's declared
// type name into a runnable instance.
package model

import "github.com/zerfoo/ensemble/jobs"

// RunInfo carries the per-step execution context Initialize needs but that
// is not itself a caller-supplied input object: the step identifier the
// teacher's own adapters thread through construction.
type RunInfo struct {
	StepName string
}

// InputObject is one caller-supplied named input blob, filtered into a
// sub-model's Initialize/CreateNewInput by ModelSpec.InputObjectNames.
type InputObject struct {
	Name   string
	Values map[string]any
}

// SampledVars is the sampler's per-sample scalar draw, keyed by variable
// name.
type SampledVars map[string]float64

// InputPacket is the opaque, immutable per-invocation input descriptor a
// sub-model's CreateNewInput produces and Run consumes. Packets are value
// types: UpdateInputFromOutside returns a new packet rather than mutating
// the receiver, satisfying the immutability re-architecture note.
type InputPacket struct {
	Prefix        string
	UniqueHandler string
	ModelName     string
	Values        map[string]float64
	Metadata      map[string]any
}

// WithValue returns a copy of pkt with name set to value, leaving pkt
// itself untouched.
func (pkt InputPacket) WithValue(name string, value float64) InputPacket {
	next := pkt
	next.Values = make(map[string]float64, len(pkt.Values)+1)
	for k, v := range pkt.Values {
		next.Values[k] = v
	}
	next.Values[name] = value
	return next
}

// OutputSink is the destination CollectOutput drains a finished job's
// evaluation into: either a sub-model's private TraceStore or an
// externally supplied grouped data sink.
type OutputSink interface {
	UpdateInputValue(key string, value float64)
	UpdateOutputValue(key string, value float64)
	UpdateMetadata(key string, value any)
}

// Model is the six-operation contract every sub-model adapter implements.
// EnsembleCore and PicardDriver drive exactly these operations; the five
// concrete variants (dummy, rom, code, external, postprocessor) differ
// only in what Run dispatches.
type Model interface {
	// Initialize prepares the model from its static configuration and the
	// subset of caller-supplied inputObjects whose names match its
	// declared InputObjectNames. Called once, before any CreateNewInput.
	Initialize(info RunInfo, inputs []InputObject, initDict map[string]any) error

	// CreateNewInput returns a fresh InputPacket for one sample. Pure with
	// respect to the caller-supplied inputs.
	CreateNewInput(myInput []InputObject, samplerTag string, sampled SampledVars, prefix string, extra map[string]any) (InputPacket, error)

	// UpdateInputFromOutside folds values produced upstream in the same
	// sample into pkt, returning a new packet.
	UpdateInputFromOutside(pkt InputPacket, overrides map[string]float64) (InputPacket, error)

	// Run submits one unit of work under the job identifier
	// pkt.ModelName|pkt.Prefix and returns immediately; completion is
	// observed through jobHandler.
	Run(pkt InputPacket, jobHandler jobs.JobHandler) error

	// CollectOutput drains one completed job's evaluation into sink.
	CollectOutput(finished jobs.FinishedJob, sink OutputSink) error

	// DeclaredInputs and DeclaredOutputs are the static variable-name
	// declarations DependencyGraph resolves against.
	DeclaredInputs() map[string]struct{}
	DeclaredOutputs() map[string]struct{}
}
