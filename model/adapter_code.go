package model

import (
	"fmt"

	"github.com/zerfoo/ensemble/jobs"
)

// UserFunc is a user-supplied code block: it receives a ScratchNamespace
// projected from this sub-model's declared inputs and returns one
// projected from its declared outputs. Replaces the source's pattern of a
// shared mutable self-object (§9 redesign note).
type UserFunc func(ScratchNamespace) (ScratchNamespace, error)

// CodeModel is the user-code-block variant: Run invokes a UserFunc with a
// per-call ScratchNamespace.
type CodeModel struct {
	base
	fn UserFunc
}

// NewCodeModel builds a CodeModel for name. settings["fn"] must hold a
// UserFunc.
func NewCodeModel(name string, settings map[string]any) (Model, error) {
	inputs, _ := settings["inputs"].([]string)
	outputs, _ := settings["outputs"].([]string)
	objectNames, _ := settings["inputObjectNames"].([]string)

	m := &CodeModel{base: newBase(name, inputs, outputs, objectNames)}
	if fn, ok := settings["fn"].(UserFunc); ok {
		m.fn = fn
	} else if fn, ok := settings["fn"].(func(ScratchNamespace) (ScratchNamespace, error)); ok {
		m.fn = fn
	}
	return m, nil
}

// Run projects pkt.Values into a ScratchNamespace over DeclaredInputs,
// invokes fn, and collects the declared outputs back out.
func (m *CodeModel) Run(pkt InputPacket, jobHandler jobs.JobHandler) error {
	fn := m.fn
	outputs := m.outputs
	ns := Project(pkt.Values, m.inputs)
	name := m.name

	work := func() (any, error) {
		if fn == nil {
			return nil, &ConfigurationError{ModelName: name, Reason: "no user function registered"}
		}
		result, err := fn(ns)
		if err != nil {
			return nil, err
		}
		return Collect(result, outputs), nil
	}

	return jobs.SubmitBlocking(jobHandler, jobs.WorkUnit{
		Identifier:    pkt.ModelName + "|" + pkt.Prefix,
		UniqueHandler: pkt.UniqueHandler,
		Work:          work,
	})
}

// CollectOutput drains one finished user-code evaluation into sink.
func (m *CodeModel) CollectOutput(finished jobs.FinishedJob, sink OutputSink) error {
	result, ok := finished.Result().(map[string]float64)
	if !ok {
		return fmt.Errorf("model: code adapter %s: unexpected result type", m.name)
	}
	for k, v := range result {
		sink.UpdateOutputValue(k, v)
	}
	return nil
}

func init() {
	_ = Default.Register("code", NewCodeModel)
}

var _ Model = (*CodeModel)(nil)
