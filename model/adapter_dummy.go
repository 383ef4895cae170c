package model

import (
	"fmt"

	"github.com/zerfoo/ensemble/jobs"
)

// DummyModel is the pass-through variant: its Run dispatches an identity
// function in the worker pool, copying every declared input straight to
// the identically-named output. Useful for wiring tests and for sub-
// models whose real computation is a registered transform keyed by
// settings["transform"].
type DummyModel struct {
	base
	transform func(map[string]float64) map[string]float64
}

// NewDummyModel builds a DummyModel for name, declared over inputs and
// outputs. settings["transform"] may supply a func(map[string]float64)
// map[string]float64 registered by the caller; absent, Run copies inputs
// whose name matches an output name.
func NewDummyModel(name string, settings map[string]any) (Model, error) {
	inputs, _ := settings["inputs"].([]string)
	outputs, _ := settings["outputs"].([]string)
	objectNames, _ := settings["inputObjectNames"].([]string)

	m := &DummyModel{base: newBase(name, inputs, outputs, objectNames)}
	if fn, ok := settings["transform"].(func(map[string]float64) map[string]float64); ok {
		m.transform = fn
	}
	return m, nil
}

// Run submits an identity (or transform) computation to jobHandler.
func (m *DummyModel) Run(pkt InputPacket, jobHandler jobs.JobHandler) error {
	transform := m.transform
	outputs := m.outputs
	values := pkt.Values

	work := func() (any, error) {
		result := make(map[string]float64, len(outputs))
		if transform != nil {
			for k, v := range transform(values) {
				result[k] = v
			}
		} else {
			for name := range outputs {
				if v, ok := values[name]; ok {
					result[name] = v
				}
			}
		}
		return result, nil
	}

	return jobs.SubmitBlocking(jobHandler, jobs.WorkUnit{
		Identifier:    pkt.ModelName + "|" + pkt.Prefix,
		UniqueHandler: pkt.UniqueHandler,
		Work:          work,
	})
}

// CollectOutput drains one finished dummy-model job into sink.
func (m *DummyModel) CollectOutput(finished jobs.FinishedJob, sink OutputSink) error {
	result, ok := finished.Result().(map[string]float64)
	if !ok {
		return fmt.Errorf("model: dummy adapter %s: unexpected result type", m.name)
	}
	for k, v := range result {
		sink.UpdateOutputValue(k, v)
	}
	return nil
}

func init() {
	_ = Default.Register("dummy", NewDummyModel)
}

var _ Model = (*DummyModel)(nil)
