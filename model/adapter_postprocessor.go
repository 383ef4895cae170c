package model

import (
	"fmt"

	"github.com/zerfoo/ensemble/jobs"
)

// Analysis is a registered post-processing function invoked over already-
// collected inputs, producing derived output variables.
type Analysis func(map[string]float64) (map[string]float64, error)

// PostProcessorModel is the post-processing-action variant: Run invokes a
// registered Analysis over the inputs collected from upstream sub-models.
type PostProcessorModel struct {
	base
	analysis Analysis
}

// NewPostProcessorModel builds a PostProcessorModel for name.
// settings["analysis"] must hold an Analysis.
func NewPostProcessorModel(name string, settings map[string]any) (Model, error) {
	inputs, _ := settings["inputs"].([]string)
	outputs, _ := settings["outputs"].([]string)
	objectNames, _ := settings["inputObjectNames"].([]string)

	m := &PostProcessorModel{base: newBase(name, inputs, outputs, objectNames)}
	if fn, ok := settings["analysis"].(Analysis); ok {
		m.analysis = fn
	} else if fn, ok := settings["analysis"].(func(map[string]float64) (map[string]float64, error)); ok {
		m.analysis = fn
	}
	return m, nil
}

// Run submits the registered analysis to jobHandler.
func (m *PostProcessorModel) Run(pkt InputPacket, jobHandler jobs.JobHandler) error {
	analysis := m.analysis
	values := pkt.Values
	name := m.name

	work := func() (any, error) {
		if analysis == nil {
			return nil, &ConfigurationError{ModelName: name, Reason: "no analysis registered"}
		}
		return analysis(values)
	}

	return jobs.SubmitBlocking(jobHandler, jobs.WorkUnit{
		Identifier:    pkt.ModelName + "|" + pkt.Prefix,
		UniqueHandler: pkt.UniqueHandler,
		Work:          work,
	})
}

// CollectOutput drains one finished post-processing evaluation into sink.
func (m *PostProcessorModel) CollectOutput(finished jobs.FinishedJob, sink OutputSink) error {
	result, ok := finished.Result().(map[string]float64)
	if !ok {
		return fmt.Errorf("model: postprocessor adapter %s: unexpected result type", m.name)
	}
	for k, v := range result {
		sink.UpdateOutputValue(k, v)
	}
	return nil
}

func init() {
	_ = Default.Register("postprocessor", NewPostProcessorModel)
}

var _ Model = (*PostProcessorModel)(nil)
