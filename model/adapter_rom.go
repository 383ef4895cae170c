package model

import (
	"fmt"

	"github.com/zerfoo/ensemble/jobs"
)

// Predictor is a trained surrogate's evaluation function: maps a point in
// input-variable space to a point in output-variable space. Training and
// persistence are out of scope; ROMModel only wraps the already-trained
// function in the Model lifecycle.
type Predictor interface {
	Predict(inputs map[string]float64) (map[string]float64, error)
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(map[string]float64) (map[string]float64, error)

func (f PredictorFunc) Predict(inputs map[string]float64) (map[string]float64, error) { return f(inputs) }

// ROMModel is the reduced-order-model / stochastic-surrogate variant: Run
// evaluates a Predictor in the worker pool.
type ROMModel struct {
	base
	predictor Predictor
}

// NewROMModel builds a ROMModel for name. settings["predictor"] must hold
// a Predictor (or PredictorFunc); its absence is a configuration error
// surfaced at Run time rather than construction time, since the
// surrogate-learning algorithm that produces it is out of scope here.
func NewROMModel(name string, settings map[string]any) (Model, error) {
	inputs, _ := settings["inputs"].([]string)
	outputs, _ := settings["outputs"].([]string)
	objectNames, _ := settings["inputObjectNames"].([]string)

	m := &ROMModel{base: newBase(name, inputs, outputs, objectNames)}
	switch p := settings["predictor"].(type) {
	case Predictor:
		m.predictor = p
	case func(map[string]float64) (map[string]float64, error):
		m.predictor = PredictorFunc(p)
	}
	return m, nil
}

// Run submits a surrogate evaluation to jobHandler.
func (m *ROMModel) Run(pkt InputPacket, jobHandler jobs.JobHandler) error {
	predictor := m.predictor
	values := pkt.Values
	name := m.name

	work := func() (any, error) {
		if predictor == nil {
			return nil, &ConfigurationError{ModelName: name, Reason: "no predictor registered"}
		}
		return predictor.Predict(values)
	}

	return jobs.SubmitBlocking(jobHandler, jobs.WorkUnit{
		Identifier:    pkt.ModelName + "|" + pkt.Prefix,
		UniqueHandler: pkt.UniqueHandler,
		Work:          work,
	})
}

// CollectOutput drains one finished surrogate evaluation into sink.
func (m *ROMModel) CollectOutput(finished jobs.FinishedJob, sink OutputSink) error {
	result, ok := finished.Result().(map[string]float64)
	if !ok {
		return fmt.Errorf("model: rom adapter %s: unexpected result type", m.name)
	}
	for k, v := range result {
		sink.UpdateOutputValue(k, v)
	}
	return nil
}

func init() {
	_ = Default.Register("rom", NewROMModel)
}

var _ Model = (*ROMModel)(nil)
