package picard

import (
	"io"
	"log"

	"github.com/zerfoo/ensemble/jobs"
	"github.com/zerfoo/ensemble/model"
)

const (
	DefaultMaxIterations  = 30
	DefaultConvergenceTol = 1e-3
)

// SubModel bundles one registered sub-model with the private trace store
// its Run/CollectOutput pair writes into, the per-model pairing
// EnsembleCore hands to the driver.
type SubModel struct {
	Name  string
	Model model.Model
	Trace *model.TraceStore
}

// ProducerResolver reports which sub-model produces variable, or
// ("sampled", true) if it comes from the sampler, mirroring
// graph.DependencyGraph.Producer without picard depending on the graph
// package directly.
type ProducerResolver func(variable string) (producer string, ok bool)

// Driver runs the per-sample Picard fixed-point loop (or, for an acyclic
// configuration with maxIterations effectively 1, a single forward
// sweep) in the declared ExecutionOrder.
type Driver struct {
	ensembleName   string
	order          []string
	subModels      map[string]*SubModel
	producerOf     ProducerResolver
	handler        jobs.JobHandler
	coordinator    *jobs.Coordinator
	maxIterations  int
	convergenceTol float64
	logger         *log.Logger
}

// New builds a Driver. maxIterations and convergenceTol fall back to
// DefaultMaxIterations/DefaultConvergenceTol when zero.
func New(ensembleName string, order []string, subModels map[string]*SubModel, producerOf ProducerResolver, handler jobs.JobHandler, maxIterations int, convergenceTol float64, out io.Writer) *Driver {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if convergenceTol <= 0 {
		convergenceTol = DefaultConvergenceTol
	}
	return &Driver{
		ensembleName:   ensembleName,
		order:          order,
		subModels:      subModels,
		producerOf:     producerOf,
		handler:        handler,
		coordinator:    jobs.NewCoordinator(ensembleName, handler, out),
		maxIterations:  maxIterations,
		convergenceTol: convergenceTol,
		logger:         log.New(out, "picard: ", log.LstdFlags),
	}
}

// SampleResult is the outcome of running one sample through the driver.
type SampleResult struct {
	Prefix     string
	State      State
	Iterations int
	LastNorm   float64
	Err        error
}

// RunSample executes one sample's forward sweep (cyclic == false, driven
// once) or Picard iteration (cyclic == true, driven up to maxIterations).
// packets supplies each sub-model's initial InputPacket, already built by
// EnsembleCore.CreateNewInput.
func (d *Driver) RunSample(prefix string, cyclic bool, packets map[string]model.InputPacket) SampleResult {
	// Reset only this sample's own trace entry: sm.Trace is shared by every
	// concurrent sample dispatched against this sub-model (RunMany), and a
	// whole-store Reset would wipe another in-flight sample's data out from
	// under it.
	for _, sm := range d.subModels {
		sm.Trace.ResetPrefix(prefix)
	}

	state := newIterationState(d.order)
	maxIterations := d.maxIterations
	if !cyclic {
		maxIterations = 1
	}

	uniqueHandler := d.coordinator.UniqueHandler(prefix)
	lastNorm := 0.0

	for k := 1; k <= maxIterations; k++ {
		for _, modelName := range d.order {
			sm := d.subModels[modelName]
			pkt := packets[modelName]

			dependentOutputs := d.dependentOutputs(sm, prefix, k)
			updated, err := sm.Model.UpdateInputFromOutside(pkt, dependentOutputs)
			if err != nil {
				return SampleResult{Prefix: prefix, State: Failed, Iterations: k, Err: err}
			}
			// Adapters submit under pkt.ModelName|pkt.Prefix, so Prefix stays
			// the bare sample prefix and the job identifier is the
			// modelName|prefix pair AwaitOne waits for.
			updated.Prefix = prefix
			updated.UniqueHandler = uniqueHandler
			updated.ModelName = modelName
			packets[modelName] = updated

			if err := sm.Model.Run(updated, d.handler); err != nil {
				return SampleResult{Prefix: prefix, State: Failed, Iterations: k, Err: err}
			}
			finished, err := d.coordinator.AwaitOne(modelName, prefix)
			if err != nil {
				return SampleResult{Prefix: prefix, State: Failed, Iterations: k, Err: err}
			}

			for key, value := range updated.Values {
				sm.Trace.UpdateInputValue(prefix, key, value)
			}
			if err := sm.Model.CollectOutput(finished, model.BindSink(sm.Trace, prefix)); err != nil {
				return SampleResult{Prefix: prefix, State: Failed, Iterations: k, Err: err}
			}

			for variable := range sm.Model.DeclaredOutputs() {
				if v, ok := sm.Trace.LatestScalar(prefix, variable); ok {
					state.observe(modelName, variable, v)
				}
			}
		}

		if !cyclic {
			return SampleResult{Prefix: prefix, State: Converged, Iterations: k, LastNorm: 0}
		}

		lastNorm = state.residualNorm()
		if lastNorm <= d.convergenceTol {
			return SampleResult{Prefix: prefix, State: Converged, Iterations: k, LastNorm: lastNorm}
		}
		state.shift()
	}

	d.logger.Printf("sample %s did not converge after %d iterations (residual %.6g)", prefix, maxIterations, lastNorm)
	return SampleResult{
		Prefix:     prefix,
		State:      Exhausted,
		Iterations: maxIterations,
		LastNorm:   lastNorm,
		Err:        &PicardNonConvergence{SamplePrefix: prefix, LastNorm: lastNorm, Iterations: maxIterations},
	}
}

// dependentOutputs collects, for every input of sm that is produced by
// another sub-model, the most recently recorded value from that
// producer's trace store. On the first iteration only, an input that is
// neither sampled nor yet produced is seeded to 1.0, breaking the
// cold-start deadlock.
func (d *Driver) dependentOutputs(sm *SubModel, prefix string, iteration int) map[string]float64 {
	out := make(map[string]float64)
	for variable := range sm.Model.DeclaredInputs() {
		producer, ok := d.producerOf(variable)
		if !ok || producer == "sampled" || producer == sm.Name {
			continue
		}
		producerModel, exists := d.subModels[producer]
		if !exists {
			continue
		}
		if v, ok := producerModel.Trace.LatestScalar(prefix, variable); ok {
			out[variable] = v
		} else if iteration == 1 {
			out[variable] = 1.0
		}
	}
	return out
}
