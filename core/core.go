package core

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/zerfoo/ensemble/graph"
	"github.com/zerfoo/ensemble/jobs"
	"github.com/zerfoo/ensemble/model"
	"github.com/zerfoo/ensemble/picard"
	"github.com/zerfoo/ensemble/sink"
)

// SampleContext is the runtime handshake a sampler supplies per sample
// (§6): a unique prefix, the sampled-variable map, and the sampler tag.
// SampledVarsPb (the per-variable probability map) is carried opaquely in
// Extra since the core never inspects it directly.
type SampleContext struct {
	Prefix     string
	Sampled    model.SampledVars
	SamplerTag string
	Extra      map[string]any
}

// SampleResult is the outcome of one sample's run, widening
// picard.SampleResult with the ensemble name for logging/metadata
// purposes.
type SampleResult struct {
	picard.SampleResult
	EnsembleName string
}

// EnsembleCore is the composition root (§4.5): it owns the sub-model
// registry, builds the DependencyGraph once at Initialize, and drives
// createNewInput/run/collectOutput per sample, delegating to the Picard
// driver only when the graph is cyclic.
type EnsembleCore struct {
	name    string
	cfg     *Config
	adapter *model.Registry
	handler jobs.JobHandler
	logger  *log.Logger

	registry *Registry
	depGraph *graph.DependencyGraph
	order    graph.ExecutionOrder
	driver   *picard.Driver

	initialized bool
}

// New builds an uninitialized EnsembleCore. adapters resolves each
// sub-model's declared variant to a constructor; handler is the shared
// job handler every sub-model's Run submits work into.
func New(cfg *Config, adapters *model.Registry, handler jobs.JobHandler, out io.Writer) *EnsembleCore {
	if out == nil {
		out = io.Discard
	}
	return &EnsembleCore{
		name:     cfg.Name,
		cfg:      cfg,
		adapter:  adapters,
		handler:  handler,
		logger:   log.New(out, "ensemblecore: ", log.LstdFlags),
		registry: NewRegistry(),
	}
}

// Initialize constructs every configured sub-model, runs its one-time
// Initialize call, builds the dependency graph and execution order, and
// logs whether Picard iteration will be needed (§4.2 step 5).
func (c *EnsembleCore) Initialize(inputs []model.InputObject, initDict map[string]any) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	nodes := make([]graph.NodeSpec, 0, len(c.cfg.SubModels))
	for _, spec := range c.cfg.SubModels {
		m, err := c.adapter.Build(spec.Variant, spec.Name, spec.Settings)
		if err != nil {
			return fmt.Errorf("core: building sub-model %q: %w", spec.Name, err)
		}
		filtered := filterInputObjects(inputs, spec.InputObjectNames)
		if err := m.Initialize(model.RunInfo{StepName: c.name}, filtered, initDict); err != nil {
			return fmt.Errorf("core: initializing sub-model %q: %w", spec.Name, err)
		}

		entry := &Entry{Spec: spec, Model: m, Trace: model.NewTraceStore()}
		if err := c.registry.Add(entry); err != nil {
			return err
		}
		nodes = append(nodes, graph.NodeSpec{Name: spec.Name, Inputs: m.DeclaredInputs(), Outputs: m.DeclaredOutputs()})
	}

	sampled := make(map[string]struct{}, len(c.cfg.SampledVariables))
	for _, v := range c.cfg.SampledVariables {
		sampled[v] = struct{}{}
	}

	c.depGraph = graph.New(nodes, sampled)
	order, err := c.depGraph.Build()
	if err != nil {
		return err
	}
	c.order = order

	if order.Cyclic {
		c.logger.Printf("ensemble %s: dependency graph is cyclic, Picard iteration will be used", c.name)
	} else {
		c.logger.Printf("ensemble %s: dependency graph is acyclic, single forward sweep will be used", c.name)
	}

	subModels := make(map[string]*picard.SubModel, len(c.cfg.SubModels))
	for _, entry := range c.registry.All() {
		subModels[entry.Spec.Name] = &picard.SubModel{Name: entry.Spec.Name, Model: entry.Model, Trace: entry.Trace}
	}
	c.driver = picard.New(c.name, order.Order, subModels, c.depGraph.Producer, c.handler, c.cfg.Settings.MaxIterations, c.cfg.Settings.Tolerance, io.Discard)

	c.initialized = true
	return nil
}

// CreateNewInput validates the sample's sampled-variable names against
// every declared sub-model output (§7 Validation), then fans CreateNewInput
// out to each registered sub-model, returning one InputPacket per name.
func (c *EnsembleCore) CreateNewInput(sample SampleContext) (map[string]model.InputPacket, error) {
	if !c.initialized {
		return nil, fmt.Errorf("core: CreateNewInput called before Initialize")
	}
	for _, entry := range c.registry.All() {
		for output := range entry.Model.DeclaredOutputs() {
			if _, collides := sample.Sampled[output]; collides {
				return nil, &ValidationError{Prefix: sample.Prefix, Variable: output}
			}
		}
	}

	packets := make(map[string]model.InputPacket, len(c.cfg.SubModels))
	for _, entry := range c.registry.All() {
		pkt, err := entry.Model.CreateNewInput(nil, sample.SamplerTag, sample.Sampled, sample.Prefix, sample.Extra)
		if err != nil {
			return nil, fmt.Errorf("core: sub-model %q CreateNewInput: %w", entry.Spec.Name, err)
		}
		packets[entry.Spec.Name] = pkt
	}
	return packets, nil
}

// TraceStoreFor returns the private TraceStore belonging to the named
// sub-model, used by callers that need direct access to one sub-model's
// target-evaluation trace (e.g. wrapping it in a sink.TraceSink to confirm
// it does not alias an output sink before calling CollectOutput).
func (c *EnsembleCore) TraceStoreFor(name string) (*model.TraceStore, bool) {
	entry, ok := c.registry.Get(name)
	if !ok {
		return nil, false
	}
	return entry.Trace, true
}

// Run executes one sample: a Picard iteration if the dependency graph is
// cyclic, otherwise a single forward sweep in ExecutionOrder.
func (c *EnsembleCore) Run(sample SampleContext, packets map[string]model.InputPacket) SampleResult {
	result := c.driver.RunSample(sample.Prefix, c.order.Cyclic, packets)
	return SampleResult{SampleResult: result, EnsembleName: c.name}
}

// CollectOutput walks every sub-model's trace store for prefix and pushes
// its recorded evaluation into target, one group per sample (§4.5). target
// must not alias any sub-model's private trace store. When result is
// non-nil, its Picard convergence state, iteration count, and last residual
// norm are stamped into the group's metadata (§7: "mark the sample as
// non-converged in its metadata").
func (c *EnsembleCore) CollectOutput(prefix string, target sink.DataSink, result *SampleResult) error {
	for _, entry := range c.registry.All() {
		if sameSink(target, entry.Trace) {
			return &sink.SinkOverlapError{SinkName: entry.Spec.Name}
		}
	}

	if err := target.AddGroup(map[string]any{"prefix": prefix}); err != nil {
		return fmt.Errorf("core: opening sink group for %q: %w", prefix, err)
	}
	if result != nil {
		target.UpdateMetadata("picard.state", result.State.String())
		target.UpdateMetadata("picard.iterations", result.Iterations)
		target.UpdateMetadata("picard.residualNorm", result.LastNorm)
	}
	for _, entry := range c.registry.All() {
		ev, ok := entry.Trace.Get(prefix)
		if !ok {
			continue
		}
		for k, v := range ev.Inputs {
			target.UpdateInputValue(k, v)
		}
		for k, v := range ev.Outputs {
			target.UpdateOutputValue(k, v)
		}
		for k, v := range ev.Metadata {
			target.UpdateMetadata(k, v)
		}
	}
	return nil
}

// RunMany runs every sample concurrently, bounded by concurrency, and
// returns results in the same order as samples. Grounded in the
// teacher's plain sync/chan concurrency primitives (no errgroup import in
// the teacher's own go.mod).
func (c *EnsembleCore) RunMany(samples []SampleContext, concurrency int) []SampleResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]SampleResult, len(samples))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, sample := range samples {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sample SampleContext) {
			defer wg.Done()
			defer func() { <-sem }()

			packets, err := c.CreateNewInput(sample)
			if err != nil {
				results[i] = SampleResult{SampleResult: picard.SampleResult{Prefix: sample.Prefix, State: picard.Failed, Err: err}, EnsembleName: c.name}
				return
			}
			results[i] = c.Run(sample, packets)
		}(i, sample)
	}
	wg.Wait()
	return results
}

func filterInputObjects(inputs []model.InputObject, names []string) []model.InputObject {
	if len(names) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	filtered := make([]model.InputObject, 0, len(inputs))
	for _, obj := range inputs {
		if _, ok := allowed[obj.Name]; ok {
			filtered = append(filtered, obj)
		}
	}
	return filtered
}

func sameSink(target sink.DataSink, trace *model.TraceStore) bool {
	if ts, ok := target.(*sink.TraceSink); ok {
		return ts.Underlying() == trace
	}
	return false
}
