package model

import "fmt"

// base is embedded by every SubModelAdapter variant. It supplies the
// shared, variant-independent halves of the Model contract
// (DeclaredInputs/DeclaredOutputs, Initialize, CreateNewInput,
// UpdateInputFromOutside) so each variant file need only implement Run and
// CollectOutput. Grounded in model/adapters.go's StandardModelInstance: a
// thin struct wrapping variant-specific state while satisfying the shared
// interface surface.
type base struct {
	name             string
	inputs           map[string]struct{}
	outputs          map[string]struct{}
	objectNames      []string
	initialized      bool
	inputObjectNames map[string]struct{}
}

func newBase(name string, inputs, outputs []string, objectNames []string) base {
	in := make(map[string]struct{}, len(inputs))
	for _, v := range inputs {
		in[v] = struct{}{}
	}
	out := make(map[string]struct{}, len(outputs))
	for _, v := range outputs {
		out[v] = struct{}{}
	}
	objSet := make(map[string]struct{}, len(objectNames))
	for _, v := range objectNames {
		objSet[v] = struct{}{}
	}
	return base{name: name, inputs: in, outputs: out, objectNames: objectNames, inputObjectNames: objSet}
}

func (b *base) DeclaredInputs() map[string]struct{}  { return b.inputs }
func (b *base) DeclaredOutputs() map[string]struct{} { return b.outputs }

func (b *base) Name() string { return b.name }

// Initialize records that the adapter has seen its one-time setup call.
// inputObjects are filtered to the ones this sub-model declared an
// interest in via its InputObjectNames; variants that need the filtered
// slice override Initialize and call filterInputObjects themselves.
func (b *base) Initialize(info RunInfo, inputs []InputObject, initDict map[string]any) error {
	b.initialized = true
	return nil
}

// filterInputObjects returns the subset of inputs whose Name is in
// b.inputObjectNames, mirroring the original's child.attrib["inputNames"]
// filter.
func (b *base) filterInputObjects(inputs []InputObject) []InputObject {
	if len(b.inputObjectNames) == 0 {
		return nil
	}
	filtered := make([]InputObject, 0, len(inputs))
	for _, obj := range inputs {
		if _, ok := b.inputObjectNames[obj.Name]; ok {
			filtered = append(filtered, obj)
		}
	}
	return filtered
}

// CreateNewInput builds the InputPacket's Values from the intersection of
// this sub-model's declared inputs and the sampler's SampledVars, the
// shared half of CreateNewInput every variant uses unchanged.
func (b *base) CreateNewInput(myInput []InputObject, samplerTag string, sampled SampledVars, prefix string, extra map[string]any) (InputPacket, error) {
	if !b.initialized {
		return InputPacket{}, fmt.Errorf("model: %s.CreateNewInput called before Initialize", b.name)
	}
	values := make(map[string]float64, len(b.inputs))
	for name := range b.inputs {
		if v, ok := sampled[name]; ok {
			values[name] = v
		}
	}
	return InputPacket{
		Prefix:    prefix,
		ModelName: b.name,
		Values:    values,
		Metadata:  map[string]any{"samplerTag": samplerTag},
	}, nil
}

// UpdateInputFromOutside folds overrides into a copy of pkt, the shared
// implementation of the immutable-packet re-architecture note.
func (b *base) UpdateInputFromOutside(pkt InputPacket, overrides map[string]float64) (InputPacket, error) {
	next := pkt
	next.Values = make(map[string]float64, len(pkt.Values)+len(overrides))
	for k, v := range pkt.Values {
		next.Values[k] = v
	}
	for k, v := range overrides {
		next.Values[k] = v
	}
	return next, nil
}
