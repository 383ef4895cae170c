package core

import (
	"fmt"
	"sync"

	"github.com/zerfoo/ensemble/model"
)

// Entry is one constructed sub-model: its static spec, the running Model
// instance, and its private TraceStore.
type Entry struct {
	Spec  SubModelConfig
	Model model.Model
	Trace *model.TraceStore
}

// Registry is EnsembleCore's sub-model registry (§3 Ownership,
// §5 "a single mutex-equivalent guards the EnsembleCore registry during
// initialize; after initialize, the registry is read-only"). Modeled on
// model_registry.go's ModelRegistry[T]: an unconditionally mutex-guarded
// struct even though reads after initialize are safe without it, matching
// the teacher's own practice rather than introducing an atomic-swap
// optimization it doesn't use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers a constructed sub-model entry under its name, in
// declaration order. Duplicate names are rejected.
func (r *Registry) Add(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.Spec.Name]; exists {
		return fmt.Errorf("core: sub-model %q is already registered", entry.Spec.Name)
	}
	r.entries[entry.Spec.Name] = entry
	r.order = append(r.order, entry.Spec.Name)
	return nil
}

// Get returns the entry for name, if any.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered sub-model name in declaration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered entry in declaration order.
func (r *Registry) All() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}
