package sink

import "sync"

// Group is one sample's accumulated record in a MemorySink.
type Group struct {
	Prefix   string
	Inputs   map[string]float64
	Outputs  map[string]float64
	Metadata map[string]any
}

// MemorySink is an in-memory tabular-grouped DataSink, useful for tests
// and for CLI runs that don't need a parquet file on disk.
type MemorySink struct {
	mu      sync.Mutex
	groups  []*Group
	current *Group
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Kind() Type { return TabularGrouped }

func (s *MemorySink) GetParaKeys(role string) []string { return nil }

func (s *MemorySink) AddGroup(attrs map[string]any) error {
	prefix, _ := attrs["prefix"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &Group{Prefix: prefix, Inputs: map[string]float64{}, Outputs: map[string]float64{}, Metadata: map[string]any{}}
	s.groups = append(s.groups, g)
	s.current = g
	return nil
}

func (s *MemorySink) UpdateInputValue(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Inputs[key] = value
	}
}

func (s *MemorySink) UpdateOutputValue(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Outputs[key] = value
	}
}

func (s *MemorySink) UpdateMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Metadata[key] = value
	}
}

// Groups returns every recorded group, in AddGroup call order.
func (s *MemorySink) Groups() []*Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Group, len(s.groups))
	copy(out, s.groups)
	return out
}

var _ DataSink = (*MemorySink)(nil)
