package sink

import "github.com/zerfoo/ensemble/model"

// TraceSink adapts a *model.TraceStore to DataSink. It exists so the
// "target must not be the same object as any sub-model's private trace
// store" invariant (§4.5, §7) is mechanically checkable by pointer
// identity: a caller who points EnsembleCore.CollectOutput at a sink
// wrapping the very store a sub-model writes into is rejected with
// SinkOverlapError.
type TraceSink struct {
	store   *model.TraceStore
	current string
}

// NewTraceSink wraps store as a DataSink.
func NewTraceSink(store *model.TraceStore) *TraceSink {
	return &TraceSink{store: store}
}

// Underlying returns the wrapped TraceStore, used for identity
// comparison.
func (t *TraceSink) Underlying() *model.TraceStore { return t.store }

func (t *TraceSink) Kind() Type { return PointSet }

func (t *TraceSink) GetParaKeys(role string) []string { return nil }

func (t *TraceSink) AddGroup(attrs map[string]any) error {
	prefix, _ := attrs["prefix"].(string)
	t.current = prefix
	return nil
}

func (t *TraceSink) UpdateInputValue(key string, value float64) {
	t.store.UpdateInputValue(t.current, key, value)
}

func (t *TraceSink) UpdateOutputValue(key string, value float64) {
	t.store.UpdateOutputValue(t.current, key, value)
}

func (t *TraceSink) UpdateMetadata(key string, value any) {
	t.store.UpdateMetadata(t.current, key, value)
}

var _ DataSink = (*TraceSink)(nil)
