package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/parquet-go/parquet-go"
)

// ResultRow is one (sample prefix, role, variable) tuple written to the
// parquet file backing ParquetSink. A tall/long layout, rather than one
// wide row per sample, avoids having to predeclare a schema over the
// union of every sub-model's variable names, which is not known until
// configuration load completes.
type ResultRow struct {
	Prefix string  `parquet:"prefix"`
	Role   string  `parquet:"role"` // "input", "output", or "metadata"
	Key    string  `parquet:"key"`
	Value  float64 `parquet:"value,optional"`
	Text   string  `parquet:"text,optional"` // populated instead of Value for non-numeric metadata
}

// ParquetSink is a tabular-grouped DataSink that accumulates ResultRow
// records in memory, one AddGroup call per sample prefix, and writes them
// to a parquet file on Flush. Continues the teacher's parquet.WriteFile
// row-oriented persistence idiom.
type ParquetSink struct {
	mu      sync.Mutex
	path    string
	rows    []ResultRow
	current string
}

// NewParquetSink returns a ParquetSink that will write to path on Flush.
func NewParquetSink(path string) *ParquetSink {
	return &ParquetSink{path: path}
}

func (s *ParquetSink) Kind() Type { return TabularGrouped }

// GetParaKeys is not enforced by ParquetSink; it accepts whatever keys
// sub-models report, since the sink has no static schema of its own.
func (s *ParquetSink) GetParaKeys(role string) []string { return nil }

// AddGroup opens a new group for the sample prefix carried in attrs
// under key "prefix".
func (s *ParquetSink) AddGroup(attrs map[string]any) error {
	prefix, ok := attrs["prefix"].(string)
	if !ok || prefix == "" {
		return fmt.Errorf("sink: AddGroup requires a non-empty string \"prefix\" attribute")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = prefix
	return nil
}

func (s *ParquetSink) UpdateInputValue(key string, value float64) {
	s.append("input", key, value, "")
}

func (s *ParquetSink) UpdateOutputValue(key string, value float64) {
	s.append("output", key, value, "")
}

func (s *ParquetSink) UpdateMetadata(key string, value any) {
	if f, ok := toFloat64(value); ok {
		s.append("metadata", key, f, "")
		return
	}
	s.append("metadata", key, 0, fmt.Sprintf("%v", value))
}

func (s *ParquetSink) append(role, key string, value float64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ResultRow{Prefix: s.current, Role: role, Key: key, Value: value, Text: text})
}

// Flush writes every accumulated row to the configured path as a single
// parquet file, using parquet-go's generic writer.
func (s *ParquetSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return parquet.WriteFile(s.path, s.rows)
}

// WriteTo writes every accumulated row to w as a parquet stream, for
// callers that want the bytes rather than a file on disk.
func (s *ParquetSink) WriteTo(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	writer := parquet.NewGenericWriter[ResultRow](w)
	if _, err := writer.Write(s.rows); err != nil {
		return fmt.Errorf("sink: writing rows: %w", err)
	}
	return writer.Close()
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

var _ DataSink = (*ParquetSink)(nil)
