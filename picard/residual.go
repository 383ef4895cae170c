package picard

import "gonum.org/v1/gonum/floats"

// iterationState tracks, per sub-model and per output variable, the
// current and previous Picard-iterate scalar. The total residual norm is
// not stored; residualNorm recomputes it from the two maps.
type iterationState struct {
	current  map[string]map[string]float64
	previous map[string]map[string]float64
}

func newIterationState(modelNames []string) *iterationState {
	s := &iterationState{
		current:  make(map[string]map[string]float64, len(modelNames)),
		previous: make(map[string]map[string]float64, len(modelNames)),
	}
	for _, name := range modelNames {
		s.current[name] = make(map[string]float64)
		s.previous[name] = make(map[string]float64)
	}
	return s
}

// shift moves every model's current values into previous, ready for the
// next iteration's observations to land in current.
func (s *iterationState) shift() {
	for name, values := range s.current {
		prev := make(map[string]float64, len(values))
		for k, v := range values {
			prev[k] = v
		}
		s.previous[name] = prev
	}
}

func (s *iterationState) observe(modelName, variable string, value float64) {
	s.current[modelName][variable] = value
}

// residualNorm computes the Euclidean norm over the concatenation of
// every model's per-variable (current - previous) differences, matching
// the original's np.linalg.norm(np.asarray(iterOne) - np.asarray(iterZero))
// over the full iterate vector.
func (s *iterationState) residualNorm() float64 {
	var diffs []float64
	for name, values := range s.current {
		prev := s.previous[name]
		for k, v := range values {
			diffs = append(diffs, v-prev[k])
		}
	}
	if len(diffs) == 0 {
		return 0
	}
	return floats.Norm(diffs, 2)
}
