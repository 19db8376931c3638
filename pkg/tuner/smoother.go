package tuner

import (
	"github.com/metalblueberry/bard/pkg/circular"
	"github.com/metalblueberry/bard/pkg/pitch"
	"gonum.org/v1/gonum/floats"
)

// SmoothingWindow is the number of accepted estimates averaged together.
const SmoothingWindow = 5

// Smoother averages the most recent accepted estimates. A rejected estimate
// clears the history so no stale average outlives a gap.
type Smoother struct {
	window  *circular.Buffer[float64]
	scratch []float64
}

// NewSmoother creates a smoother holding up to SmoothingWindow estimates.
func NewSmoother() *Smoother {
	return &Smoother{
		window:  circular.CreateBuffer[float64](SmoothingWindow),
		scratch: make([]float64, 0, SmoothingWindow),
	}
}

// Accept feeds one estimate and returns the current mean frequency.
func (s *Smoother) Accept(e pitch.Estimate) (float64, bool) {
	if !e.Valid() {
		s.window.Reset()
		return 0, false
	}

	s.window.Enqueue(e.Frequency)
	s.scratch = s.window.Values(s.scratch[:0])
	return floats.Sum(s.scratch) / float64(len(s.scratch)), true
}

// Reset drops the history.
func (s *Smoother) Reset() {
	s.window.Reset()
}
