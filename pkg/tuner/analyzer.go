package tuner

import (
	"time"

	"github.com/metalblueberry/bard/pkg/pitch"
)

// Snapshot is the immutable result of one analysis cycle.
type Snapshot struct {
	At         time.Time
	Estimate   pitch.Estimate
	Smoothed   float64
	HasPitch   bool
	Reading    Reading
	HasReading bool
	Strings    []StringStatus
}

// Analyzer chains estimator, smoother and tracker for one frame at a time.
// It is driven by a single analysis loop and is not safe for concurrent use.
type Analyzer struct {
	estimator *pitch.Estimator
	smoother  *Smoother
	tracker   *Tracker
}

// NewAnalyzer creates an analyzer tracking the given tracker's references.
func NewAnalyzer(tracker *Tracker) *Analyzer {
	if tracker == nil {
		tracker = NewTracker()
	}

	return &Analyzer{
		estimator: pitch.NewEstimator(),
		smoother:  NewSmoother(),
		tracker:   tracker,
	}
}

// Tracker returns the tracker fed by this analyzer.
func (a *Analyzer) Tracker() *Tracker {
	return a.tracker
}

// Analyze runs one frame through the pipeline.
func (a *Analyzer) Analyze(frame []float32, sampleRate float64, now time.Time) Snapshot {
	snap := Snapshot{
		At:       now,
		Estimate: a.estimator.Estimate(frame, sampleRate),
	}

	smoothed, ok := a.smoother.Accept(snap.Estimate)

	if !ok {
		a.tracker.Lost()
		snap.Strings = a.tracker.Strings()
		return snap
	}

	snap.Smoothed = smoothed
	snap.HasPitch = true
	snap.Reading, snap.HasReading = a.tracker.Update(smoothed, now)
	snap.Strings = a.tracker.Strings()
	return snap
}
