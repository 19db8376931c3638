package metronome

import (
	"math"
	"sync"
	"time"

	"github.com/metalblueberry/bard/internal/numeric"
	"github.com/metalblueberry/bard/pkg/circular"
	"gonum.org/v1/gonum/stat"
)

const (
	TapDepth      = 4
	TapInactivity = 2000 * time.Millisecond
)

// TapTempo turns tapped timestamps into a tempo estimate.
type TapTempo struct {
	mu        sync.Mutex
	taps      *circular.Buffer[time.Time]
	times     []time.Time
	intervals []float64
}

// NewTapTempo creates an estimator remembering the last TapDepth taps.
func NewTapTempo() *TapTempo {
	return &TapTempo{
		taps:      circular.CreateBuffer[time.Time](TapDepth),
		times:     make([]time.Time, 0, TapDepth),
		intervals: make([]float64, 0, TapDepth-1),
	}
}

// Tap registers a tap at now and returns the tempo implied by the remembered
// taps. It reports false with fewer than two taps or when the tempo falls
// outside [MinBPM, MaxBPM]. A pause longer than TapInactivity starts a new
// sequence.
func (t *TapTempo) Tap(now time.Time) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.taps.Newest(); ok && now.Sub(last) > TapInactivity {
		t.taps.Reset()
	}

	t.taps.Enqueue(now)
	t.times = t.taps.Values(t.times[:0])

	if len(t.times) < 2 {
		return 0, false
	}

	t.intervals = t.intervals[:0]
	for i := 1; i < len(t.times); i++ {
		t.intervals = append(t.intervals, float64(t.times[i].Sub(t.times[i-1]))/float64(time.Millisecond))
	}

	meanMs := stat.Mean(t.intervals, nil)
	if meanMs <= 0 {
		return 0, false
	}

	bpm := int(math.Round(60000 / meanMs))
	if !numeric.Within(bpm, MinBPM, MaxBPM) {
		return 0, false
	}

	return bpm, true
}

// Taps returns how many taps the current sequence holds.
func (t *TapTempo) Taps() int {
	return t.taps.Count()
}

// Reset forgets all taps.
func (t *TapTempo) Reset() {
	t.taps.Reset()
}
