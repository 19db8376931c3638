package tuner

import (
	"math"
	"testing"
	"time"

	"github.com/metalblueberry/bard/pkg/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func offset(ref Reference, cents float64) float64 {
	return ref.Frequency * math.Pow(2, cents/1200)
}

func TestTrackerMatchesEveryReferenceWithinWindow(t *testing.T) {
	for _, ref := range StandardTuning() {
		for delta := -50.0; delta <= 50.0; delta += 2.5 {
			tr := NewTracker()
			reading, ok := tr.Update(offset(ref, delta), epoch)
			require.True(t, ok, "%s %+.1f cents", ref.Name, delta)
			assert.Equal(t, ref, reading.Reference)
			assert.InDelta(t, math.Round(delta), float64(reading.Cents), 1, "%s %+.1f cents", ref.Name, delta)
		}
	}
}

func TestTrackerRejectsOffChartFrequencies(t *testing.T) {
	tr := NewTracker()

	for _, freq := range []float64{60, 95, 128, 170, 221, 290, 600, 0, -3, math.NaN()} {
		_, ok := tr.Update(freq, epoch)
		assert.False(t, ok, "%.1f Hz", freq)
	}

	e2 := StandardTuning()[0]
	_, ok := tr.Update(offset(e2, 51), epoch)
	assert.False(t, ok)
}

func TestTrackerTieBreakFirstDefinedWins(t *testing.T) {
	low := Reference{Name: "low", Frequency: 100}
	high := Reference{Name: "high", Frequency: 101}

	reading, ok := NewTracker(low, high).Update(100.5, epoch)
	require.True(t, ok)
	assert.Equal(t, "low", reading.Reference.Name)

	reading, ok = NewTracker(high, low).Update(100.5, epoch)
	require.True(t, ok)
	assert.Equal(t, "high", reading.Reference.Name)
}

func TestTrackerLocksAfterSustainedHold(t *testing.T) {
	a2 := StandardTuning()[1]
	tr := NewTracker()
	freq := offset(a2, 3)

	for ms := 0; ms < 2000; ms += 100 {
		reading, ok := tr.Update(freq, epoch.Add(time.Duration(ms)*time.Millisecond))
		require.True(t, ok)
		assert.False(t, reading.Locked, "locked early at %d ms", ms)
	}

	locks := 0
	for ms := 2000; ms <= 4000; ms += 100 {
		reading, ok := tr.Update(freq, epoch.Add(time.Duration(ms)*time.Millisecond))
		require.True(t, ok)
		assert.True(t, reading.Locked)
		if reading.JustLocked {
			locks++
		}
	}
	assert.Equal(t, 1, locks)
	assert.True(t, tr.Locked("A2"))
}

func TestTrackerHoldRestartsWhenLeavingLockWindow(t *testing.T) {
	d3 := StandardTuning()[2]
	tr := NewTracker()

	tr.Update(offset(d3, 0), epoch)
	tr.Update(offset(d3, 20), epoch.Add(1500*time.Millisecond))
	tr.Update(offset(d3, 0), epoch.Add(1600*time.Millisecond))

	reading, _ := tr.Update(offset(d3, 0), epoch.Add(2500*time.Millisecond))
	assert.False(t, reading.Locked, "hold must restart after drifting out of tune")

	reading, _ = tr.Update(offset(d3, 0), epoch.Add(3600*time.Millisecond))
	assert.True(t, reading.Locked)
}

func TestTrackerHoldRestartsOnNewString(t *testing.T) {
	refs := StandardTuning()
	tr := NewTracker()

	tr.Update(refs[3].Frequency, epoch)
	tr.Update(refs[4].Frequency, epoch.Add(1000*time.Millisecond))
	reading, _ := tr.Update(refs[3].Frequency, epoch.Add(2100*time.Millisecond))
	assert.False(t, reading.Locked)

	reading, _ = tr.Update(refs[3].Frequency, epoch.Add(4100*time.Millisecond))
	assert.True(t, reading.Locked)
}

func TestTrackerLostRestartsHold(t *testing.T) {
	e4 := StandardTuning()[5]
	tr := NewTracker()

	tr.Update(e4.Frequency, epoch)
	tr.Lost()
	reading, _ := tr.Update(e4.Frequency, epoch.Add(2500*time.Millisecond))
	assert.False(t, reading.Locked)
}

func TestTrackerLockIsOneWay(t *testing.T) {
	g3 := StandardTuning()[3]
	tr := NewTracker()
	tr.Update(g3.Frequency, epoch)
	tr.Update(g3.Frequency, epoch.Add(LockHold))

	reading, ok := tr.Update(offset(g3, 40), epoch.Add(3*time.Second))
	require.True(t, ok)
	assert.True(t, reading.Locked, "lock stays after drifting away")
	assert.False(t, reading.JustLocked)

	strings := tr.Strings()
	require.Len(t, strings, 6)
	assert.True(t, strings[3].Locked)
	assert.False(t, strings[0].Locked)

	tr.Reset()
	assert.False(t, tr.Locked("G3"))
}

func TestSmootherAveragesLastFive(t *testing.T) {
	s := NewSmoother()

	for i, freq := range []float64{100, 102, 104, 106, 108, 110, 112} {
		mean, ok := s.Accept(pitch.Estimate{Frequency: freq, Clarity: 0.9})
		require.True(t, ok)
		switch i {
		case 0:
			assert.Equal(t, 100.0, mean)
		case 1:
			assert.Equal(t, 101.0, mean)
		case 6:
			assert.Equal(t, 108.0, mean)
		}
	}
}

func TestSmootherClearsOnRejectedEstimate(t *testing.T) {
	s := NewSmoother()
	s.Accept(pitch.Estimate{Frequency: 440, Clarity: 0.95})
	s.Accept(pitch.Estimate{Frequency: 442, Clarity: 0.95})

	_, ok := s.Accept(pitch.NoPitch)
	assert.False(t, ok)

	mean, ok := s.Accept(pitch.Estimate{Frequency: 200, Clarity: 0.95})
	require.True(t, ok)
	assert.Equal(t, 200.0, mean, "history before the gap must not leak")
}

func TestAnalyzerPublishesReadingForSine(t *testing.T) {
	const sampleRate = 48000.0
	a2 := StandardTuning()[1]
	frame := make([]float32, pitch.FrameSize)
	freq := offset(a2, -12)
	for i := range frame {
		frame[i] = float32(0.4 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}

	an := NewAnalyzer(nil)
	snap := an.Analyze(frame, sampleRate, epoch)
	require.True(t, snap.HasPitch)
	require.True(t, snap.HasReading)
	assert.Equal(t, "A2", snap.Reading.Reference.Name)
	assert.InDelta(t, -12, snap.Reading.Cents, 1)
	assert.Len(t, snap.Strings, 6)

	silent := an.Analyze(make([]float32, pitch.FrameSize), sampleRate, epoch.Add(time.Second))
	assert.False(t, silent.HasPitch)
	assert.False(t, silent.HasReading)
}
