package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/progression"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace}

type fakeClock struct {
	mu      sync.Mutex
	starts  []int
	stops   int
	tempos  []int
	running bool
}

func (c *fakeClock) Start(bpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = append(c.starts, bpm)
	c.running = true
}

func (c *fakeClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.running = false
}

func (c *fakeClock) SetTempo(bpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempos = append(c.tempos, bpm)
}

func (c *fakeClock) State() metronome.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return metronome.State{Running: c.running}
}

func (c *fakeClock) Tempos() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.tempos...)
}

func immediate(m MetronomeModel) MetronomeModel {
	m.debounce = func(f func()) { f() }
	return m
}

func update(t *testing.T, m MetronomeModel, msgs ...tea.Msg) MetronomeModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(MetronomeModel)
		require.True(t, ok)
	}
	return m
}

func TestMetronomeStartStop(t *testing.T) {
	clock := &fakeClock{}
	m := immediate(NewMetronomeModel(clock, nil, nil, 90))

	m = update(t, m, space)
	assert.True(t, m.Running)
	assert.Equal(t, []int{90}, clock.starts)

	m = update(t, m, space)
	assert.False(t, m.Running)
	assert.Equal(t, 1, clock.stops)
}

func TestMetronomeTempoKeys(t *testing.T) {
	clock := &fakeClock{}
	m := immediate(NewMetronomeModel(clock, nil, nil, 120))

	m = update(t, m, runes("+"), runes("+"), runes("]"), runes("-"))
	assert.Equal(t, 131, m.Target)
	assert.Equal(t, []int{121, 122, 132, 131}, clock.Tempos())

	m = update(t, m, runes("["), runes("["), runes("["), runes("["))
	m = update(t, m, runes("["), runes("["), runes("["), runes("["), runes("["), runes("["))
	assert.Equal(t, metronome.MinBPM, m.Target)
}

func TestMetronomeTempoKeysAreDebounced(t *testing.T) {
	clock := &fakeClock{}
	m := NewMetronomeModel(clock, nil, nil, 100)
	m.debounce = debounce.New(20 * time.Millisecond)

	m = update(t, m, runes("+"), runes("+"), runes("+"), runes("+"))
	assert.Equal(t, 104, m.Target)

	require.Eventually(t, func() bool { return len(clock.Tempos()) > 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int{104}, clock.Tempos())
}

func TestMetronomeTapTempo(t *testing.T) {
	clock := &fakeClock{}
	m := immediate(NewMetronomeModel(clock, nil, nil, 120))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }

	for i := 0; i < 4; i++ {
		m = update(t, m, runes("t"))
		at = at.Add(750 * time.Millisecond)
	}

	assert.True(t, m.Tapped)
	assert.Equal(t, 80, m.Target)
	assert.Equal(t, 80, clock.Tempos()[len(clock.Tempos())-1])
}

func TestMetronomeBeatsAdvanceProgression(t *testing.T) {
	clock := &fakeClock{}
	p, err := progression.Lookup("I-IV-V-I")
	require.NoError(t, err)
	beats := make(chan metronome.Beat, 1)
	m := immediate(NewMetronomeModel(clock, beats, progression.NewFollower(p), 120))
	m = update(t, m, space)

	next, cmd := m.Update(BeatMsg{Beat: metronome.Beat{Index: 0, Count: 8, Downbeat: true}})
	m = next.(MetronomeModel)
	require.NotNil(t, cmd, "keeps listening for beats")
	assert.Equal(t, "F", m.Position.Chord)
	assert.True(t, m.Position.Phase)
	assert.Contains(t, m.View(), "F")

	beats <- metronome.Beat{Index: 1, Count: 9}
	msg := cmd()
	assert.Equal(t, BeatMsg{Beat: metronome.Beat{Index: 1, Count: 9}}, msg)

	close(beats)
	next, _ = m.Update(waitForBeat(beats)())
	assert.False(t, next.(MetronomeModel).Running)
}

func TestMetronomeQuitStopsClock(t *testing.T) {
	clock := &fakeClock{}
	m := NewMetronomeModel(clock, nil, nil, 120)

	next, cmd := m.Update(runes("q"))
	assert.True(t, next.(MetronomeModel).Quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1, clock.stops)
}

func TestTunerModelShowsReading(t *testing.T) {
	updates := make(chan tea.Msg, 1)
	m := NewTunerModel(updates)
	require.NotNil(t, m.Init())

	snap := tuner.Snapshot{
		HasPitch:   true,
		Smoothed:   110.5,
		HasReading: true,
		Reading: tuner.Reading{
			Reference: tuner.Reference{Name: "A2", Frequency: 110},
			Frequency: 110.5,
			Cents:     8,
		},
		Strings: []tuner.StringStatus{
			{Reference: tuner.Reference{Name: "E2"}, Locked: true},
			{Reference: tuner.Reference{Name: "A2"}},
		},
	}

	next, cmd := m.Update(SnapshotMsg{Snapshot: snap})
	m = next.(TunerModel)
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "A2")
	assert.Contains(t, view, "110.5 Hz")
	assert.Contains(t, view, "+8")
	assert.Contains(t, view, "E2✓")
}

func TestTunerModelOffChart(t *testing.T) {
	m := NewTunerModel(nil)
	next, _ := m.Update(SnapshotMsg{Snapshot: tuner.Snapshot{HasPitch: true, Smoothed: 600}})
	assert.Contains(t, next.View(), "600.0 Hz is not a string")
}

func TestTunerModelCaptureError(t *testing.T) {
	m := NewTunerModel(nil)
	err := &capture.Error{Kind: capture.PermissionDenied, Err: errors.New("denied")}

	next, cmd := m.Update(CaptureErrMsg{Err: err})
	assert.Nil(t, cmd)
	assert.Contains(t, next.View(), "Microphone access was denied")
}

func TestRenderMeter(t *testing.T) {
	center := []rune(renderMeter(0))
	assert.Contains(t, string(center), "●")

	assert.Equal(t, renderMeter(50), renderMeter(80), "needle is pinned at the edge")
	assert.NotEqual(t, renderMeter(-10), renderMeter(10))
}
