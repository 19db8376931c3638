package metronome

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeTimer struct {
	tb      *fakeTimebase
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.tb.mu.Lock()
	defer t.tb.mu.Unlock()
	if t.tb.ignoreStop || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeTimebase fires timers only when Advance moves time past them.
// With ignoreStop set, Stop fails as if the timer had already started.
type fakeTimebase struct {
	mu         sync.Mutex
	now        time.Time
	seq        int
	timers     []*fakeTimer
	ignoreStop bool
}

func newFakeTimebase() *fakeTimebase {
	return &fakeTimebase{now: epoch}
}

func (tb *fakeTimebase) Now() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.now
}

func (tb *fakeTimebase) AfterFunc(d time.Duration, f func()) Timer {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.seq++
	t := &fakeTimer{tb: tb, at: tb.now.Add(d), seq: tb.seq, f: f}
	tb.timers = append(tb.timers, t)
	return t
}

func (tb *fakeTimebase) Advance(d time.Duration) {
	tb.mu.Lock()
	target := tb.now.Add(d)
	for {
		var due []*fakeTimer
		for _, t := range tb.timers {
			if !t.fired && (!t.stopped || tb.ignoreStop) && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		tb.now = next.at
		tb.mu.Unlock()
		next.f()
		tb.mu.Lock()
	}
	tb.now = target
	tb.mu.Unlock()
}

type recordingSounder struct {
	mu        sync.Mutex
	downbeats []bool
	err       error
}

func (s *recordingSounder) Play(downbeat bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downbeats = append(s.downbeats, downbeat)
	return s.err
}

func drain(ch <-chan Beat) []Beat {
	var beats []Beat
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return beats
			}
			beats = append(beats, b)
		default:
			return beats
		}
	}
}

func TestStartStopAfterFourTicks(t *testing.T) {
	tb := newFakeTimebase()
	sounder := &recordingSounder{}
	c := NewClock(WithTimebase(tb), WithSounder(sounder))
	beats, unsubscribe := c.Subscribe(16)
	defer unsubscribe()

	c.Start(120)
	tb.Advance(0)
	for i := 0; i < 3; i++ {
		tb.Advance(500 * time.Millisecond)
	}
	c.Stop()
	tb.Advance(5 * time.Second)

	got := drain(beats)
	require.Len(t, got, 4)
	for i, b := range got {
		assert.Equal(t, uint64(i), b.Count)
		assert.Equal(t, i, b.Index)
		assert.Equal(t, i == 0, b.Downbeat)
		assert.Equal(t, epoch.Add(time.Duration(i)*500*time.Millisecond), b.At)
	}
	assert.Equal(t, []bool{true, false, false, false}, sounder.downbeats)

	state := c.State()
	assert.False(t, state.Running)
	assert.Equal(t, int64(3), state.BeatCount)
	assert.Equal(t, 3, state.CurrentBeat)
}

func TestBeatIndexWrapsEveryMeasure(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))
	beats, unsubscribe := c.Subscribe(32)
	defer unsubscribe()

	c.Start(240)
	tb.Advance(9 * Interval(240))
	c.Stop()

	got := drain(beats)
	require.Len(t, got, 10)
	for i, b := range got {
		assert.Equal(t, i%4, b.Index)
		assert.Equal(t, uint64(i), b.Count)
	}
}

func TestRepeatedSetTempoConvergesToInterval(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))
	beats, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	c.Start(100)
	tb.Advance(0)
	for i := 0; i < 24; i++ {
		c.SetTempo(100)
		tb.Advance(300 * time.Millisecond)
	}
	c.Stop()

	got := drain(beats)
	require.GreaterOrEqual(t, len(got), 11)
	want := time.Minute / 100
	for i := 1; i < len(got); i++ {
		assert.Equal(t, want, got[i].At.Sub(got[i-1].At), "interval %d", i)
	}
}

func TestSetTempoRearmsWithoutResettingCount(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))
	beats, unsubscribe := c.Subscribe(16)
	defer unsubscribe()

	c.Start(60)
	tb.Advance(300 * time.Millisecond)
	c.SetTempo(120)
	tb.Advance(500 * time.Millisecond)
	tb.Advance(500 * time.Millisecond)
	c.Stop()

	got := drain(beats)
	require.Len(t, got, 3)
	assert.Equal(t, epoch, got[0].At)
	assert.Equal(t, epoch.Add(800*time.Millisecond), got[1].At)
	assert.Equal(t, epoch.Add(1300*time.Millisecond), got[2].At)
	assert.Equal(t, uint64(2), got[2].Count)
	assert.Equal(t, 120, got[2].BPM)
}

func TestStaleTimerDoesNotDoubleFire(t *testing.T) {
	tb := newFakeTimebase()
	tb.ignoreStop = true
	c := NewClock(WithTimebase(tb))
	beats, unsubscribe := c.Subscribe(16)
	defer unsubscribe()

	c.Start(120)
	tb.Advance(0)
	c.SetTempo(60)
	tb.Advance(500 * time.Millisecond)
	assert.Len(t, drain(beats), 1, "old timer fired into a new generation")

	tb.Advance(500 * time.Millisecond)
	got := drain(beats)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Count)

	c.Stop()
	tb.Advance(5 * time.Second)
	assert.Empty(t, drain(beats))
}

func TestTempoIsClamped(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))

	c.Start(10)
	assert.Equal(t, MinBPM, c.State().BPM)
	c.SetTempo(1000)
	assert.Equal(t, MaxBPM, c.State().BPM)
	c.Stop()

	c.SetTempo(90)
	assert.Equal(t, 90, c.State().BPM)
	assert.False(t, c.State().Running)
}

func TestRestartResetsCount(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))

	c.Start(120)
	tb.Advance(time.Second)
	c.Stop()
	assert.Equal(t, int64(2), c.State().BeatCount)

	c.Start(120)
	assert.Equal(t, int64(-1), c.State().BeatCount)
	tb.Advance(0)
	assert.Equal(t, int64(0), c.State().BeatCount)
}

func TestSounderFailureIsLoggedAndTickCounts(t *testing.T) {
	tb := newFakeTimebase()
	core, logs := observer.New(zapcore.WarnLevel)
	sounder := &recordingSounder{err: errors.New("device gone")}
	c := NewClock(WithTimebase(tb), WithSounder(sounder), WithLogger(zap.New(core)))

	c.Start(120)
	tb.Advance(time.Second)
	c.Stop()

	assert.Equal(t, int64(2), c.State().BeatCount)
	assert.Len(t, sounder.downbeats, 3)
	assert.Equal(t, 3, logs.FilterMessage("click failed").Len())
}

func TestSlowSubscriberDropsBeats(t *testing.T) {
	tb := newFakeTimebase()
	c := NewClock(WithTimebase(tb))
	beats, unsubscribe := c.Subscribe(1)

	c.Start(120)
	tb.Advance(time.Second)
	c.Stop()

	assert.Equal(t, uint64(2), c.Dropped())
	unsubscribe()
	unsubscribe()

	got := drain(beats)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].Count)
	_, open := <-beats
	assert.False(t, open)
}

func TestSystemTimebaseStopsSynchronously(t *testing.T) {
	c := NewClock()
	beats, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	c.Start(MaxBPM)
	deadline := time.After(2 * time.Second)
	for received := 0; received < 3; {
		select {
		case <-beats:
			received++
		case <-deadline:
			t.Fatal("no beats from the system timebase")
		}
	}

	c.Stop()
	drain(beats)
	time.Sleep(3 * Interval(MaxBPM))
	assert.Empty(t, drain(beats), "beat published after Stop returned")
}
