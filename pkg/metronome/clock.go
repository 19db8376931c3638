// Package metronome schedules beat ticks against wall-clock time and derives
// tempo from tapped timestamps.
package metronome

import (
	"sync"
	"time"

	"github.com/metalblueberry/bard/internal/numeric"
	"go.uber.org/zap"
)

const (
	MinBPM = 40
	MaxBPM = 300

	// BeatsPerMeasure is fixed; beat 0 is the downbeat.
	BeatsPerMeasure = 4

	DefaultBPM = 120
)

// Sounder renders the audible part of a tick. Play must return quickly; it
// runs inside the tick handler.
type Sounder interface {
	Play(downbeat bool) error
}

// Beat is published once per tick. Index is the pulse within the measure,
// Count the monotonic beat number since Start.
type Beat struct {
	Index    int       `json:"index"`
	Count    uint64    `json:"count"`
	BPM      int       `json:"bpm"`
	Downbeat bool      `json:"downbeat"`
	At       time.Time `json:"at"`
}

// State is a snapshot of the clock.
type State struct {
	BPM         int   `json:"bpm"`
	CurrentBeat int   `json:"current_beat"`
	BeatCount   int64 `json:"beat_count"`
	Running     bool  `json:"running"`
}

// Option configures a Clock.
type Option func(*Clock)

// WithTimebase replaces the wall clock.
func WithTimebase(tb Timebase) Option {
	return func(c *Clock) {
		c.timebase = tb
	}
}

// WithSounder attaches the click output.
func WithSounder(s Sounder) Option {
	return func(c *Clock) {
		c.sounder = s
	}
}

// WithLogger sets the logger used for sounder failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// Clock is a self-correcting beat scheduler. Each tick re-arms a single-shot
// timer from the tempo current at re-arm time, measured from the previous
// deadline rather than from when the handler ran.
type Clock struct {
	timebase Timebase
	sounder  Sounder
	logger   *zap.Logger

	mu          sync.Mutex
	running     bool
	bpm         int
	beatCount   int64
	currentBeat int
	next        time.Time
	timer       Timer
	generation  uint64
	subscribers map[uint64]chan Beat
	nextSubID   uint64
	dropped     uint64
}

// NewClock creates an idle clock at DefaultBPM.
func NewClock(opts ...Option) *Clock {
	c := &Clock{
		timebase:    SystemTimebase{},
		logger:      zap.NewNop(),
		bpm:         DefaultBPM,
		beatCount:   -1,
		subscribers: make(map[uint64]chan Beat),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "metronome"))
	return c
}

// ClampBPM limits bpm to [MinBPM, MaxBPM].
func ClampBPM(bpm int) int {
	return numeric.Clamp(bpm, MinBPM, MaxBPM)
}

// Interval returns the time between beats at bpm.
func Interval(bpm int) time.Duration {
	return time.Minute / time.Duration(ClampBPM(bpm))
}

// Start begins a session at bpm. The first tick is scheduled immediately and
// carries beat count 0. Starting a running clock restarts it.
func (c *Clock) Start(bpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	c.bpm = ClampBPM(bpm)
	c.beatCount = -1
	c.currentBeat = 0
	c.running = true
	c.next = c.timebase.Now()
	c.arm(0)

	c.logger.Debug("started", zap.Int("bpm", c.bpm))
}

// Stop cancels the pending tick. No tick fires once Stop has returned. Beat
// counters are left as they are.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancel()
	c.running = false
	c.logger.Debug("stopped", zap.Int64("beat_count", c.beatCount))
}

// SetTempo changes the tempo. While running, a different tempo cancels the
// pending tick and re-arms one full new interval from now; the beat count is
// kept. Setting the current tempo again is a no-op.
func (c *Clock) SetTempo(bpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bpm = ClampBPM(bpm)

	if bpm == c.bpm {
		return
	}

	c.bpm = bpm

	if !c.running {
		return
	}

	c.cancel()
	interval := Interval(bpm)
	c.next = c.timebase.Now().Add(interval)
	c.arm(interval)
	c.logger.Debug("tempo changed", zap.Int("bpm", bpm))
}

// State returns a snapshot.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		BPM:         c.bpm,
		CurrentBeat: c.currentBeat,
		BeatCount:   c.beatCount,
		Running:     c.running,
	}
}

// Dropped returns how many beat events were discarded because a subscriber
// was not keeping up.
func (c *Clock) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Subscribe returns a channel receiving every beat and a function that
// unsubscribes and closes it. Beats are dropped, never queued beyond buffer.
func (c *Clock) Subscribe(buffer int) (<-chan Beat, func()) {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Beat, buffer)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// arm schedules the next tick after d. Callers hold mu.
func (c *Clock) arm(d time.Duration) {
	c.generation++
	gen := c.generation
	c.timer = c.timebase.AfterFunc(d, func() {
		c.tick(gen)
	})
}

// cancel stops the pending timer. Bumping the generation turns a timer that
// is already waiting for mu into a no-op. Callers hold mu.
func (c *Clock) cancel() {
	c.generation++

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || gen != c.generation {
		return
	}

	c.beatCount++
	c.currentBeat = int(c.beatCount % BeatsPerMeasure)
	now := c.timebase.Now()

	beat := Beat{
		Index:    c.currentBeat,
		Count:    uint64(c.beatCount),
		BPM:      c.bpm,
		Downbeat: c.currentBeat == 0,
		At:       now,
	}

	if c.sounder != nil {
		if err := c.sounder.Play(beat.Downbeat); err != nil {
			c.logger.Warn("click failed", zap.Uint64("beat", beat.Count), zap.Error(err))
		}
	}

	for _, ch := range c.subscribers {
		select {
		case ch <- beat:
		default:
			c.dropped++
		}
	}

	interval := Interval(c.bpm)
	c.next = c.next.Add(interval)

	if !c.next.After(now) {
		c.next = now.Add(interval)
	}

	c.arm(c.next.Sub(now))
}
