package click

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/metalblueberry/bard/internal/numeric"
	"go.uber.org/zap"
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("click: synthesizer closed")

// Voice is one playing click.
type Voice interface {
	Play()
	IsPlaying() bool
	Err() error
	Close() error
}

// Output opens a voice reading float32 little-endian mono samples.
type Output interface {
	Open(r io.Reader) Voice
}

type otoOutput struct {
	ctx *oto.Context
}

func (o otoOutput) Open(r io.Reader) Voice {
	return o.ctx.NewPlayer(r)
}

// NewOtoOutput creates the process-wide output context. Only one may exist.
func NewOtoOutput(sampleRate int) (Output, error) {
	ctx, ready, err := oto.NewContext(sampleRate, 1, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready
	return otoOutput{ctx: ctx}, nil
}

// Synth plays pre-rendered clicks. Play never blocks on playback; each call
// opens its own voice and a goroutine closes it when it has finished.
type Synth struct {
	output     Output
	sampleRate int
	downbeat   []byte
	beat       []byte
	logger     *zap.Logger
	poll       time.Duration

	mu     sync.Mutex
	closed bool
	voices sync.WaitGroup
}

// SynthOption configures a Synth.
type SynthOption func(*synthConfig)

type synthConfig struct {
	volume float64
}

// WithVolume scales both clicks; values are clamped to [0,1].
func WithVolume(v float64) SynthOption {
	return func(c *synthConfig) {
		c.volume = numeric.Clamp(v, 0, 1)
	}
}

// NewSynth renders both clicks for sampleRate.
func NewSynth(output Output, sampleRate int, logger *zap.Logger, opts ...SynthOption) *Synth {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := synthConfig{volume: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Synth{
		output:     output,
		sampleRate: sampleRate,
		downbeat:   encodeFloat32LE(scale(Render(Downbeat, sampleRate), cfg.volume)),
		beat:       encodeFloat32LE(scale(Render(Beat, sampleRate), cfg.volume)),
		logger:     logger.With(zap.String("component", "click")),
		poll:       10 * time.Millisecond,
	}
}

func scale(samples []float32, v float64) []float32 {
	if v == 1 {
		return samples
	}
	for i := range samples {
		samples[i] *= float32(v)
	}
	return samples
}

// Play starts one click.
func (s *Synth) Play(downbeat bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	buf := s.beat
	if downbeat {
		buf = s.downbeat
	}

	voice := s.output.Open(bytes.NewReader(buf))
	if voice == nil {
		return errors.New("click: output returned no voice")
	}
	voice.Play()

	s.voices.Add(1)
	go s.release(voice, ParamsFor(downbeat).Duration())
	return nil
}

func (s *Synth) release(voice Voice, length time.Duration) {
	defer s.voices.Done()

	time.Sleep(length)
	for voice.IsPlaying() {
		time.Sleep(s.poll)
	}

	if err := voice.Err(); err != nil {
		s.logger.Warn("click playback failed", zap.Error(err))
	}
	if err := voice.Close(); err != nil {
		s.logger.Debug("closing click voice", zap.Error(err))
	}
}

// Close rejects further clicks and waits for playing ones to finish.
func (s *Synth) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.voices.Wait()
	return nil
}
