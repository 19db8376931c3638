package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metalblueberry/bard/pkg/pitch"
	"github.com/metalblueberry/bard/pkg/tuner"
	"go.uber.org/zap"
)

const (
	DefaultAnalysisRate = 60

	// LossTimeout is how long the stream may stay silent before the device
	// is considered gone.
	LossTimeout = time.Second
)

// Session owns one capture device and the analysis loop reading from it.
type Session struct {
	ID uuid.UUID

	opener   Opener
	analyzer *tuner.Analyzer
	buffer   *SignalBuffer
	interval time.Duration
	loss     time.Duration
	publish  func(tuner.Snapshot)
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.RWMutex
	snapshot   tuner.Snapshot
	sampleRate float64
	running    bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithAnalysisRate sets how many analysis cycles run per second.
func WithAnalysisRate(hz int) SessionOption {
	return func(s *Session) {
		if hz > 0 {
			s.interval = time.Second / time.Duration(hz)
		}
	}
}

// WithAnalyzer replaces the default analysis pipeline.
func WithAnalyzer(a *tuner.Analyzer) SessionOption {
	return func(s *Session) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithPublisher is called with every snapshot, on the analysis goroutine.
func WithPublisher(f func(tuner.Snapshot)) SessionOption {
	return func(s *Session) {
		s.publish = f
	}
}

// WithSessionLogger attaches a logger.
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession prepares a session; nothing is acquired until Run.
func NewSession(opener Opener, opts ...SessionOption) *Session {
	s := &Session{
		ID:       uuid.New(),
		opener:   opener,
		analyzer: tuner.NewAnalyzer(nil),
		buffer:   NewSignalBuffer(pitch.FrameSize),
		interval: time.Second / DefaultAnalysisRate,
		loss:     LossTimeout,
		logger:   zap.NewNop(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(zap.String("component", "capture"), zap.Stringer("session", s.ID))
	return s
}

// Tracker exposes the tuning tracker driven by this session.
func (s *Session) Tracker() *tuner.Tracker {
	return s.analyzer.Tracker()
}

// Run acquires the device and analyzes until ctx is done or capture fails.
// The device is released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	dev, err := s.opener.Open(ctx, s.buffer.Write)
	if err != nil {
		s.logger.Error("capture failed to start", zap.Error(err))
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			s.logger.Warn("releasing capture device", zap.Error(err))
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("capture stopped")
	}()

	rate := dev.SampleRate()
	s.mu.Lock()
	s.sampleRate = rate
	s.running = true
	s.mu.Unlock()
	s.logger.Info("capture started", zap.Float64("sample_rate", rate), zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := make([]float32, pitch.FrameSize)
	started := s.now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := s.now()
		last := s.buffer.LastWrite()
		if last.IsZero() {
			last = started
		}
		if silent := now.Sub(last); silent > s.loss {
			err := &Error{Kind: DeviceLost, Err: fmt.Errorf("no samples for %s", silent.Round(time.Millisecond))}
			s.logger.Error("capture lost", zap.Error(err))
			return err
		}

		if !s.buffer.Frame(frame) {
			continue
		}

		snap := s.analyzer.Analyze(frame, rate, now)
		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()

		if snap.HasReading && snap.Reading.JustLocked {
			s.logger.Info("string locked", zap.String("string", snap.Reading.Reference.Name))
		}

		if s.publish != nil {
			s.publish(snap)
		}
	}
}

// Snapshot returns the latest analysis result.
func (s *Session) Snapshot() tuner.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Running reports whether a device is currently held.
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SampleRate of the open device, zero before Run.
func (s *Session) SampleRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampleRate
}

// Waveform appends the buffered samples to dst, oldest first.
func (s *Session) Waveform(dst []float32) []float32 {
	return s.buffer.Recent(dst)
}
