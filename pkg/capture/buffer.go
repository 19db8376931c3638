package capture

import (
	"sync/atomic"
	"time"

	"github.com/metalblueberry/bard/pkg/circular"
)

// SignalBuffer holds the most recent samples written by the audio callback.
type SignalBuffer struct {
	samples   *circular.Buffer[float32]
	lastWrite atomic.Int64
	now       func() time.Time
}

// NewSignalBuffer creates a buffer keeping the last size samples.
func NewSignalBuffer(size int) *SignalBuffer {
	return &SignalBuffer{
		samples: circular.CreateBuffer[float32](size),
		now:     time.Now,
	}
}

// Write appends a block of samples.
func (b *SignalBuffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.samples.Enqueue(samples...)
	b.lastWrite.Store(b.now().UnixNano())
}

// Frame copies the full window into dst, oldest sample first. It reports
// false until the buffer has been filled once.
func (b *SignalBuffer) Frame(dst []float32) bool {
	if !b.samples.Full() {
		return false
	}
	return b.samples.Retrieve(dst) == nil
}

// Recent appends whatever samples are held to dst.
func (b *SignalBuffer) Recent(dst []float32) []float32 {
	return b.samples.Values(dst)
}

// LastWrite is the time of the latest Write, zero if none.
func (b *SignalBuffer) LastWrite() time.Time {
	ns := b.lastWrite.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Reset discards all samples.
func (b *SignalBuffer) Reset() {
	b.samples.Reset()
	b.lastWrite.Store(0)
}
