// Package click synthesizes the metronome click and plays it on the audio
// output or a MIDI port.
package click

import (
	"encoding/binary"
	"math"
	"time"
)

// Params describes one percussive click: a sine sweeping exponentially from
// StartFrequency to EndFrequency over Sweep, shaped by a bandpass filter and
// an envelope with a linear Attack and an exponential Decay to -60 dB.
type Params struct {
	StartFrequency float64
	EndFrequency   float64
	Sweep          time.Duration
	Attack         time.Duration
	Decay          time.Duration
	Gain           float64
	BandCenter     float64
	BandQ          float64
}

var (
	// Downbeat is the accented first beat of a measure.
	Downbeat = Params{
		StartFrequency: 1600,
		EndFrequency:   400,
		Sweep:          50 * time.Millisecond,
		Attack:         time.Millisecond,
		Decay:          80 * time.Millisecond,
		Gain:           1.0,
		BandCenter:     1000,
		BandQ:          1.2,
	}

	// Beat is every other beat.
	Beat = Params{
		StartFrequency: 1000,
		EndFrequency:   400,
		Sweep:          50 * time.Millisecond,
		Attack:         time.Millisecond,
		Decay:          60 * time.Millisecond,
		Gain:           0.7,
		BandCenter:     1000,
		BandQ:          1.2,
	}
)

// ParamsFor returns the click parameters for a beat.
func ParamsFor(downbeat bool) Params {
	if downbeat {
		return Downbeat
	}
	return Beat
}

// Duration is the rendered length of the click.
func (p Params) Duration() time.Duration {
	return p.Attack + p.Decay
}

// bandpass is a two-pole resonator with 0 dB gain at its center frequency.
type bandpass struct {
	b0, b2 float64
	a1, a2 float64
	x1, x2 float64
	y1, y2 float64
}

func newBandpass(center, q, sampleRate float64) *bandpass {
	w0 := 2 * math.Pi * center / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha

	return &bandpass{
		b0: alpha / a0,
		b2: -alpha / a0,
		a1: -2 * math.Cos(w0) / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *bandpass) process(x float64) float64 {
	y := f.b0*x + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Render synthesizes a mono click at sampleRate.
func Render(p Params, sampleRate int) []float32 {
	if sampleRate <= 0 {
		return nil
	}

	sr := float64(sampleRate)
	attack := p.Attack.Seconds()
	decay := p.Decay.Seconds()
	sweep := p.Sweep.Seconds()
	total := int(math.Ceil(p.Duration().Seconds() * sr))
	out := make([]float32, total)

	filter := newBandpass(p.BandCenter, p.BandQ, sr)
	ratio := p.EndFrequency / p.StartFrequency
	decayRate := math.Log(1000) / decay
	phase := 0.0

	for i := range out {
		t := float64(i) / sr

		progress := 1.0
		if sweep > 0 && t < sweep {
			progress = t / sweep
		}
		freq := p.StartFrequency * math.Pow(ratio, progress)
		phase += 2 * math.Pi * freq / sr
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}

		env := p.Gain
		if t < attack {
			env *= t / attack
		} else {
			env *= math.Exp(-decayRate * (t - attack))
		}

		v := filter.process(math.Sin(phase)) * env
		out[i] = float32(math.Max(-1, math.Min(1, v)))
	}

	return out
}

// encodeFloat32LE packs samples in the layout expected by the output device.
func encodeFloat32LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}
