// Package capture acquires a mono microphone stream and runs the tuner
// analysis loop over it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// Constraints lists input processing the platform might apply. Pitch
// detection needs the raw signal, so every field must stay false.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGain         bool
}

// Validate rejects any requested processing.
func (c Constraints) Validate() error {
	if c.EchoCancellation || c.NoiseSuppression || c.AutoGain {
		return &Error{Kind: UnsupportedPlatform, Err: errors.New("input processing cannot be enabled")}
	}
	return nil
}

// Device is an open, running input stream.
type Device interface {
	SampleRate() float64
	Close() error
}

// Opener acquires an input device. onSamples is called from the audio thread
// with each block of mono samples and must not block.
type Opener interface {
	Open(ctx context.Context, onSamples func([]float32)) (Device, error)
}

// PortAudio opens input devices through the PortAudio library.
type PortAudio struct {
	// DeviceName selects the first input whose name contains it. Empty means
	// the default input.
	DeviceName  string
	Constraints Constraints
	Logger      *zap.Logger
}

type device struct {
	stream *portaudio.Stream
	rate   float64
	once   sync.Once
	err    error
}

func (d *device) SampleRate() float64 {
	return d.rate
}

func (d *device) Close() error {
	d.once.Do(func() {
		d.err = errors.Join(d.stream.Stop(), d.stream.Close(), portaudio.Terminate())
	})
	return d.err
}

func (p PortAudio) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Open starts a single-channel input stream at the device's native rate.
func (p PortAudio) Open(ctx context.Context, onSamples func([]float32)) (Device, error) {
	if err := p.Constraints.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, classify(fmt.Errorf("initialize portaudio: %w", err), UnsupportedPlatform)
	}

	stream, rate, err := p.start(onSamples)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	p.logger().Info("input stream started", zap.Float64("sample_rate", rate))
	return &device{stream: stream, rate: rate}, nil
}

func (p PortAudio) start(onSamples func([]float32)) (*portaudio.Stream, float64, error) {
	input, err := selectInput(p.DeviceName)
	if err != nil {
		return nil, 0, err
	}

	params := portaudio.LowLatencyParameters(input, nil)
	params.Input.Channels = 1
	params.Output.Channels = 0

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onSamples(in)
	})
	if err != nil {
		return nil, 0, classify(fmt.Errorf("open %q: %w", input.Name, err), DeviceUnavailable)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, 0, classify(fmt.Errorf("start %q: %w", input.Name, err), DeviceUnavailable)
	}

	return stream, params.SampleRate, nil
}

func selectInput(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, classify(fmt.Errorf("default input: %w", err), DeviceUnavailable)
		}
		if info.MaxInputChannels < 1 {
			return nil, &Error{Kind: DeviceUnavailable, Err: fmt.Errorf("%q has no input channels", info.Name)}
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, classify(fmt.Errorf("list devices: %w", err), UnsupportedPlatform)
	}

	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(d.Name, name) {
			return d, nil
		}
	}

	return nil, &Error{Kind: DeviceUnavailable, Err: fmt.Errorf("no input device matching %q", name)}
}

// DeviceInfo describes an input-capable device.
type DeviceInfo struct {
	Name       string
	HostAPI    string
	Channels   int
	SampleRate float64
	Default    bool
}

// ListDevices enumerates input devices.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, classify(fmt.Errorf("initialize portaudio: %w", err), UnsupportedPlatform)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, classify(fmt.Errorf("list devices: %w", err), UnsupportedPlatform)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defaultName = def.Name
	}

	var out []DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		info := DeviceInfo{
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    d.Name == defaultName,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		out = append(out, info)
	}

	return out, nil
}
