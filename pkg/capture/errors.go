package capture

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/gordonklaus/portaudio"
)

// Kind classifies capture failures.
type Kind int

const (
	DeviceUnavailable Kind = iota + 1
	PermissionDenied
	DeviceBusy
	UnsupportedPlatform
	DeviceLost
)

func (k Kind) String() string {
	switch k {
	case DeviceUnavailable:
		return "device unavailable"
	case PermissionDenied:
		return "permission denied"
	case DeviceBusy:
		return "device busy"
	case UnsupportedPlatform:
		return "unsupported platform"
	case DeviceLost:
		return "device lost"
	default:
		return fmt.Sprintf("capture error %d", int(k))
	}
}

// Error is a capture failure of a known kind.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrDeviceUnavailable   = &Error{Kind: DeviceUnavailable}
	ErrPermissionDenied    = &Error{Kind: PermissionDenied}
	ErrDeviceBusy          = &Error{Kind: DeviceBusy}
	ErrUnsupportedPlatform = &Error{Kind: UnsupportedPlatform}
	ErrDeviceLost          = &Error{Kind: DeviceLost}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return "capture: " + e.Kind.String()
	}
	return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any capture error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Message is a sentence suitable for showing to the player.
func (e *Error) Message() string {
	switch e.Kind {
	case DeviceUnavailable:
		return "No microphone was found. Connect an input device and try again."
	case PermissionDenied:
		return "Microphone access was denied. Allow audio input for this program and try again."
	case DeviceBusy:
		return "The microphone is in use by another program."
	case UnsupportedPlatform:
		return "Audio capture is not supported on this system."
	case DeviceLost:
		return "The microphone stopped delivering audio."
	default:
		return "Audio capture failed."
	}
}

// Message returns the user-facing sentence for a capture error, or the plain
// error text for anything else.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return err.Error()
}

// classify maps a PortAudio or OS error onto a capture error kind.
func classify(err error, fallback Kind) error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return err
	}

	if errors.Is(err, fs.ErrPermission) {
		return &Error{Kind: PermissionDenied, Err: err}
	}

	var pa portaudio.Error
	if errors.As(err, &pa) {
		switch pa {
		case portaudio.DeviceUnavailable:
			return &Error{Kind: DeviceBusy, Err: err}
		case portaudio.InvalidDevice, portaudio.InvalidChannelCount:
			return &Error{Kind: DeviceUnavailable, Err: err}
		case portaudio.NotInitialized, portaudio.HostApiNotFound:
			return &Error{Kind: UnsupportedPlatform, Err: err}
		}
	}

	return &Error{Kind: fallback, Err: err}
}
