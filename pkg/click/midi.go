package click

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

const (
	// PercussionChannel is General MIDI channel 10, zero based.
	PercussionChannel = 9

	HighWoodBlock = 76
	LowWoodBlock  = 77
)

// MIDI sends one percussion note per click.
type MIDI struct {
	send     func(msg midi.Message) error
	port     drivers.Out
	channel  uint8
	downbeat uint8
	beat     uint8
}

// NewMIDI builds a MIDI sounder on top of a send function.
func NewMIDI(send func(msg midi.Message) error) *MIDI {
	return &MIDI{
		send:     send,
		channel:  PercussionChannel,
		downbeat: HighWoodBlock,
		beat:     LowWoodBlock,
	}
}

// OpenMIDI connects to the first output port whose name contains name.
func OpenMIDI(name string) (*MIDI, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("find midi output %q: %w", name, err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open midi output %q: %w", name, err)
	}

	m := NewMIDI(send)
	m.port = out
	return m, nil
}

// Play sends a note on and the matching note off.
func (m *MIDI) Play(downbeat bool) error {
	key, velocity := m.beat, uint8(90)
	if downbeat {
		key, velocity = m.downbeat, 127
	}

	if err := m.send(midi.NoteOn(m.channel, key, velocity)); err != nil {
		return fmt.Errorf("midi note on: %w", err)
	}
	if err := m.send(midi.NoteOff(m.channel, key)); err != nil {
		return fmt.Errorf("midi note off: %w", err)
	}
	return nil
}

// Close releases the port and the driver.
func (m *MIDI) Close() error {
	var err error
	if m.port != nil {
		err = m.port.Close()
	}
	midi.CloseDriver()
	return err
}

// Sounder is anything that can play a click.
type Sounder interface {
	Play(downbeat bool) error
}

// Multi plays every sounder and reports all failures together.
type Multi []Sounder

// Play triggers each sounder in order.
func (m Multi) Play(downbeat bool) error {
	var errs []error
	for _, s := range m {
		if err := s.Play(downbeat); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
