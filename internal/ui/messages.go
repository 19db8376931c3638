package ui

import (
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/tuner"
)

// SnapshotMsg carries a new analysis result from the capture session
type SnapshotMsg struct {
	Snapshot tuner.Snapshot
}

// CaptureErrMsg reports that the capture session ended with an error
type CaptureErrMsg struct {
	Err error
}

// BeatMsg carries one metronome tick
type BeatMsg struct {
	Beat metronome.Beat
}

// beatsClosedMsg is sent when the beat subscription ends
type beatsClosedMsg struct{}
