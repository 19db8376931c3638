package main

import (
	"fmt"
	"strings"

	"github.com/metalblueberry/bard/internal/numeric"
	"github.com/metalblueberry/bard/pkg/tuner"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// needleX maps cents in [-AcceptCents, AcceptCents] onto [0, width].
func needleX(cents int, width float32) float32 {
	c := numeric.Clamp(cents, -tuner.AcceptCents, tuner.AcceptCents)
	return width/2 + float32(c)*width/(2*tuner.AcceptCents)
}

func statusText(snap tuner.Snapshot) string {
	var b strings.Builder

	switch {
	case snap.HasReading:
		r := snap.Reading
		fmt.Fprintf(&b, "%s  %.1f Hz  %+d cents", r.Reference.Name, r.Frequency, r.Cents)
		if r.Locked {
			b.WriteString("  LOCKED")
		}
	case snap.HasPitch:
		fmt.Fprintf(&b, "%.1f Hz", snap.Smoothed)
	default:
		b.WriteString("listening...")
	}

	b.WriteString("\n")
	for i, s := range snap.Strings {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s.Reference.Name)
		if s.Locked {
			b.WriteString("*")
		}
	}

	return b.String()
}
