// Package progression advances through a chord progression as the metronome
// counts beats.
package progression

import (
	"fmt"
	"sort"
	"sync"
)

// BeatsPerChord is how many beats each chord is held.
const BeatsPerChord = 8

// Progression is an ordered list of chords in one key.
type Progression struct {
	Name     string   `json:"name"`
	Key      string   `json:"key"`
	Numerals []string `json:"numerals"`
	Chords   []string `json:"chords"`
}

var builtin = map[string]Progression{
	"I-IV-V-I": {
		Name:     "I-IV-V-I",
		Key:      "C",
		Numerals: []string{"I", "IV", "V", "I"},
		Chords:   []string{"C", "F", "G", "C"},
	},
	"ii-V-I": {
		Name:     "ii-V-I",
		Key:      "C",
		Numerals: []string{"ii", "V", "I"},
		Chords:   []string{"Dm", "G", "C"},
	},
	"I-V-vi-IV": {
		Name:     "I-V-vi-IV",
		Key:      "G",
		Numerals: []string{"I", "V", "vi", "IV"},
		Chords:   []string{"G", "D", "Em", "C"},
	},
	"12-bar blues": {
		Name:     "12-bar blues",
		Key:      "A",
		Numerals: []string{"I7", "I7", "I7", "I7", "IV7", "IV7", "I7", "I7", "V7", "IV7", "I7", "V7"},
		Chords:   []string{"A7", "A7", "A7", "A7", "D7", "D7", "A7", "A7", "E7", "D7", "A7", "E7"},
	},
}

// Names lists the built-in progressions in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a built-in progression by name.
func Lookup(name string) (Progression, error) {
	p, ok := builtin[name]
	if !ok {
		return Progression{}, fmt.Errorf("unknown progression %q", name)
	}
	return p, nil
}

// Position is where a beat count lands in the progression.
type Position struct {
	Chord   string `json:"chord"`
	Numeral string `json:"numeral"`
	Index   int    `json:"index"`
	// Phase flips every BeatsPerChord beats.
	Phase bool `json:"phase"`
	// Changed is set when the chord index differs from the previous Advance.
	Changed bool `json:"changed"`
}

// Follower maps beat counts onto a progression. Safe for concurrent use.
type Follower struct {
	mu          sync.Mutex
	progression Progression
	last        int
}

// NewFollower starts following p.
func NewFollower(p Progression) *Follower {
	return &Follower{progression: p, last: -1}
}

// Progression returns the followed progression.
func (f *Follower) Progression() Progression {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progression
}

// Advance positions the follower at the given beat count.
func (f *Follower) Advance(count uint64) Position {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.progression.Chords)
	if n == 0 {
		return Position{}
	}

	block := count / BeatsPerChord
	idx := int(block % uint64(n))

	pos := Position{
		Chord:   f.progression.Chords[idx],
		Index:   idx,
		Phase:   block%2 == 1,
		Changed: idx != f.last,
	}
	if idx < len(f.progression.Numerals) {
		pos.Numeral = f.progression.Numerals[idx]
	}

	f.last = idx
	return pos
}

// Reset forgets the previous position so the next Advance reports a change.
func (f *Follower) Reset() {
	f.mu.Lock()
	f.last = -1
	f.mu.Unlock()
}
