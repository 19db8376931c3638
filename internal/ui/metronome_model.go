package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/progression"
)

// TempoDebounce delays applying keyboard tempo changes so a held key
// re-arms the clock once
const TempoDebounce = 250 * time.Millisecond

// Metronome is the clock driven by the view
type Metronome interface {
	Start(bpm int)
	Stop()
	SetTempo(bpm int)
	State() metronome.State
}

// MetronomeModel is the Bubbletea model for the terminal metronome
type MetronomeModel struct {
	Clock    Metronome
	Beats    <-chan metronome.Beat
	Follower *progression.Follower

	// Target is the tempo shown and applied on the next start
	Target   int
	Running  bool
	Beat     metronome.Beat
	HasBeat  bool
	Position progression.Position
	Tapped   bool
	Quitting bool

	tap      *metronome.TapTempo
	debounce func(f func())
	now      func() time.Time
}

// NewMetronomeModel creates a metronome view around clock. follower may be nil.
func NewMetronomeModel(clock Metronome, beats <-chan metronome.Beat, follower *progression.Follower, bpm int) MetronomeModel {
	return MetronomeModel{
		Clock:    clock,
		Beats:    beats,
		Follower: follower,
		Target:   metronome.ClampBPM(bpm),
		tap:      metronome.NewTapTempo(),
		debounce: debounce.New(TempoDebounce),
		now:      time.Now,
	}
}

// Init starts listening for beats
func (m MetronomeModel) Init() tea.Cmd {
	return waitForBeat(m.Beats)
}

// Update handles messages and updates the model
func (m MetronomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case BeatMsg:
		m.Beat = msg.Beat
		m.HasBeat = true
		if m.Follower != nil {
			m.Position = m.Follower.Advance(msg.Beat.Count)
		}
		return m, waitForBeat(m.Beats)

	case beatsClosedMsg:
		m.Running = false
	}

	return m, nil
}

func (m MetronomeModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.Clock.Stop()
		m.Quitting = true
		return m, tea.Quit

	case " ", "enter":
		if m.Running {
			m.Clock.Stop()
			m.Running = false
			m.HasBeat = false
		} else {
			if m.Follower != nil {
				m.Follower.Reset()
			}
			m.Clock.Start(m.Target)
			m.Running = true
		}

	case "t":
		bpm, ok := m.tap.Tap(m.now())
		m.Tapped = ok
		if ok {
			m.Target = bpm
			m.applyTempo()
		}

	case "+", "=", "up", "k":
		m.nudge(1)
	case "-", "_", "down", "j":
		m.nudge(-1)
	case "]", "right", "l":
		m.nudge(10)
	case "[", "left", "h":
		m.nudge(-10)
	}

	return m, nil
}

func (m *MetronomeModel) nudge(delta int) {
	m.Target = metronome.ClampBPM(m.Target + delta)
	m.applyTempo()
}

// applyTempo hands the current target to the clock after the debounce delay
func (m *MetronomeModel) applyTempo() {
	clock, bpm := m.Clock, m.Target
	m.debounce(func() {
		clock.SetTempo(bpm)
	})
}

// View renders the UI
func (m MetronomeModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Bard metronome"))
	b.WriteString("\n")

	state := "stopped"
	if m.Running {
		state = "running"
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %s\n\n",
		KeyStyle.Render("Tempo:"), ValueStyle.Render(fmt.Sprintf("%d BPM", m.Target)),
		KeyStyle.Render("State:"), ValueStyle.Render(state)))

	b.WriteString(renderPulse(m.Beat, m.Running && m.HasBeat))
	b.WriteString("\n\n")

	if m.Follower != nil {
		b.WriteString(renderChord(m.Follower.Progression(), m.Position, m.Running && m.HasBeat))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("space start/stop · t tap · +/- tempo · [/] ±10 · q quit"))
	return b.String()
}

func renderPulse(beat metronome.Beat, active bool) string {
	cells := make([]string, metronome.BeatsPerMeasure)
	for i := range cells {
		switch {
		case active && i == beat.Index && beat.Downbeat:
			cells[i] = downbeatStyle.Render("●")
		case active && i == beat.Index:
			cells[i] = pulseStyle.Render("●")
		default:
			cells[i] = idleStyle.Render("○")
		}
	}
	return strings.Join(cells, " ")
}

func renderChord(p progression.Progression, pos progression.Position, active bool) string {
	header := fmt.Sprintf("%s %s in %s", KeyStyle.Render("Progression:"), ValueStyle.Render(p.Name), p.Key)
	if !active {
		return header
	}

	style := chordStyle
	if pos.Phase {
		style = chordPhaseStyle
	}
	return header + "\n" + style.Render(pos.Chord) + " " + KeyStyle.Render(pos.Numeral)
}

// waitForBeat creates a command that waits for the next metronome tick
func waitForBeat(beats <-chan metronome.Beat) tea.Cmd {
	if beats == nil {
		return nil
	}
	return func() tea.Msg {
		beat, ok := <-beats
		if !ok {
			return beatsClosedMsg{}
		}
		return BeatMsg{Beat: beat}
	}
}
