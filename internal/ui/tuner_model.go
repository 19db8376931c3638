// Package ui provides the Bubbletea terminal user interface for bard
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalblueberry/bard/internal/numeric"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/tuner"
)

// meterHalfWidth is the number of cells on each side of the center mark
const meterHalfWidth = 20

// TunerModel is the Bubbletea model for the terminal tuner
type TunerModel struct {
	Snapshot tuner.Snapshot
	Err      error
	Quitting bool

	// Updates delivers SnapshotMsg and CaptureErrMsg from the session
	Updates <-chan tea.Msg

	Width int
}

// NewTunerModel creates a tuner view fed from updates
func NewTunerModel(updates <-chan tea.Msg) TunerModel {
	return TunerModel{Updates: updates}
}

// Init starts listening for analysis results
func (m TunerModel) Init() tea.Cmd {
	return waitFor(m.Updates)
}

// Update handles messages and updates the model
func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case SnapshotMsg:
		m.Snapshot = msg.Snapshot
		return m, waitFor(m.Updates)

	case CaptureErrMsg:
		m.Err = msg.Err
		return m, nil
	}

	return m, nil
}

// View renders the UI
func (m TunerModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Bard tuner"))
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(ErrorStyle.Render(capture.Message(m.Err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q to quit"))
		return b.String()
	}

	b.WriteString(renderReading(m.Snapshot))
	b.WriteString("\n\n")
	b.WriteString(renderStrings(m.Snapshot.Strings))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("play one open string at a time · q to quit"))

	return b.String()
}

func renderReading(s tuner.Snapshot) string {
	if !s.HasReading {
		status := "listening…"
		if s.HasPitch {
			status = fmt.Sprintf("%.1f Hz is not a string of this tuning", s.Smoothed)
		}
		return fmt.Sprintf("%s\n%s", NoteStyle.Render("--"), KeyStyle.Render(status))
	}

	r := s.Reading
	note := NoteStyle.Render(r.Reference.Name)
	if r.Locked {
		note = lockedStyle.Render(r.Reference.Name + " ✓")
	}

	detail := fmt.Sprintf("%s %s   %s %s",
		KeyStyle.Render("Freq:"), ValueStyle.Render(fmt.Sprintf("%.1f Hz", r.Frequency)),
		KeyStyle.Render("Cents:"), ValueStyle.Render(fmt.Sprintf("%+d", r.Cents)))

	return note + "\n" + detail + "\n" + renderMeter(r.Cents)
}

// renderMeter draws a needle between -50 and +50 cents
func renderMeter(cents int) string {
	width := 2*meterHalfWidth + 1
	cells := []rune(strings.Repeat("─", width))
	cells[meterHalfWidth] = '┼'

	pos := meterHalfWidth + numeric.Clamp(cents, -tuner.AcceptCents, tuner.AcceptCents)*meterHalfWidth/tuner.AcceptCents
	cells[pos] = '●'

	style := offStyle
	if numeric.Within(cents, -tuner.LockCents, tuner.LockCents) {
		style = lockedStyle
	}

	return "♭ " + style.Render(string(cells)) + " ♯"
}

func renderStrings(strs []tuner.StringStatus) string {
	parts := make([]string, 0, len(strs))
	for _, s := range strs {
		if s.Locked {
			parts = append(parts, lockedStyle.Render(s.Reference.Name+"✓"))
		} else {
			parts = append(parts, idleStyle.Render(s.Reference.Name))
		}
	}
	return strings.Join(parts, "  ")
}

// waitFor creates a command that waits for the next message on ch
func waitFor(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}
