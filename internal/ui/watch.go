package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kasaops/kasascan/internal/device"
	"github.com/kasaops/kasascan/internal/render"
)

// RoundMsg carries one completed discovery round into the watch screen.
type RoundMsg struct {
	Devices   []device.Record
	Timestamp time.Time
}

// ErrMsg carries a fatal scheduler error into the watch screen. The
// screen shows the error and exits.
type ErrMsg struct {
	Err error
}

// tickMsg drives the data-age display between rounds.
type tickMsg time.Time

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Energy key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Energy, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Energy, k.Quit}}
}

// WatchModel is the Bubble Tea model for the live watch screen.
type WatchModel struct {
	// Interval is shown in the header so the user knows the cadence.
	Interval time.Duration

	// ShowEnergy toggles the telemetry columns in the table.
	ShowEnergy bool

	cancel context.CancelFunc

	devices   []device.Record
	timestamp time.Time
	rounds    int
	err       error

	width   int
	spinner spinner.Model
	help    help.Model
	keys    watchKeyMap
}

// NewWatchModel creates the watch screen model. cancel stops the
// scheduler when the user quits.
func NewWatchModel(interval time.Duration, showEnergy bool, cancel context.CancelFunc) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := watchKeyMap{
		Energy: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle energy"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return WatchModel{
		Interval:   interval,
		ShowEnergy: showEnergy,
		cancel:     cancel,
		width:      GetTerminalWidth(),
		spinner:    s,
		help:       help.New(),
		keys:       keys,
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Energy):
			m.ShowEnergy = !m.ShowEnergy
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.width > MaxContentWidth {
			m.width = MaxContentWidth
		}

	case RoundMsg:
		m.devices = msg.Devices
		m.timestamp = msg.Timestamp
		m.rounds++

	case ErrMsg:
		m.err = msg.Err
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch screen
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("kasascan watch"))
	b.WriteString("  ")
	b.WriteString(StatusStyle.Render(fmt.Sprintf("every %s", m.Interval)))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	if m.rounds == 0 {
		b.WriteString(fmt.Sprintf("%s Scanning for devices...\n", m.spinner.View()))
		return b.String()
	}

	b.WriteString(render.Table(m.devices, m.ShowEnergy))
	b.WriteString("\n")
	b.WriteString(StatusStyle.Render(fmt.Sprintf(
		"Round %d • %d device(s) • updated %s ago",
		m.rounds, len(m.devices), dataAge(m.timestamp))))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// Rounds returns how many rounds the screen has displayed.
func (m WatchModel) Rounds() int { return m.rounds }

// Err returns the fatal error that ended the screen, if any.
func (m WatchModel) Err() error { return m.err }

func dataAge(ts time.Time) string {
	age := time.Since(ts).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return age.String()
}

// Watch runs the watch screen until the user quits or a fatal error
// arrives. publish feeds rounds in from the scheduler goroutine.
func Watch(model WatchModel, attach func(send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	if attach != nil {
		attach(p.Send)
	}
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch screen failed: %w", err)
	}
	if m, ok := final.(WatchModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
