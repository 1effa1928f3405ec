package spectate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/duel/internal/match"
)

// healthBarWidth is the number of cells in a full health bar.
const healthBarWidth = 20

// KeyMap defines the key bindings for the spectator view.
type KeyMap struct {
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

// DefaultKeyMap returns default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type snapshotMsg match.Snapshot

type feedClosedMsg struct{}

// Model is the Bubble Tea model for one spectator.
type Model struct {
	updates  <-chan match.Snapshot
	cancel   func()
	snap     match.Snapshot
	have     bool
	closed   bool
	table    table.Model
	help     help.Model
	keys     KeyMap
	width    int
	quitting bool
}

// NewModel creates a spectator model reading from feed.
func NewModel(feed *Feed, width int) Model {
	updates, cancel := feed.Subscribe()
	return Model{
		updates: updates,
		cancel:  cancel,
		table:   newSlotTable(),
		help:    help.New(),
		keys:    DefaultKeyMap(),
		width:   width,
	}
}

// Close ends the model's feed subscription. Safe to call multiple times.
func (m Model) Close() {
	m.cancel()
}

func newSlotTable() table.Model {
	columns := []table.Column{
		{Title: "P", Width: 2},
		{Title: "Character", Width: 10},
		{Title: "Health", Width: healthBarWidth + 5},
		{Title: "X", Width: 5},
		{Title: "Y", Width: 5},
		{Title: "Facing", Width: 6},
		{Title: "State", Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(4),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t
}

func waitForSnapshot(ch <-chan match.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Init starts listening to the feed.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

// Update handles messages for the spectator.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = match.Snapshot(msg)
		m.have = true
		m.table.SetRows(slotRows(m.snap))
		return m, waitForSnapshot(m.updates)

	case feedClosedMsg:
		m.closed = true
		return m, nil
	}
	return m, nil
}

// View renders the spectator screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("DUEL - LIVE"))
	b.WriteString("\n")

	switch {
	case m.closed:
		b.WriteString("Server is shutting down.\n")
	case !m.have:
		b.WriteString("Waiting for the match loop...\n")
	default:
		b.WriteString(phaseLine(m.snap))
		b.WriteString("\n\n")
		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
		b.WriteString(boxStyle.Render(m.table.View()))
		b.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func phaseLine(snap match.Snapshot) string {
	phaseStyle := lipgloss.NewStyle().Bold(true).Foreground(phaseColor(snap.Phase))
	return fmt.Sprintf("Phase: %s   Ready: %d/2   Platforms: %d",
		phaseStyle.Render(snap.Phase.String()), snap.ReadyCount, len(snap.Platforms))
}

func phaseColor(p match.Phase) lipgloss.Color {
	switch p {
	case match.PhaseInMatch:
		return lipgloss.Color("42")
	case match.PhaseGameOver, match.PhaseResetting:
		return lipgloss.Color("203")
	case match.PhaseReadyCheck:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("245")
	}
}

// slotRows renders both slots in player order; empty slots get a placeholder row.
func slotRows(snap match.Snapshot) []table.Row {
	rows := make([]table.Row, 0, 2)
	for _, num := range []match.PlayerNum{match.Player1, match.Player2} {
		slot, ok := snap.Player(num)
		if !ok {
			rows = append(rows, table.Row{fmt.Sprint(int(num)), "-", "", "", "", "", "empty"})
			continue
		}
		character := slot.Character
		if character == "" {
			character = "?"
		}
		facing := "left"
		if slot.FacingRight {
			facing = "right"
		}
		rows = append(rows, table.Row{
			fmt.Sprint(int(num)),
			character,
			HealthBar(slot.Health, healthBarWidth),
			fmt.Sprintf("%.0f", slot.X),
			fmt.Sprintf("%.0f", slot.Y),
			facing,
			slotState(slot),
		})
	}
	return rows
}

func slotState(slot match.PlayerSlot) string {
	switch {
	case !slot.Connected:
		return "disconnected"
	case slot.IsDead:
		return "KO"
	case slot.IsSpecialAttacking:
		return "special"
	case slot.IsAttacking:
		return "attacking"
	case slot.Ready:
		return "ready"
	default:
		return "idle"
	}
}

// HealthBar draws health as a fixed-width bar followed by the numeric value.
func HealthBar(health, width int) string {
	if width < 1 {
		width = 1
	}
	health = max(0, min(match.MaxHealth, health))
	filled := health * width / match.MaxHealth
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + fmt.Sprintf(" %3d", health)
}
