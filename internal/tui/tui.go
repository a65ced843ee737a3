// Package tui is the terminal front end of the altimeter, built on
// Bubble Tea. It shows the current altitude and lets the pilot change the
// zero reference, unit, precision and delay from the keyboard.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	altStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bbf7d0")).
			Padding(0, 2)

	unitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	spokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3f3f46")).
			Padding(0, 1)
)

const refreshInterval = 250 * time.Millisecond

type keyMap struct {
	Zero      key.Binding
	SeaLevel  key.Binding
	Unit      key.Binding
	Precision key.Binding
	Delay     key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Zero:      key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "zero here")),
	SeaLevel:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sea level")),
	Unit:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unit")),
	Precision: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "precision")),
	Delay:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delay")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Zero, k.SeaLevel, k.Unit, k.Precision, k.Delay, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Deps are the pieces of the running altimeter the UI drives.
type Deps struct {
	State *altitude.State

	// Trigger asks for an immediate announcement. May be nil.
	Trigger func()

	// LastSpoken returns the latest announcement text. May be nil.
	LastSpoken func() (string, bool)

	// Feed names the location source shown in the status line.
	Feed string
}

// UI runs the Bubble Tea program.
type UI struct {
	deps    Deps
	program *tea.Program
}

// New creates the UI. Call Run to start it.
func New(d Deps) *UI {
	return &UI{deps: d}
}

// Run starts the event loop and blocks until the user quits or Quit is
// called.
func (u *UI) Run() error {
	u.program = tea.NewProgram(newModel(u.deps), tea.WithAltScreen())
	_, err := u.program.Run()
	return err
}

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	deps  Deps
	snap  altitude.Snapshot
	help  help.Model
	err   string
	width int
}

type tickMsg time.Time

func newModel(d Deps) model {
	return model{deps: d, snap: d.State.Snapshot(), help: help.New()}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.SetWindowTitle("Audible Altimeter"))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snap = m.deps.State.Snapshot()
		return m, tickCmd()
	}
	return m, nil
}

func (m model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.deps.State
	cur := st.Settings()
	var err error

	switch {
	case key.Matches(k, keys.Quit):
		return m, tea.Quit
	case key.Matches(k, keys.Zero):
		err = st.SetZero(altitude.Current)
		if err == nil {
			m.trigger()
		}
	case key.Matches(k, keys.SeaLevel):
		err = st.SetZero(altitude.SeaLevel)
		if err == nil {
			m.trigger()
		}
	case key.Matches(k, keys.Unit):
		next := altitude.Meters
		if cur.Unit == altitude.Meters {
			next = altitude.Feet
		}
		err = st.SetUnit(next)
	case key.Matches(k, keys.Precision):
		err = st.SetPrecision(nextInt(altitude.Precisions, cur.Precision))
	case key.Matches(k, keys.Delay):
		err = st.SetDelay(nextFloat(altitude.Delays, cur.DelaySeconds))
		if err == nil {
			m.trigger()
		}
	default:
		return m, nil
	}

	m.err = ""
	if err != nil {
		m.err = err.Error()
	}
	m.snap = st.Snapshot()
	return m, nil
}

func (m model) trigger() {
	if m.deps.Trigger != nil {
		m.deps.Trigger()
	}
}

func (m model) View() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(altStyle.Render(s.Display))
	b.WriteString(unitStyle.Render(unitLabel(s.DisplayUnit)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	zero := "sea level"
	if s.Zero == altitude.Current {
		zero = fmt.Sprintf("field (%.0f m)", s.Offset)
	}
	row("Zero", zero)
	row("Precision", strconv.Itoa(s.Precision)+" "+unitLabel(s.Unit))
	row("Delay", formatDelay(s.DelaySeconds))
	row("Next call", strconv.Itoa(s.Rounded))

	spoken := "-"
	if m.deps.LastSpoken != nil {
		if text, ok := m.deps.LastSpoken(); ok {
			spoken = text
		}
	}
	b.WriteString(labelStyle.Render("Last spoken"))
	b.WriteString(spokenStyle.Render(spoken))
	b.WriteByte('\n')

	row("Feed", m.feedStatus())

	if m.err != "" {
		b.WriteByte('\n')
		b.WriteString(errStyle.Render(m.err))
		b.WriteByte('\n')
	}

	out := boxStyle.Render(strings.TrimRight(b.String(), "\n"))
	return out + "\n" + m.help.View(keys) + "\n"
}

func (m model) feedStatus() string {
	name := m.deps.Feed
	if name == "" {
		name = "none"
	}
	if m.snap.Samples == 0 {
		return name + ", waiting for fix"
	}
	age := time.Since(m.snap.LastSample).Round(time.Second)
	return fmt.Sprintf("%s, %d samples, last %s ago", name, m.snap.Samples, age)
}

// ── Helpers ──────────────────────────────────────────────────────

func unitLabel(u altitude.Unit) string {
	if u == altitude.Meters {
		return "m"
	}
	return "ft"
}

func formatDelay(sec float64) string {
	if sec == 0 {
		return "continuous"
	}
	return strconv.FormatFloat(sec, 'f', -1, 64) + " s"
}

// nextInt returns the entry after cur, wrapping around. A value not in the
// list restarts at the first entry.
func nextInt(list []int, cur int) int {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

func nextFloat(list []float64, cur float64) float64 {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}
