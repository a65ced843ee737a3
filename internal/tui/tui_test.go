package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
)

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m model, r rune) model {
	t.Helper()
	next, _ := m.Update(keyMsg(r))
	return next.(model)
}

func TestKeys_CycleSettings(t *testing.T) {
	st := altitude.New(altitude.DefaultSettings())
	m := newModel(Deps{State: st})

	m = press(t, m, 'u')
	if st.Settings().Unit != altitude.Meters {
		t.Fatalf("unit=%s", st.Settings().Unit)
	}
	m = press(t, m, 'u')
	if st.Settings().Unit != altitude.Feet {
		t.Fatalf("unit=%s", st.Settings().Unit)
	}

	// 10 → 100 → 1 → 5
	for _, want := range []int{100, 1, 5} {
		m = press(t, m, 'p')
		if got := st.Settings().Precision; got != want {
			t.Fatalf("precision=%d want %d", got, want)
		}
	}

	// 5 → 15 → 60 → 0
	for _, want := range []float64{15, 60, 0} {
		m = press(t, m, 'd')
		if got := st.Settings().DelaySeconds; got != want {
			t.Fatalf("delay=%v want %v", got, want)
		}
	}
	if m.snap.DelaySeconds != 0 {
		t.Fatalf("snapshot not refreshed after key")
	}
}

func TestKeys_ZeroTriggersAnnouncement(t *testing.T) {
	st := altitude.New(altitude.DefaultSettings())
	st.Update(50)
	triggered := 0
	m := newModel(Deps{State: st, Trigger: func() { triggered++ }})

	m = press(t, m, 'z')
	if st.Calibrated() != 0 || triggered != 1 {
		t.Fatalf("calibrated=%v triggered=%d", st.Calibrated(), triggered)
	}
	m = press(t, m, 's')
	if st.Snapshot().Offset != 0 || triggered != 2 {
		t.Fatalf("offset=%v triggered=%d", st.Snapshot().Offset, triggered)
	}
	press(t, m, 'x')
	if triggered != 2 {
		t.Fatalf("unbound key triggered an announcement")
	}
}

func TestKeys_Quit(t *testing.T) {
	m := newModel(Deps{State: altitude.New(altitude.DefaultSettings())})
	_, cmd := m.Update(keyMsg('q'))
	if cmd == nil {
		t.Fatalf("no command for q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestView(t *testing.T) {
	st := altitude.New(altitude.DefaultSettings())
	st.Update(100)
	m := newModel(Deps{
		State:      st,
		Feed:       "demo",
		LastSpoken: func() (string, bool) { return "330", true },
	})
	v := m.View()
	for _, want := range []string{"328", "ft", "sea level", "5 s", "330", "demo, 1 samples"} {
		if !strings.Contains(v, want) {
			t.Fatalf("view missing %q:\n%s", want, v)
		}
	}

	next, _ := m.Update(tickMsg{})
	if !strings.Contains(next.(model).View(), "328") {
		t.Fatalf("tick lost the display value")
	}
}

func TestView_UnitToggleKeepsLabelWithNumber(t *testing.T) {
	st := altitude.New(altitude.DefaultSettings())
	st.Update(100)
	m := newModel(Deps{State: st})

	m = press(t, m, 'u')
	if m.snap.Unit != altitude.Meters || m.snap.DisplayUnit != altitude.Feet {
		t.Fatalf("unit=%s displayUnit=%s", m.snap.Unit, m.snap.DisplayUnit)
	}
	first := strings.SplitN(m.View(), "\n", 3)[1]
	if !strings.Contains(first, "328") || !strings.Contains(first, "ft") {
		t.Fatalf("headline=%q", first)
	}

	st.Update(100)
	next, _ := m.Update(tickMsg{})
	m = next.(model)
	first = strings.SplitN(m.View(), "\n", 3)[1]
	if !strings.Contains(first, "100") || strings.Contains(first, "ft") {
		t.Fatalf("headline after sample=%q", first)
	}
}

func TestKeys_DelayTriggersAnnouncement(t *testing.T) {
	st := altitude.New(altitude.DefaultSettings())
	triggered := 0
	m := newModel(Deps{State: st, Trigger: func() { triggered++ }})

	m = press(t, m, 'd')
	if triggered != 1 {
		t.Fatalf("triggered=%d", triggered)
	}
	press(t, m, 'u')
	press(t, m, 'p')
	if triggered != 1 {
		t.Fatalf("unit/precision change triggered an announcement")
	}
}

func TestNextHelpers(t *testing.T) {
	if nextInt([]int{1, 5, 10}, 7) != 1 {
		t.Fatalf("unknown value should restart")
	}
	if nextFloat([]float64{0, 5}, 5) != 0 {
		t.Fatalf("should wrap")
	}
}
