package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message
// back into the model.
func press(t *testing.T, m watchModel, k string) watchModel {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(watchModel)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(watchModel)
		}
	}
	return m
}

func ids(m watchModel) []string {
	var out []string
	for _, n := range m.nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestWatchModelNavigation(t *testing.T) {
	m := newWatchModel(context.Background(), newTestEngine(t))
	if len(m.nodes) != 4 {
		t.Fatalf("nodes = %v, want 4 visible", ids(m))
	}

	m = press(t, m, "up")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	for range 10 {
		m = press(t, m, "down")
	}
	if m.cursor != 3 {
		t.Errorf("cursor = %d, want 3", m.cursor)
	}
}

func TestWatchModelToggle(t *testing.T) {
	e := newTestEngine(t)
	m := newWatchModel(context.Background(), e)

	m = press(t, m, "t")
	if m.err != nil {
		t.Fatalf("toggle: %v", m.err)
	}
	if got := ids(m); len(got) != 1 || got[0] != "root" {
		t.Errorf("visible after collapsing root = %v, want [root]", got)
	}
	if !strings.Contains(m.View(), "[+]") {
		t.Error("collapsed marker missing from view")
	}

	m = press(t, m, "enter")
	if len(m.nodes) != 4 {
		t.Errorf("visible after expanding root = %v, want 4 nodes", ids(m))
	}
}

func TestWatchModelCut(t *testing.T) {
	e := newTestEngine(t)
	m := newWatchModel(context.Background(), e)

	m = press(t, m, "down") // a
	m = press(t, m, "X")
	if m.err != nil {
		t.Fatalf("cut: %v", m.err)
	}
	if e.Graph.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", e.Graph.NodeCount())
	}
	if m.cursor >= len(m.nodes) {
		t.Errorf("cursor %d out of range for %d nodes", m.cursor, len(m.nodes))
	}
}

func TestWatchModelEvents(t *testing.T) {
	m := newWatchModel(context.Background(), newTestEngine(t))

	next, _ := m.Update(startedMsg{Session: "s1", Mode: layout.Continuous})
	m = next.(watchModel)
	if !m.running {
		t.Error("model should be running after started")
	}

	next, _ = m.Update(progressMsg{Session: "s1", Iterations: 42, IterationsPerSecond: 100, Metadata: forceatlas2.Metadata{}})
	m = next.(watchModel)
	if view := m.View(); !strings.Contains(view, "42 iterations") {
		t.Errorf("view missing iteration count:\n%s", view)
	}

	next, _ = m.Update(stoppedMsg{Session: "s1", Reason: layout.StopAutoStop, Iterations: 50})
	m = next.(watchModel)
	if m.running {
		t.Error("model still running after stopped")
	}
	if view := m.View(); !strings.Contains(view, "idle (autoStop)") || !strings.Contains(view, "50 iterations") {
		t.Errorf("view after stop:\n%s", view)
	}
}

func TestWatchModelStartStop(t *testing.T) {
	e := newTestEngine(t)
	m := newWatchModel(context.Background(), e)

	m = press(t, m, "s")
	if !e.IsRunning() {
		t.Fatal("s did not start a run")
	}
	// The started event is delivered by the program in real use.
	m.running = true
	m = press(t, m, "s")
	if e.IsRunning() {
		t.Error("second s did not stop the run")
	}
	if m.err != nil {
		t.Errorf("err = %v", m.err)
	}
}

func TestWatchModelQuit(t *testing.T) {
	m := newWatchModel(context.Background(), newTestEngine(t))
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
