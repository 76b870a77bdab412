package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/internal/registry"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	reg, err := registry.Load(filepath.Join(t.TempDir(), "repositories.json"))
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return NewApp(reg, eventbus.New())
}

func TestAppStartsOnRepositoriesTab(t *testing.T) {
	a := newTestApp(t)
	if a.activeTab != TabRepositories {
		t.Errorf("activeTab = %v, want TabRepositories", a.activeTab)
	}
}

func TestTabKeysJumpDirectly(t *testing.T) {
	a := newTestApp(t)
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if a.activeTab != TabActivity {
		t.Errorf("activeTab = %v after pressing 2, want TabActivity", a.activeTab)
	}
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	if a.activeTab != TabRepositories {
		t.Errorf("activeTab = %v after pressing 1, want TabRepositories", a.activeTab)
	}
}

func TestTabKeyCyclesForwardAndWraps(t *testing.T) {
	a := newTestApp(t)
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.activeTab != TabActivity {
		t.Errorf("activeTab = %v after one tab press, want TabActivity", a.activeTab)
	}
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.activeTab != TabRepositories {
		t.Errorf("activeTab = %v after wrapping, want TabRepositories", a.activeTab)
	}
}

func TestShiftTabCyclesBackwardAndWraps(t *testing.T) {
	a := newTestApp(t)
	a.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if a.activeTab != TabActivity {
		t.Errorf("activeTab = %v after shift+tab from the first tab, want it to wrap to TabActivity", a.activeTab)
	}
}

func TestQuitKeysReturnTeaQuit(t *testing.T) {
	a := newTestApp(t)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected ctrl+c to return a quit command")
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("expected a tea.QuitMsg, got %T", msg)
	}
}

func TestWindowSizeMsgPropagatesToSubModels(t *testing.T) {
	a := newTestApp(t)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if a.width != 100 || a.height != 40 {
		t.Errorf("App size = (%d,%d), want (100,40)", a.width, a.height)
	}
	if a.View() == "Loading..." {
		t.Error("View should render content once a window size has been received")
	}
}
