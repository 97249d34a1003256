package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/clusterflow/internal/scene"
)

// PickerItem is one preset offered by the picker.
type PickerItem struct {
	Name        string
	Description string
}

// BuildFunc builds the scene for a picked preset on a fresh virtual loop.
type BuildFunc func(preset string) (*scene.Scene, error)

const (
	stateMenu = iota
	stateLive
)

// Picker lists presets and plays the chosen one.
type Picker struct {
	ctx    context.Context
	state  int
	cursor int
	items  []PickerItem
	build  BuildFunc
	live   Model
	err    error
}

func NewPicker(ctx context.Context, items []PickerItem, build BuildFunc) Picker {
	return Picker{ctx: ctx, items: items, build: build}
}

func (m Picker) Init() tea.Cmd { return nil }

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateLive {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) == 0 {
			return m, nil
		}
		return m.start()
	}
	return m, nil
}

func (m Picker) start() (tea.Model, tea.Cmd) {
	s, err := m.build(m.items[m.cursor].Name)
	if err != nil {
		m.err = err
		return m, nil
	}
	live, err := NewModel(m.ctx, s)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state, m.err = live, stateLive, nil
	return m, m.live.Init()
}

func (m Picker) View() string {
	if m.state == stateLive {
		return m.live.View()
	}
	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	sub := mutedStyle()
	b.WriteString("\n\n    " + h.Render("CLUSTERFLOW") + "\n    " + sub.Render("force layout transitions") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, it := range m.items {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true).Render("▸"),
				lipgloss.NewStyle().Foreground(CurrentTheme.Text).Bold(true).Render(fmt.Sprintf("%-10s", it.Name)),
				lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Render(it.Description)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", sub.Render(fmt.Sprintf("  %-10s", it.Name)), sub.Render(it.Description)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + statusStyle(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + sub.Render("j/k navigate  enter select  q quit") + "\n")
	return b.String()
}
