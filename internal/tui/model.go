// Package tui renders the climate card in a terminal. Keys stand in for the
// slider and buttons; every gesture goes through the card runtime.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"thermostatui/internal/card"
	"thermostatui/internal/ha"
	"thermostatui/internal/interaction"
	"thermostatui/internal/render"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Card is the part of the card runtime the terminal drives
type Card interface {
	View() card.View
	Dispatch(ev interaction.Event) error
}

// ViewMsg carries a View published by the card
type ViewMsg struct {
	View card.View
}

// MoreInfoMsg opens the attribute panel for an entity
type MoreInfoMsg struct {
	EntityID string
	State    *ha.State
}

const gaugeWidth = 36

// Model is the bubbletea model for one card
type Model struct {
	card Card
	view card.View

	// drag is the value being dragged with the arrow keys, nil when idle
	drag     *float64
	moreInfo *MoreInfoMsg
	err      error
	width    int

	gauge progress.Model
	help  help.Model
	keys  keyMap
}

// NewModel creates a model showing c's current View
func NewModel(c Card) Model {
	gauge := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	gauge.Width = gaugeWidth

	return Model{
		card:  c,
		view:  c.View(),
		gauge: gauge,
		help:  help.New(),
		keys:  defaultKeyMap(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case ViewMsg:
		m.view = msg.View
		return m, nil

	case MoreInfoMsg:
		m.moreInfo = &msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Close):
		m.moreInfo = nil

	case key.Matches(msg, m.keys.Left):
		if !m.view.Tree.Loading {
			m.dragBy(-1)
		}

	case key.Matches(msg, m.keys.Right):
		if !m.view.Tree.Loading {
			m.dragBy(1)
		}

	case key.Matches(msg, m.keys.Release):
		if m.drag != nil {
			v := *m.drag
			m.drag = nil
			m.dispatch(interaction.ValueChanged{Value: v})
		} else if m.view.Interaction.StepPending {
			m.dispatch(interaction.CommitStep{})
		}

	case key.Matches(msg, m.keys.Plus):
		if m.hasButtons() {
			m.dispatch(interaction.Increment{})
		}

	case key.Matches(msg, m.keys.Minus):
		if m.hasButtons() {
			m.dispatch(interaction.Decrement{})
		}

	case key.Matches(msg, m.keys.Commit):
		if m.hasButtons() {
			m.dispatch(interaction.CommitStep{})
		}

	case key.Matches(msg, m.keys.Mode):
		idx := int(msg.String()[0] - '1')
		if modes := m.view.Tree.Modes; idx >= 0 && idx < len(modes) {
			m.dispatch(interaction.SelectMode{Mode: modes[idx].Mode})
		}

	case key.Matches(msg, m.keys.MoreInfo):
		if m.view.Tree.MoreInfo != nil {
			m.dispatch(interaction.MoreInfo{})
		}

	case key.Matches(msg, m.keys.Dismiss):
		m.dispatch(interaction.DismissAlert{})
	}
	return m, nil
}

func (m Model) hasButtons() bool {
	return len(m.view.Tree.Buttons) > 0
}

func (m *Model) dragBy(direction float64) {
	slider := m.view.Tree.Slider
	v := slider.Value
	if m.drag != nil {
		v = *m.drag
	}
	v += direction * slider.Step
	// The slider primitive never leaves its range
	if v < slider.Min {
		v = slider.Min
	}
	if v > slider.Max {
		v = slider.Max
	}
	m.drag = &v
	m.dispatch(interaction.ValueChanging{Value: v})
}

func (m *Model) dispatch(ev interaction.Event) {
	m.err = m.card.Dispatch(ev)
}

// View implements tea.Model
func (m Model) View() string {
	t := m.view.Tree
	var b strings.Builder

	b.WriteString(TitleStyle.Render(t.Name))
	if t.MoreInfo != nil {
		b.WriteString(SecondaryReadoutStyle.Render("  [i] " + t.MoreInfo.Label))
	}
	b.WriteString("\n")

	if t.LowBattery != nil {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s: %s %s", t.LowBattery.Title, t.LowBattery.Text, t.LowBattery.Detail)))
		b.WriteString("\n")
	}
	if t.Error != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s: %s", t.Error.Title, t.Error.Text)))
		b.WriteString("\n")
	}
	if line := indicatorLine(t.Indicators); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if t.Primary == nil {
		b.WriteString(PlaceholderStyle.Render(t.Placeholder))
		b.WriteString("\n")
	} else {
		b.WriteString(PrimaryReadoutStyle.Render(t.Primary.Value + " " + t.Primary.Unit))
		if t.Slider.Inactive {
			b.WriteString(IndicatorStyle.Render("  (inactive)"))
		}
		b.WriteString("\n")
		b.WriteString(m.gauge.ViewAs(fraction(t.Slider)))
		b.WriteString("\n")
		b.WriteString(secondaryLine(t))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(modeRow(t.Modes))
	if len(t.Buttons) > 0 {
		b.WriteString("   " + ModeStyle.Render("[-]") + ModeStyle.Render("[+]"))
	}
	if m.view.Interaction.StepPending {
		b.WriteString(SecondaryReadoutStyle.Render("  pending"))
	}

	out := CardStyle.BorderForeground(containerColor(t.ContainerClass)).Render(b.String())

	if m.moreInfo != nil {
		out += "\n" + moreInfoPanel(m.moreInfo)
	}
	if m.err != nil {
		out += "\n" + ErrorStyle.Render(m.err.Error())
	}
	return out + "\n" + HelpStyle.Render(m.help.View(m.keys))
}

// fraction is the slider position in [0, 1]
func fraction(s render.Slider) float64 {
	if s.Max <= s.Min {
		return 0
	}
	f := (s.Value - s.Min) / (s.Max - s.Min)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func secondaryLine(t render.Tree) string {
	parts := []string{}
	if t.Secondary != nil {
		parts = append(parts, t.Secondary.Value+" "+t.Secondary.Unit)
	}
	if t.Humidity != nil {
		parts = append(parts, t.Humidity.Value+" "+t.Humidity.Unit)
	}
	line := SecondaryReadoutStyle.Render(strings.Join(parts, "   "))
	if t.Status.Active {
		line += "  " + HeatingStyle.Render(t.Status.Title)
	}
	return line
}

func indicatorLine(nodes []render.IndicatorNode) string {
	parts := []string{}
	for _, n := range nodes {
		style := IndicatorStyle
		if n.Active {
			style = ActiveIndicatorStyle
		}
		parts = append(parts, style.Render(n.Title))
	}
	return strings.Join(parts, "  ")
}

func modeRow(modes []render.ModeNode) string {
	cells := []string{}
	for i, mode := range modes {
		label := fmt.Sprintf("%d %s", i+1, mode.Label)
		if mode.Selected {
			cells = append(cells, SelectedModeStyle.Render(label))
		} else {
			cells = append(cells, ModeStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func moreInfoPanel(info *MoreInfoMsg) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(info.EntityID))
	if info.State != nil {
		b.WriteString("  " + info.State.State)

		keys := make([]string, 0, len(info.State.Attributes))
		for k := range info.State.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%-26s %v", k, info.State.Attributes[k])
		}
	}
	return PanelStyle.Render(b.String())
}
