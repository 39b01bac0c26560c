package tui

import (
	"io"

	"thermostatui/internal/card"
	"thermostatui/internal/ha"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows c in the terminal until the user quits. The card must already
// be started.
func Run(c *card.Card, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(NewModel(c), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())

	c.OnChange(func(v card.View) {
		p.Send(ViewMsg{View: v})
	})
	c.OnMoreInfo(func(entityID string, snap *ha.State) {
		p.Send(MoreInfoMsg{EntityID: entityID, State: snap})
	})

	_, err := p.Run()
	return err
}

// RenderOnce returns the card as it would appear in the terminal, without
// starting a program
func RenderOnce(c Card) string {
	return NewModel(c).View()
}
