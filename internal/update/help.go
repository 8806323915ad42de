package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/spinonoir/PlantOS/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return "\n" + views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Plants, Action: "switch to Plants"},
		{Key: m.Keys.Schedule, Action: "switch to Schedule"},
		{Key: m.Keys.Plant, Action: "switch to Plant detail"},
		{Key: m.Keys.Reminders, Action: "switch to Reminders"},
		{Key: m.Keys.Sync, Action: "sync from service"},
		{Key: "/", Action: "open command palette"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewPlants:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "enter", Action: "open plant"},
		}
	case ViewSchedule:
		return []KeyBinding{
			{Key: "r", Action: "refresh schedule"},
		}
	case ViewPlant:
		return []KeyBinding{
			{Key: "w/f", Action: "complete watering / feeding"},
			{Key: "esc", Action: "back to plants"},
		}
	case ViewReminders:
		return []KeyBinding{
			{Key: "d", Action: "schedule reminders for due tasks"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range append(m.globalBindings(), m.viewBindings()...) {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
