package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinonoir/PlantOS/internal/commands"
	"github.com/spinonoir/PlantOS/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m, nil
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

// executePaletteCommand runs the typed command. Handlers only validate and
// queue work; coordinator calls run as tea commands.
func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	if m.coord == nil {
		m.Status = StatusBar{Text: "no data layer configured", IsError: true}
		return m, nil
	}

	var pending tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			form := a.Form.WithDefaults()
			if err := form.Validate(); err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			pending = m.addPlantCmd(form)
			return commands.Result{Message: fmt.Sprintf("adding plant: %s", form.Name)}, nil
		},
		Note: func(n commands.NoteArgs) (commands.Result, error) {
			if m.SelectedPlantID == "" {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "select a plant before adding a note"}
			}
			pending = m.logEventCmd(m.SelectedPlantID, n.Text)
			return commands.Result{Message: "logging note"}, nil
		},
		Complete: func(c commands.CompleteArgs) (commands.Result, error) {
			taskID, ok := m.resolveTask(c.Target)
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task matches %q", c.Target)}
			}
			pending = m.completeCmd(taskID)
			return commands.Result{Message: fmt.Sprintf("completing %s", taskID)}, nil
		},
		Sync: func() (commands.Result, error) {
			pending = m.hydrateCmd()
			return commands.Result{Message: "sync started"}, nil
		},
		Show: func(s commands.ShowArgs) (commands.Result, error) {
			switch s.Subject {
			case commands.SubjectPlants:
				m.CurrentView = ViewPlants
			case commands.SubjectSchedule:
				m.CurrentView = ViewSchedule
				pending = m.refreshScheduleCmd()
			case commands.SubjectReminders:
				m.CurrentView = ViewReminders
			case commands.SubjectPlant:
				p, ok := m.findPlant(s.Target)
				if !ok {
					return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no plant matches %q", s.Target)}
				}
				m.selectPlant(p.ID)
				m.CurrentView = ViewPlant
				pending = m.loadPlantCmd(p.ID)
				return commands.Result{Message: fmt.Sprintf("showing %s", p.Name)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("showing %s", s.Subject)}, nil
		},
		Due: func(d commands.DueArgs) (commands.Result, error) {
			minutes := d.Minutes
			if minutes <= 0 {
				minutes = m.dueWindow
			}
			pending = m.dueRemindersCmd(minutes)
			return commands.Result{Message: fmt.Sprintf("checking tasks due in %dm", minutes)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message, IsError: false}
	return m, m.startOp(pending)
}

// resolveTask accepts a task id from any plant, or a signal name on the
// selected plant.
func (m Model) resolveTask(target string) (string, bool) {
	target = strings.TrimSpace(target)
	for _, tasks := range m.Snapshot.Tasks {
		for _, t := range tasks {
			if t.ID == target {
				return t.ID, true
			}
		}
	}
	if m.SelectedPlantID == "" {
		return "", false
	}
	signal := normalizeSignal(target)
	for _, t := range m.Snapshot.Tasks[m.SelectedPlantID] {
		if strings.EqualFold(t.Signal, signal) {
			return t.ID, true
		}
	}
	return "", false
}

func normalizeSignal(s string) string {
	switch strings.ToLower(s) {
	case "water", model.SignalWatering:
		return model.SignalWatering
	case "feed", model.SignalFeeding:
		return model.SignalFeeding
	default:
		return strings.ToLower(s)
	}
}

func (m Model) findPlant(target string) (model.Plant, bool) {
	for _, p := range m.Snapshot.Plants {
		if p.ID == target {
			return p, true
		}
	}
	for _, p := range m.Snapshot.Plants {
		if strings.EqualFold(p.Name, target) {
			return p, true
		}
	}
	return model.Plant{}, false
}
