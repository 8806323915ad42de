package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinonoir/PlantOS/internal/model"
)

const (
	OpHydrate   = "hydrate"
	OpAddPlant  = "add_plant"
	OpLogEvent  = "log_event"
	OpLoadPlant = "load_plant"
	OpComplete  = "complete_task"
	OpSchedule  = "refresh_schedule"
	OpDue       = "due_reminders"
)

// startOp counts an in-flight coordinator call and starts the spinner for
// the first one.
func (m *Model) startOp(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.Busy++
	if m.Busy == 1 {
		return tea.Batch(cmd, m.syncSpinner.Tick)
	}
	return cmd
}

func (m Model) result(op, text string, err error) OpResultMsg {
	return OpResultMsg{Op: op, Text: text, Err: err, Snapshot: m.coord.Snapshot()}
}

func (m Model) hydrateCmd() tea.Cmd {
	if m.coord == nil {
		return nil
	}
	return func() tea.Msg {
		m.coord.Hydrate(m.ctx)
		snap := m.coord.Snapshot()
		text := fmt.Sprintf("synced %d plant(s), %d task(s)", snap.LastPull.Plants, snap.LastPull.Tasks)
		if !snap.LastPull.OK() {
			text = fmt.Sprintf("%s with %d failure(s)", text, len(snap.LastPull.Failures))
		}
		return OpResultMsg{Op: OpHydrate, Text: text, Snapshot: snap}
	}
}

func (m Model) addPlantCmd(form model.PlantForm) tea.Cmd {
	return func() tea.Msg {
		p, err := m.coord.AddPlant(m.ctx, form)
		if err != nil && p.ID == "" {
			return m.result(OpAddPlant, "", fmt.Errorf("add plant: %w", err))
		}
		if err != nil {
			return m.result(OpAddPlant, "", fmt.Errorf("added %s but %w", p.Name, err))
		}
		return m.result(OpAddPlant, fmt.Sprintf("added plant: %s", p.Name), nil)
	}
}

func (m Model) logEventCmd(plantID, note string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.coord.LogEvent(m.ctx, plantID, note); err != nil {
			return m.result(OpLogEvent, "", fmt.Errorf("log note: %w", err))
		}
		return m.result(OpLogEvent, "note logged", nil)
	}
}

func (m Model) loadPlantCmd(plantID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.coord.LoadPlant(m.ctx, plantID); err != nil {
			return m.result(OpLoadPlant, "showing cached plant", err)
		}
		return m.result(OpLoadPlant, "", nil)
	}
}

func (m Model) completeCmd(taskID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.coord.CompleteTask(m.ctx, taskID); err != nil {
			return m.result(OpComplete, "", fmt.Errorf("complete %s: %w", taskID, err))
		}
		return m.result(OpComplete, fmt.Sprintf("completed %s", taskID), nil)
	}
}

func (m Model) refreshScheduleCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.coord.RefreshSchedule(m.ctx); err != nil {
			return m.result(OpSchedule, "", fmt.Errorf("refresh schedule: %w", err))
		}
		return m.result(OpSchedule, "schedule refreshed", nil)
	}
}

func (m Model) dueRemindersCmd(minutes int) tea.Cmd {
	return func() tea.Msg {
		n, err := m.coord.ScheduleDueReminders(m.ctx, minutes)
		if err != nil {
			return m.result(OpDue, "", fmt.Errorf("due reminders: %w", err))
		}
		return m.result(OpDue, fmt.Sprintf("scheduled %d reminder(s) for the next %dm", n, minutes), nil)
	}
}
