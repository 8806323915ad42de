package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/state"
	"github.com/spinonoir/PlantOS/internal/views"
)

// Init hydrates from the service and starts listening for reminders.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForReminderCmd(m.reminders)}
	if m.coord != nil {
		cmds = append(cmds, m.hydrateCmd(), m.syncSpinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active", IsError: false}
			return m, nil
		case m.Keys.Plants:
			m.CurrentView = ViewPlants
			return m, nil
		case m.Keys.Schedule:
			m.CurrentView = ViewSchedule
			return m, nil
		case m.Keys.Plant:
			return m.openSelectedPlant()
		case m.Keys.Reminders:
			m.CurrentView = ViewReminders
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown", IsError: false}
			} else {
				m.Status = StatusBar{Text: "help hidden", IsError: false}
			}
			return m, nil
		case m.Keys.Sync:
			if m.Snapshot.Loading {
				return m, nil
			}
			m.Snapshot.Loading = true
			m.Status = StatusBar{Text: "sync started", IsError: false}
			return m, m.startOp(m.hydrateCmd())
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		return m.handleViewKey(typed)
	case spinner.TickMsg:
		if m.Busy > 0 {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case OpResultMsg:
		return m.applyResult(typed), nil
	case ReminderDueMsg:
		m.deliverReminder(typed.Event)
		return m, waitForReminderCmd(m.reminders)
	}
	return m, nil
}

func (m Model) applyResult(res OpResultMsg) Model {
	if m.Busy > 0 {
		m.Busy--
	}
	m.setSnapshot(res.Snapshot)
	if res.Err != nil {
		m.LastError = res.Err
		text := res.Err.Error()
		if res.Text != "" {
			text = res.Text + ": " + text
		}
		m.Status = StatusBar{Text: text, IsError: true}
		m.notify("Error", text, "error")
		return m
	}
	if res.Text != "" {
		m.Status = StatusBar{Text: res.Text, IsError: false}
		m.notify("Status", res.Text, "info")
	}
	return m
}

func (m *Model) setSnapshot(snap state.Snapshot) {
	m.Snapshot = snap
	if m.SelectedPlantID != "" {
		if _, ok := m.findPlant(m.SelectedPlantID); !ok {
			m.SelectedPlantID = ""
		}
	}
	m.syncPlantTable()
}

func (m Model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	switch m.CurrentView {
	case ViewPlants:
		switch keyStr {
		case "j", "down":
			m.moveCursor(1)
		case "k", "up":
			m.moveCursor(-1)
		case "enter":
			return m.openSelectedPlant()
		}
	case ViewSchedule:
		if keyStr == "r" && m.coord != nil {
			return m, m.startOp(m.refreshScheduleCmd())
		}
	case ViewPlant:
		switch keyStr {
		case "w":
			return m.completeSignal(model.SignalWatering)
		case "f":
			return m.completeSignal(model.SignalFeeding)
		case "esc":
			m.CurrentView = ViewPlants
		}
	case ViewReminders:
		if keyStr == "d" && m.coord != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("checking tasks due in %dm", m.dueWindow), IsError: false}
			return m, m.startOp(m.dueRemindersCmd(m.dueWindow))
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor = clampCursor(m.cursor+delta, len(m.Snapshot.Plants))
	m.plantTable.SetCursor(m.cursor)
	if len(m.Snapshot.Plants) > 0 {
		m.SelectedPlantID = m.Snapshot.Plants[m.cursor].ID
	}
}

func (m *Model) selectPlant(id string) {
	m.SelectedPlantID = id
	for i, p := range m.Snapshot.Plants {
		if p.ID == id {
			m.cursor = i
			m.plantTable.SetCursor(i)
			return
		}
	}
}

func (m Model) openSelectedPlant() (tea.Model, tea.Cmd) {
	if m.SelectedPlantID == "" && len(m.Snapshot.Plants) > 0 {
		m.SelectedPlantID = m.Snapshot.Plants[clampCursor(m.cursor, len(m.Snapshot.Plants))].ID
	}
	if m.SelectedPlantID == "" {
		m.Status = StatusBar{Text: "no plant selected", IsError: true}
		return m, nil
	}
	m.CurrentView = ViewPlant
	if m.coord == nil {
		return m, nil
	}
	return m, m.startOp(m.loadPlantCmd(m.SelectedPlantID))
}

func (m Model) completeSignal(signal string) (tea.Model, tea.Cmd) {
	taskID, ok := m.resolveTask(signal)
	if !ok || m.coord == nil {
		m.Status = StatusBar{Text: fmt.Sprintf("no %s task for this plant", signal), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: fmt.Sprintf("completing %s", taskID), IsError: false}
	return m, m.startOp(m.completeCmd(taskID))
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewPlants:
		leftPane = m.renderPlantsView()
		rightPane = m.renderPlantSummary()
	case ViewSchedule:
		leftPane = m.renderScheduleView()
		rightPane = m.renderSyncReport()
	case ViewPlant:
		leftPane = m.renderPlantDetail()
		rightPane = m.renderTimeline()
	case ViewReminders:
		leftPane = m.renderRemindersView()
		rightPane = m.renderFiredView()
	}
	rightPane += m.renderCommandPalette() + m.renderHelpIfVisible()

	notificationView := ""
	if m.Busy > 0 || m.Snapshot.Loading {
		notificationView = "sync: " + m.syncSpinner.View() + " running"
	}
	notificationView = strings.TrimSpace(strings.Join([]string{
		notificationView,
		strings.TrimSpace(m.renderLatestNotification()),
	}, "\n"))

	selected := m.SelectedPlantID
	if p, ok := m.findPlant(selected); ok {
		selected = p.Name
	}
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("plantos | view: %s | plant: %s", m.CurrentView, selected),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: notificationView,
		Footer: fmt.Sprintf("keys: %s plants | %s schedule | %s plant | %s reminders | %s sync | / cmd | %s help | %s quit",
			m.Keys.Plants, m.Keys.Schedule, m.Keys.Plant, m.Keys.Reminders, m.Keys.Sync, m.Keys.Help, m.Keys.Quit),
	})
}
