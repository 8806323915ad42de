package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinonoir/PlantOS/internal/scheduler"
)

func waitForReminderCmd(ch <-chan scheduler.ReminderEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Event: ev}
	}
}

func (m *Model) deliverReminder(ev scheduler.ReminderEvent) {
	m.Fired = append(m.Fired, ev)
	if len(m.Fired) > maxFired {
		m.Fired = m.Fired[len(m.Fired)-maxFired:]
	}
	m.Status = StatusBar{Text: "reminder: " + ev.Title, IsError: false}
	m.notify(ev.Title, ev.Body, "reminder")
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.now(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		_ = m.notifier.Send(n)
	}
}
