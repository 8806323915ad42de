package update

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/views"
)

func (m *Model) syncPlantTable() {
	rows := make([]table.Row, 0, len(m.Snapshot.Plants))
	for _, p := range m.Snapshot.Plants {
		rows = append(rows, table.Row{p.Name, p.Species, string(p.LightLevel), strconv.Itoa(p.WateringIntervalDays) + "d"})
	}
	m.plantTable.SetRows(rows)
	m.cursor = clampCursor(m.cursor, len(rows))
	if len(rows) > 0 {
		m.plantTable.SetCursor(m.cursor)
	}
}

func (m Model) selectedPlant() (model.Plant, bool) {
	if m.SelectedPlantID == "" {
		return model.Plant{}, false
	}
	return m.findPlant(m.SelectedPlantID)
}

func summaryData(p model.Plant) views.PlantSummaryData {
	return views.PlantSummaryData{
		Name:      p.Name,
		Species:   p.Species,
		Light:     string(p.LightLevel),
		Watering:  p.WateringIntervalDays,
		Feeding:   p.FeedingIntervalDays,
		Reminders: p.RemindersEnabled,
		Tags:      p.Tags,
	}
}

func (m Model) renderPlantsView() string {
	return views.RenderPlantsPanel(views.PlantsPanelData{
		TableView: m.plantTable.View(),
		Count:     len(m.Snapshot.Plants),
	})
}

func (m Model) renderPlantSummary() string {
	p, ok := m.selectedPlant()
	if !ok && len(m.Snapshot.Plants) > 0 {
		p, ok = m.Snapshot.Plants[m.cursor], true
	}
	if !ok {
		return views.RenderPlantSummary(views.PlantSummaryData{})
	}
	return views.RenderPlantSummary(summaryData(p))
}

func (m Model) renderScheduleView() string {
	names := make(map[string]string, len(m.Snapshot.Plants))
	for _, p := range m.Snapshot.Plants {
		names[p.ID] = p.Name
	}
	days := make([]views.ScheduleDayData, 0, len(m.Snapshot.Schedule))
	for _, d := range m.Snapshot.Schedule {
		day := views.ScheduleDayData{Date: d.Date}
		for _, t := range d.Tasks {
			name, ok := names[t.PlantID]
			if !ok {
				name = t.PlantID
			}
			day.Tasks = append(day.Tasks, views.ScheduleTaskData{
				TaskID:    t.ID,
				PlantName: name,
				Signal:    t.Signal,
				Priority:  string(t.Priority),
			})
		}
		days = append(days, day)
	}
	return views.RenderSchedulePanel(days)
}

func (m Model) renderSyncReport() string {
	report := m.Snapshot.LastPull
	data := views.SyncReportData{Plants: report.Plants, Tasks: report.Tasks}
	for _, f := range report.Failures {
		data.Failures = append(data.Failures, f.String())
	}
	return views.RenderSyncReport(data)
}

func (m Model) renderPlantDetail() string {
	p, ok := m.selectedPlant()
	if !ok {
		return views.RenderPlantSummary(views.PlantSummaryData{})
	}
	now := m.now()
	data := views.PlantDetailData{Summary: summaryData(p)}
	if notes := views.RenderMarkdown(p.Notes, m.notesViewport.Width); notes != "" {
		vp := m.notesViewport
		vp.SetContent(notes)
		data.NotesView = vp.View()
	}
	for _, t := range m.Snapshot.Tasks[p.ID] {
		data.Tasks = append(data.Tasks, views.PlantTaskData{
			ID:       t.ID,
			Signal:   t.Signal,
			Cadence:  t.CadenceDays,
			Due:      formatDue(t.NextDueAt, now),
			Priority: string(t.Priority),
		})
	}
	return views.RenderPlantDetail(data)
}

func (m Model) renderTimeline() string {
	events := m.Snapshot.Timelines[m.SelectedPlantID]
	items := make([]views.TimelineItemData, 0, len(events))
	// Newest first.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		items = append(items, views.TimelineItemData{
			When: ev.CreatedAt.Local().Format("Jan 2 15:04"),
			Type: ev.EventType,
			Note: ev.Note,
		})
	}
	return views.RenderTimeline(items)
}

func (m Model) renderRemindersView() string {
	now := m.now()
	items := make([]views.ReminderItemData, 0, len(m.Snapshot.Reminders))
	for _, r := range m.Snapshot.Reminders {
		if !r.Pending(now) {
			continue
		}
		items = append(items, views.ReminderItemData{
			Title:  r.Title,
			Body:   r.Body,
			FireAt: r.FireAt.Local().Format("Mon Jan 2 15:04"),
		})
	}
	return views.RenderRemindersPanel("pending reminders", items)
}

func (m Model) renderFiredView() string {
	items := make([]views.ReminderItemData, 0, len(m.Fired))
	for i := len(m.Fired) - 1; i >= 0; i-- {
		ev := m.Fired[i]
		items = append(items, views.ReminderItemData{
			Title:  ev.Title,
			Body:   ev.Body,
			FireAt: ev.TriggerAt.Local().Format("15:04:05"),
		})
	}
	return views.RenderRemindersPanel("delivered", items)
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
}

func (m Model) renderLatestNotification() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Title, n.Body)
}
