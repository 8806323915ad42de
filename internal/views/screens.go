package views

import (
	"fmt"
	"strings"
)

type PlantsPanelData struct {
	TableView string
	Count     int
}

type PlantSummaryData struct {
	Name      string
	Species   string
	Light     string
	Watering  int
	Feeding   int
	Reminders bool
	Tags      []string
}

type ScheduleTaskData struct {
	TaskID    string
	PlantName string
	Signal    string
	Priority  string
}

type ScheduleDayData struct {
	Date  string
	Tasks []ScheduleTaskData
}

type PlantTaskData struct {
	ID       string
	Signal   string
	Cadence  int
	Due      string
	Priority string
}

type PlantDetailData struct {
	Summary   PlantSummaryData
	Tasks     []PlantTaskData
	NotesView string
}

type TimelineItemData struct {
	When string
	Type string
	Note string
}

type ReminderItemData struct {
	Title  string
	Body   string
	FireAt string
}

type SyncReportData struct {
	Plants   int
	Tasks    int
	Failures []string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderPlantsPanel(data PlantsPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("plants (%d):\n", data.Count))
	b.WriteString("actions: [j/k]move [enter]open [/]add <name>\n")
	if data.Count == 0 {
		b.WriteString("(no plants yet)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderPlantSummary(data PlantSummaryData) string {
	if strings.TrimSpace(data.Name) == "" {
		return "plant:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("plant: %s\n", data.Name))
	if data.Species != "" {
		b.WriteString(fmt.Sprintf("species: %s\n", data.Species))
	}
	b.WriteString(fmt.Sprintf("light: %s\n", data.Light))
	b.WriteString(fmt.Sprintf("water every %dd | feed every %dd\n", data.Watering, data.Feeding))
	reminders := "off"
	if data.Reminders {
		reminders = "on"
	}
	b.WriteString(fmt.Sprintf("reminders: %s\n", reminders))
	if len(data.Tags) > 0 {
		b.WriteString(fmt.Sprintf("tags: %s\n", strings.Join(data.Tags, ",")))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderSchedulePanel(days []ScheduleDayData) string {
	var b strings.Builder
	b.WriteString("schedule:\n")
	b.WriteString("actions: [r]refresh\n")
	if len(days) == 0 {
		b.WriteString("(nothing due in the horizon)")
		return b.String()
	}
	for _, day := range days {
		b.WriteString(fmt.Sprintf("\n%s:\n", day.Date))
		if len(day.Tasks) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		for _, t := range day.Tasks {
			b.WriteString(fmt.Sprintf("  %s %s %s (%s)\n", signalBadge(t.Signal), t.PlantName, t.Signal, t.Priority))
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderPlantDetail(data PlantDetailData) string {
	var b strings.Builder
	b.WriteString(RenderPlantSummary(data.Summary))
	b.WriteString("\n\ntasks:\n")
	if len(data.Tasks) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, t := range data.Tasks {
		b.WriteString(fmt.Sprintf("  %s %s every %dd due:%s [%s] %s\n", signalBadge(t.Signal), t.Signal, t.Cadence, t.Due, t.Priority, t.ID))
	}
	b.WriteString("actions: [w]watered [f]fed [esc]back\n")
	if strings.TrimSpace(data.NotesView) != "" {
		b.WriteString("\nnotes:\n")
		b.WriteString(data.NotesView)
	}
	return strings.TrimSpace(b.String())
}

func RenderTimeline(items []TimelineItemData) string {
	var b strings.Builder
	b.WriteString("timeline:\n")
	if len(items) == 0 {
		b.WriteString("(no events)")
		return b.String()
	}
	for _, it := range items {
		b.WriteString(fmt.Sprintf("%s [%s] %s\n", it.When, strings.ToUpper(it.Type), it.Note))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderRemindersPanel(title string, items []ReminderItemData) string {
	var b strings.Builder
	b.WriteString(title + ":\n")
	if len(items) == 0 {
		b.WriteString("(none)")
		return b.String()
	}
	for _, it := range items {
		b.WriteString(fmt.Sprintf("%s %s\n  %s\n", it.FireAt, it.Title, it.Body))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderSyncReport(data SyncReportData) string {
	var b strings.Builder
	b.WriteString("last sync:\n")
	b.WriteString(fmt.Sprintf("plants: %d | tasks: %d\n", data.Plants, data.Tasks))
	if len(data.Failures) == 0 {
		b.WriteString("failures: none")
		return b.String()
	}
	b.WriteString("failures:\n")
	for _, f := range data.Failures {
		b.WriteString("- " + f + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("\ncommand: /%s", input)
}

func RenderNotification(level string, title string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s: %s", strings.ToUpper(level), title, body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nglobal:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func signalBadge(signal string) string {
	switch signal {
	case "watering":
		return "[WATER]"
	case "feeding":
		return "[FEED]"
	default:
		return "[CARE]"
	}
}
