package update

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/scheduler"
	"github.com/spinonoir/PlantOS/internal/state"
)

var testNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

type fakeCoordinator struct {
	mu        sync.Mutex
	snap      state.Snapshot
	hydrated  int
	added     []model.PlantForm
	notes     []string
	loaded    []string
	completed []string
	due       []int
	err       error
}

func (f *fakeCoordinator) Hydrate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hydrated++
}

func (f *fakeCoordinator) AddPlant(_ context.Context, form model.PlantForm) (model.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Plant{}, f.err
	}
	f.added = append(f.added, form)
	p := model.Plant{ID: "plant_new", Name: form.Name}
	f.snap.Plants = append(f.snap.Plants, p)
	return p, nil
}

func (f *fakeCoordinator) LogEvent(_ context.Context, plantID, note string) (model.TimelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, plantID+":"+note)
	return model.TimelineEvent{PlantID: plantID, EventType: model.EventTypeNote, Note: note}, f.err
}

func (f *fakeCoordinator) LoadPlant(_ context.Context, plantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, plantID)
	return f.err
}

func (f *fakeCoordinator) CompleteTask(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, taskID)
	return f.err
}

func (f *fakeCoordinator) RefreshSchedule(context.Context) error { return f.err }

func (f *fakeCoordinator) ScheduleDueReminders(_ context.Context, minutes int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.due = append(f.due, minutes)
	return 1, f.err
}

func (f *fakeCoordinator) Snapshot() state.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{snap: state.Snapshot{
		Plants: []model.Plant{
			{ID: "plant_fig", Name: "Fig", Species: "Ficus lyrata", LightLevel: model.LightHigh, WateringIntervalDays: 7, FeedingIntervalDays: 30, RemindersEnabled: true, Notes: "Keep away from drafts."},
			{ID: "plant_pothos", Name: "Pothos", LightLevel: model.LightLow, WateringIntervalDays: 10, FeedingIntervalDays: 45},
		},
		Tasks: map[string][]model.CareTask{
			"plant_fig": {
				{ID: "task_fig_w", PlantID: "plant_fig", Signal: model.SignalWatering, CadenceDays: 7, NextDueAt: testNow.Add(24 * time.Hour), Priority: model.PriorityMedium},
				{ID: "task_fig_f", PlantID: "plant_fig", Signal: model.SignalFeeding, CadenceDays: 30, NextDueAt: testNow.Add(72 * time.Hour), Priority: model.PriorityLow},
			},
		},
		Timelines: map[string][]model.TimelineEvent{
			"plant_fig": {
				{ID: "ev_1", PlantID: "plant_fig", EventType: model.EventTypeWatered, Note: "first drink", CreatedAt: testNow.Add(-48 * time.Hour)},
			},
		},
		Schedule: []model.ScheduleDay{
			{Date: "2026-02-10", Tasks: []model.CareTask{{ID: "task_fig_w", PlantID: "plant_fig", Signal: model.SignalWatering, Priority: model.PriorityMedium}}},
		},
	}}
}

func newTestModel(coord *fakeCoordinator) Model {
	m := NewModel(Options{
		Coordinator:      coord,
		DueWindowMinutes: 90,
		Now:              func() time.Time { return testNow },
	})
	m.Busy = 0
	return m
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typePalette(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	updated, _ := m.Update(runeKey('/'))
	m = updated.(Model)
	if !m.Palette.Active {
		t.Fatalf("expected palette active")
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(input)})
	m = updated.(Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

// runOps executes cmd, expanding batches, and returns the operation results.
func runOps(t *testing.T, cmd tea.Cmd) []OpResultMsg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	var out []OpResultMsg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, runOps(t, c)...)
		}
	case OpResultMsg:
		out = append(out, msg)
	}
	return out
}

func applyOps(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	results := runOps(t, cmd)
	if len(results) == 0 {
		t.Fatalf("expected an operation result")
	}
	for _, res := range results {
		updated, _ := m.Update(res)
		m = updated.(Model)
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(Options{})
	if m.CurrentView != ViewPlants {
		t.Fatalf("expected default view %q, got %q", ViewPlants, m.CurrentView)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if m.Busy != 0 {
		t.Fatalf("expected idle model without coordinator, got busy=%d", m.Busy)
	}
	if m.dueWindow != 60 {
		t.Fatalf("expected default due window 60, got %d", m.dueWindow)
	}
}

func TestNewModelWithCoordinatorStartsBusy(t *testing.T) {
	coord := newFakeCoordinator()
	m := NewModel(Options{Coordinator: coord})
	if m.Busy != 1 {
		t.Fatalf("expected hydrate in flight, got busy=%d", m.Busy)
	}
	if len(m.Snapshot.Plants) != 2 {
		t.Fatalf("expected initial snapshot, got %d plants", len(m.Snapshot.Plants))
	}
	m = applyOps(t, m, m.Init())
	if coord.hydrated != 1 {
		t.Fatalf("expected one hydrate, got %d", coord.hydrated)
	}
	if m.Busy != 0 {
		t.Fatalf("expected idle after hydrate, got busy=%d", m.Busy)
	}
	if !strings.Contains(m.Status.Text, "synced") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := newTestModel(newFakeCoordinator())
	updated, _ := m.Update(runeKey('2'))
	next := updated.(Model)
	if next.CurrentView != ViewSchedule {
		t.Fatalf("expected schedule view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(runeKey('4'))
	next = updated.(Model)
	if next.CurrentView != ViewReminders {
		t.Fatalf("expected reminders view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(SwitchViewMsg{View: View("Unknown")})
	next = updated.(Model)
	if next.CurrentView != ViewReminders {
		t.Fatalf("expected view unchanged for unknown view, got %q", next.CurrentView)
	}
}

func TestPlantsCursorOpensDetail(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	updated, _ := m.Update(runeKey('j'))
	m = updated.(Model)
	if m.SelectedPlantID != "plant_pothos" {
		t.Fatalf("expected pothos selected, got %q", m.SelectedPlantID)
	}
	updated, _ = m.Update(runeKey('j'))
	m = updated.(Model)
	if m.SelectedPlantID != "plant_pothos" {
		t.Fatalf("expected cursor clamped at last plant, got %q", m.SelectedPlantID)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.CurrentView != ViewPlant {
		t.Fatalf("expected plant view, got %q", m.CurrentView)
	}
	m = applyOps(t, m, cmd)
	if len(coord.loaded) != 1 || coord.loaded[0] != "plant_pothos" {
		t.Fatalf("expected pothos loaded, got %v", coord.loaded)
	}
	if m.Busy != 0 {
		t.Fatalf("expected idle after load, got busy=%d", m.Busy)
	}
}

func TestPaletteAddPlant(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "add Monstera species:Monstera deliciosa light:medium")
	if m.Palette.Active {
		t.Fatalf("expected palette closed after enter")
	}
	if m.Busy != 1 {
		t.Fatalf("expected add in flight, got busy=%d", m.Busy)
	}
	m = applyOps(t, m, cmd)
	if len(coord.added) != 1 {
		t.Fatalf("expected one add, got %d", len(coord.added))
	}
	form := coord.added[0]
	if form.Name != "Monstera" || form.Species != "Monstera deliciosa" || form.LightLevel != model.LightMedium {
		t.Fatalf("unexpected form: %+v", form)
	}
	if form.WateringIntervalDays != model.DefaultWateringIntervalDays {
		t.Fatalf("expected default watering interval, got %d", form.WateringIntervalDays)
	}
	if len(m.Snapshot.Plants) != 3 {
		t.Fatalf("expected snapshot to include new plant, got %d", len(m.Snapshot.Plants))
	}
	if m.Status.IsError || m.Status.Text != "added plant: Monstera" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestPaletteAddRejectsInvalidFormLocally(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "add Fern water:0")
	if cmd != nil {
		t.Fatalf("expected no command for invalid form")
	}
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %+v", m.Status)
	}
	if len(coord.added) != 0 {
		t.Fatalf("expected no remote add, got %d", len(coord.added))
	}
}

func TestPaletteNoteRequiresSelection(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "note leaves look glossy")
	if cmd != nil {
		t.Fatalf("expected no command without a selected plant")
	}
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "select a plant") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m.selectPlant("plant_fig")
	m, cmd = typePalette(t, m, "note leaves look glossy")
	m = applyOps(t, m, cmd)
	if len(coord.notes) != 1 || coord.notes[0] != "plant_fig:leaves look glossy" {
		t.Fatalf("unexpected notes: %v", coord.notes)
	}
	if m.Status.Text != "note logged" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestPaletteCompleteResolvesSignalAndID(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "complete task_fig_f")
	m = applyOps(t, m, cmd)

	m.selectPlant("plant_fig")
	m, cmd = typePalette(t, m, "done water")
	m = applyOps(t, m, cmd)

	if len(coord.completed) != 2 || coord.completed[0] != "task_fig_f" || coord.completed[1] != "task_fig_w" {
		t.Fatalf("unexpected completions: %v", coord.completed)
	}
	if m.Status.Text != "completed task_fig_w" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m.selectPlant("plant_pothos")
	m, cmd = typePalette(t, m, "complete watering")
	if cmd != nil || !m.Status.IsError {
		t.Fatalf("expected no task for pothos, status=%+v", m.Status)
	}
}

func TestPlantViewKeysCompleteTasks(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)
	m.selectPlant("plant_fig")
	m.CurrentView = ViewPlant

	updated, cmd := m.Update(runeKey('f'))
	m = applyOps(t, updated.(Model), cmd)
	if len(coord.completed) != 1 || coord.completed[0] != "task_fig_f" {
		t.Fatalf("unexpected completions: %v", coord.completed)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if updated.(Model).CurrentView != ViewPlants {
		t.Fatalf("expected esc to return to plants")
	}
}

func TestOperationErrorSurfaces(t *testing.T) {
	coord := newFakeCoordinator()
	coord.err = state.ErrUnknownTask
	m := newTestModel(coord)
	m.selectPlant("plant_fig")

	m, cmd := typePalette(t, m, "complete watering")
	m = applyOps(t, m, cmd)
	if !errors.Is(m.LastError, state.ErrUnknownTask) {
		t.Fatalf("expected unknown task error, got %v", m.LastError)
	}
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %+v", m.Status)
	}
	last := m.Notifications[len(m.Notifications)-1]
	if last.Level != "error" {
		t.Fatalf("expected error notification, got %+v", last)
	}
	if m.Busy != 0 {
		t.Fatalf("expected idle after failed op, got busy=%d", m.Busy)
	}
}

func TestPaletteShowPlantByName(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "show plant pothos")
	if m.CurrentView != ViewPlant || m.SelectedPlantID != "plant_pothos" {
		t.Fatalf("expected pothos detail, got view=%q selected=%q", m.CurrentView, m.SelectedPlantID)
	}
	applyOps(t, m, cmd)
	if len(coord.loaded) != 1 || coord.loaded[0] != "plant_pothos" {
		t.Fatalf("expected pothos load, got %v", coord.loaded)
	}

	m, cmd = typePalette(t, m, "show plant cactus")
	if cmd != nil || !m.Status.IsError {
		t.Fatalf("expected unknown plant error, status=%+v", m.Status)
	}
}

func TestPaletteDueUsesConfiguredWindow(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	m, cmd := typePalette(t, m, "due")
	m = applyOps(t, m, cmd)
	m, cmd = typePalette(t, m, "due 15m")
	m = applyOps(t, m, cmd)

	if len(coord.due) != 2 || coord.due[0] != 90 || coord.due[1] != 15 {
		t.Fatalf("unexpected due windows: %v", coord.due)
	}
	if !strings.Contains(m.Status.Text, "scheduled 1 reminder(s)") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestPaletteUnknownCommand(t *testing.T) {
	m := newTestModel(newFakeCoordinator())
	m, cmd := typePalette(t, m, "repot fig")
	if cmd != nil {
		t.Fatalf("expected no command")
	}
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %+v", m.Status)
	}
}

func TestReminderDueDeliversNotification(t *testing.T) {
	ch := make(chan scheduler.ReminderEvent, 1)
	notifier := &recordingNotifier{}
	m := NewModel(Options{Reminders: ch, Notifier: notifier, DesktopEnabled: true, Now: func() time.Time { return testNow }})

	ev := scheduler.ReminderEvent{ID: "rem-1", Title: "Water Fig", Body: "Next watering due Mon Feb 16 12:00", TriggerAt: testNow}
	updated, cmd := m.Update(ReminderDueMsg{Event: ev})
	next := updated.(Model)
	if len(next.Fired) != 1 || next.Fired[0].ID != "rem-1" {
		t.Fatalf("expected fired reminder, got %+v", next.Fired)
	}
	if next.Status.Text != "reminder: Water Fig" {
		t.Fatalf("unexpected status: %+v", next.Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Water Fig" {
		t.Fatalf("expected desktop notification, got %+v", notifier.sent)
	}
	if cmd == nil {
		t.Fatalf("expected to keep listening for reminders")
	}

	ch <- scheduler.ReminderEvent{ID: "rem-2", Title: "Feed Fig"}
	msg := cmd()
	due, ok := msg.(ReminderDueMsg)
	if !ok || due.Event.ID != "rem-2" {
		t.Fatalf("expected next reminder message, got %#v", msg)
	}
}

func TestFiredRingIsBounded(t *testing.T) {
	m := NewModel(Options{})
	for i := 0; i < maxFired+5; i++ {
		m.deliverReminder(scheduler.ReminderEvent{ID: "rem", Title: "Water", Body: "soon"})
	}
	if len(m.Fired) != maxFired {
		t.Fatalf("expected %d fired reminders, got %d", maxFired, len(m.Fired))
	}
}

func TestViewRendersPanels(t *testing.T) {
	coord := newFakeCoordinator()
	m := newTestModel(coord)

	out := m.View()
	if !strings.Contains(out, "plants (2)") || !strings.Contains(out, "Pothos") {
		t.Fatalf("expected plants panel, got:\n%s", out)
	}

	m.CurrentView = ViewSchedule
	out = m.View()
	if !strings.Contains(out, "2026-02-10") || !strings.Contains(out, "[WATER] Fig") {
		t.Fatalf("expected schedule panel, got:\n%s", out)
	}

	m.selectPlant("plant_fig")
	m.CurrentView = ViewPlant
	out = m.View()
	if !strings.Contains(out, "task_fig_w") || !strings.Contains(out, "tomorrow") {
		t.Fatalf("expected plant tasks, got:\n%s", out)
	}
	if !strings.Contains(out, "first drink") {
		t.Fatalf("expected timeline, got:\n%s", out)
	}
}

func TestHelpToggleShowsViewBindings(t *testing.T) {
	m := newTestModel(newFakeCoordinator())
	updated, _ := m.Update(runeKey('?'))
	m = updated.(Model)
	if !m.HelpVisible {
		t.Fatalf("expected help visible")
	}
	if !strings.Contains(m.View(), "open plant") {
		t.Fatalf("expected plants bindings in help")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(newFakeCoordinator())
	updated, cmd := m.Update(runeKey('q'))
	if !updated.(Model).Quitting || cmd == nil {
		t.Fatalf("expected quit")
	}
}
