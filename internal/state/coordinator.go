// Package state holds the in-memory view the UI renders and orchestrates
// every mutation against the remote service, the local store and the
// reminder scheduler.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/remote"
	"github.com/spinonoir/PlantOS/internal/scheduler"
	"github.com/spinonoir/PlantOS/internal/storage"
	"github.com/spinonoir/PlantOS/internal/syncer"
)

var (
	ErrUnknownTask  = errors.New("state: unknown task")
	ErrUnknownPlant = errors.New("state: unknown plant")
)

const DefaultHorizonDays = 7

// Puller is satisfied by *syncer.Syncer.
type Puller interface {
	Pull(ctx context.Context) syncer.PullReport
}

type Deps struct {
	Store    storage.Repository
	Remote   remote.Gateway
	Syncer   Puller
	Reminder scheduler.Reminder
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now         func() time.Time
	HorizonDays int
}

// Snapshot is a copy of the coordinator's view at one instant.
type Snapshot struct {
	Plants    []model.Plant
	Schedule  []model.ScheduleDay
	Timelines map[string][]model.TimelineEvent
	Tasks     map[string][]model.CareTask
	Reminders []model.Reminder
	Loading   bool
	LastPull  syncer.PullReport
}

type Coordinator struct {
	store    storage.Repository
	remote   remote.Gateway
	syncer   Puller
	reminder scheduler.Reminder
	logger   *slog.Logger
	now      func() time.Time
	horizon  int

	// opMu admits one operation at a time; mu guards the fields below it.
	opMu sync.Mutex

	mu        sync.RWMutex
	plants    []model.Plant
	schedule  []model.ScheduleDay
	timelines map[string][]model.TimelineEvent
	tasks     map[string][]model.CareTask
	reminders map[string]model.Reminder
	loading   bool
	lastPull  syncer.PullReport
}

func New(deps Deps) (*Coordinator, error) {
	if deps.Store == nil {
		return nil, errors.New("state: store is required")
	}
	if deps.Remote == nil {
		return nil, errors.New("state: remote is required")
	}
	if deps.Syncer == nil {
		return nil, errors.New("state: syncer is required")
	}
	if deps.Reminder == nil {
		return nil, errors.New("state: reminder is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	horizon := deps.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	return &Coordinator{
		store:     deps.Store,
		remote:    deps.Remote,
		syncer:    deps.Syncer,
		reminder:  deps.Reminder,
		logger:    logger.With("component", "state"),
		now:       now,
		horizon:   horizon,
		plants:    []model.Plant{},
		schedule:  []model.ScheduleDay{},
		timelines: make(map[string][]model.TimelineEvent),
		tasks:     make(map[string][]model.CareTask),
		reminders: make(map[string]model.Reminder),
	}, nil
}

// Hydrate pulls, loads the store into memory and refreshes the schedule.
// Failures are logged; whatever was loaded before stays in place.
func (c *Coordinator) Hydrate(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	report := c.syncer.Pull(ctx)

	plants, err := c.store.ListPlants(ctx)
	if err != nil {
		c.logger.Warn("hydrate: keeping in-memory plants", "err", err)
	}
	tasks, taskErr := c.store.ListTasks(ctx, storage.TaskListFilter{})
	if taskErr != nil {
		c.logger.Warn("hydrate: keeping in-memory tasks", "err", taskErr)
	}

	schedule, schedErr := c.remote.MergedSchedule(ctx, c.horizon)
	if schedErr != nil {
		c.logger.Warn("hydrate: schedule unavailable", "err", schedErr)
	}

	c.mu.Lock()
	c.lastPull = report
	if err == nil {
		c.plants = plants
	}
	if taskErr == nil {
		c.tasks = groupTasks(tasks)
	}
	if schedErr == nil {
		c.schedule = schedule
	}
	c.mu.Unlock()

	c.logger.Info("hydrated", "plants", len(plants), "tasks", len(tasks), "pull_failures", len(report.Failures))
}

// AddPlant creates the plant remotely and mirrors the canonical record.
// A remote failure is returned as is and changes nothing locally.
func (c *Coordinator) AddPlant(ctx context.Context, form model.PlantForm) (model.Plant, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	form = form.WithDefaults()
	if err := form.Validate(); err != nil {
		return model.Plant{}, err
	}

	plant, err := c.remote.CreatePlant(ctx, form)
	if err != nil {
		return model.Plant{}, err
	}
	if err := c.store.SavePlants(ctx, []model.Plant{plant}); err != nil {
		return model.Plant{}, fmt.Errorf("persist created plant %s: %w", plant.ID, err)
	}

	c.mu.Lock()
	c.plants = upsertPlant(c.plants, plant)
	c.mu.Unlock()
	c.logger.Info("plant added", "plant_id", plant.ID, "name", plant.Name)

	if err := c.refreshSchedule(ctx); err != nil {
		return plant, fmt.Errorf("refresh schedule: %w", err)
	}
	return plant, nil
}

// RefreshSchedule replaces the in-memory schedule wholesale.
func (c *Coordinator) RefreshSchedule(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.refreshSchedule(ctx)
}

func (c *Coordinator) refreshSchedule(ctx context.Context) error {
	schedule, err := c.remote.MergedSchedule(ctx, c.horizon)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.schedule = schedule
	c.mu.Unlock()
	return nil
}

// LogEvent records a note against a plant.
func (c *Coordinator) LogEvent(ctx context.Context, plantID, note string) (model.TimelineEvent, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	ev, err := c.remote.AddTimelineEvent(ctx, plantID, model.TimelineEventCreate{
		EventType: model.EventTypeNote,
		Note:      note,
	})
	if err != nil {
		return model.TimelineEvent{}, err
	}

	c.mu.Lock()
	c.timelines[plantID] = append(c.timelines[plantID], ev)
	c.mu.Unlock()

	if err := c.store.SaveEvents(ctx, []model.TimelineEvent{ev}); err != nil {
		c.logger.Warn("persist event failed", "event_id", ev.ID, "err", err)
	}
	return ev, nil
}

// LoadPlant refreshes a plant's tasks and timeline. When the remote is
// unreachable the stored copies are loaded and the remote error returned.
func (c *Coordinator) LoadPlant(ctx context.Context, plantID string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	tasks, timeline, err := c.fetchPlant(ctx, plantID)
	if err != nil {
		c.loadPlantFromStore(ctx, plantID)
		return err
	}
	c.persistPlant(ctx, tasks, timeline)
	c.replacePlant(plantID, tasks, timeline)
	return nil
}

func (c *Coordinator) loadPlantFromStore(ctx context.Context, plantID string) {
	tasks, err := c.store.ListTasks(ctx, storage.TaskListFilter{PlantID: plantID})
	if err != nil {
		c.logger.Warn("load stored tasks failed", "plant_id", plantID, "err", err)
		return
	}
	events, err := c.store.ListEvents(ctx, storage.EventListFilter{PlantID: plantID})
	if err != nil {
		c.logger.Warn("load stored events failed", "plant_id", plantID, "err", err)
		return
	}
	// The store lists newest first; memory keeps service order.
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	c.replacePlant(plantID, tasks, events)
}

// CompleteTask completes a task remotely, refreshes the owning plant and
// schedules a reminder for the task's next due time.
func (c *Coordinator) CompleteTask(ctx context.Context, taskID string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	prev, err := c.lookupTask(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := c.remote.CompleteTask(ctx, taskID); err != nil {
		return err
	}

	tasks, timeline, err := c.fetchPlant(ctx, prev.PlantID)
	if err != nil {
		return fmt.Errorf("refresh plant %s after completion: %w", prev.PlantID, err)
	}
	c.persistPlant(ctx, tasks, timeline)
	c.replacePlant(prev.PlantID, tasks, timeline)

	next, ok := matchTask(prev, tasks)
	if !ok {
		c.logger.Warn("completed task missing after refresh", "task_id", taskID, "signal", prev.Signal)
		return nil
	}
	if !model.Advances(prev, next) {
		c.logger.Warn("completion did not advance due time",
			"task_id", next.ID, "previous", prev.NextDueAt, "next", next.NextDueAt)
		return nil
	}

	plant, err := c.lookupPlant(ctx, next.PlantID)
	if err != nil {
		return err
	}
	if !plant.RemindersEnabled {
		c.cancelReminder(next.ID)
		return nil
	}
	return c.scheduleReminder(plant, next.ID, next.Signal, next.NextDueAt)
}

// ScheduleDueReminders schedules a reminder for every task due within the
// next minutes that has none pending.
func (c *Coordinator) ScheduleDueReminders(ctx context.Context, minutes int) (int, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	due, err := c.remote.DueTasks(ctx, minutes)
	if err != nil {
		return 0, err
	}

	now := c.now()
	scheduled := 0
	for _, d := range due {
		c.mu.RLock()
		existing, pending := c.reminders[d.TaskID]
		c.mu.RUnlock()
		if pending && existing.Pending(now) {
			continue
		}
		plant, err := c.lookupPlant(ctx, d.PlantID)
		if err != nil {
			c.logger.Warn("due task for unknown plant", "task_id", d.TaskID, "plant_id", d.PlantID)
			continue
		}
		if !plant.RemindersEnabled {
			continue
		}
		if err := c.scheduleReminder(plant, d.TaskID, d.Signal, d.NextDueAt); err != nil {
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}

// Reset wipes the store and the in-memory view. Pending reminders are
// cancelled.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.store.ClearAll(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	pending := c.reminders
	c.plants = []model.Plant{}
	c.schedule = []model.ScheduleDay{}
	c.timelines = make(map[string][]model.TimelineEvent)
	c.tasks = make(map[string][]model.CareTask)
	c.reminders = make(map[string]model.Reminder)
	c.lastPull = syncer.PullReport{}
	c.mu.Unlock()

	for _, r := range pending {
		if err := c.reminder.Cancel(r.ID); err != nil && !errors.Is(err, scheduler.ErrUnknownReminder) {
			c.logger.Warn("cancel reminder failed", "reminder_id", r.ID, "err", err)
		}
	}
	return nil
}

func (c *Coordinator) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Coordinator) fetchPlant(ctx context.Context, plantID string) ([]model.CareTask, []model.TimelineEvent, error) {
	tasks, err := c.remote.ListTasks(ctx, plantID)
	if err != nil {
		return nil, nil, err
	}
	timeline, err := c.remote.ListTimeline(ctx, plantID)
	if err != nil {
		return nil, nil, err
	}
	return tasks, timeline, nil
}

// persistPlant mirrors refreshed rows into the store. Failures only cost
// durability; the next pull rewrites the same rows.
func (c *Coordinator) persistPlant(ctx context.Context, tasks []model.CareTask, timeline []model.TimelineEvent) {
	if err := c.store.SaveTasks(ctx, tasks); err != nil {
		c.logger.Warn("persist tasks failed", "err", err)
	}
	if err := c.store.SaveEvents(ctx, timeline); err != nil {
		c.logger.Warn("persist timeline failed", "err", err)
	}
}

func (c *Coordinator) replacePlant(plantID string, tasks []model.CareTask, timeline []model.TimelineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[plantID] = tasks
	c.timelines[plantID] = timeline
}

func (c *Coordinator) lookupTask(ctx context.Context, taskID string) (model.CareTask, error) {
	c.mu.RLock()
	for _, tasks := range c.tasks {
		for _, t := range tasks {
			if t.ID == taskID {
				c.mu.RUnlock()
				return t, nil
			}
		}
	}
	c.mu.RUnlock()

	t, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.CareTask{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if err != nil {
		return model.CareTask{}, err
	}
	return t, nil
}

func (c *Coordinator) lookupPlant(ctx context.Context, plantID string) (model.Plant, error) {
	c.mu.RLock()
	for _, p := range c.plants {
		if p.ID == plantID {
			c.mu.RUnlock()
			return p, nil
		}
	}
	c.mu.RUnlock()

	stored, err := c.store.ListPlants(ctx)
	if err != nil {
		return model.Plant{}, err
	}
	for _, p := range stored {
		if p.ID == plantID {
			return p, nil
		}
	}
	return model.Plant{}, fmt.Errorf("%w: %s", ErrUnknownPlant, plantID)
}

// matchTask finds the refreshed copy of prev by id, then by signal.
func matchTask(prev model.CareTask, refreshed []model.CareTask) (model.CareTask, bool) {
	for _, t := range refreshed {
		if t.ID == prev.ID {
			return t, true
		}
	}
	for _, t := range refreshed {
		if t.Signal == prev.Signal {
			return t, true
		}
	}
	return model.CareTask{}, false
}

func (c *Coordinator) scheduleReminder(plant model.Plant, taskID, signal string, due time.Time) error {
	c.cancelReminder(taskID)

	now := c.now()
	delay := scheduler.DelayUntil(due, now)
	title := reminderTitle(signal, plant.Name)
	body := fmt.Sprintf("Next %s due %s", signal, due.UTC().Format("Mon Jan 2 15:04"))
	id, err := c.reminder.Schedule(title, body, delay)
	if err != nil {
		return fmt.Errorf("schedule reminder for %s: %w", taskID, err)
	}

	c.mu.Lock()
	c.reminders[taskID] = model.Reminder{
		ID:      id,
		TaskID:  taskID,
		PlantID: plant.ID,
		Title:   title,
		Body:    body,
		FireAt:  now.Add(delay),
	}
	c.mu.Unlock()
	c.logger.Info("reminder scheduled", "task_id", taskID, "reminder_id", id, "delay", delay)
	return nil
}

func (c *Coordinator) cancelReminder(taskID string) {
	c.mu.Lock()
	existing, ok := c.reminders[taskID]
	delete(c.reminders, taskID)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := c.reminder.Cancel(existing.ID); err != nil && !errors.Is(err, scheduler.ErrUnknownReminder) {
		c.logger.Warn("cancel reminder failed", "reminder_id", existing.ID, "err", err)
	}
}

func reminderTitle(signal, plantName string) string {
	switch signal {
	case model.SignalWatering, "water":
		return "Water " + plantName
	case model.SignalFeeding, "feed":
		return "Feed " + plantName
	default:
		return plantName + ": " + signal
	}
}

func groupTasks(tasks []model.CareTask) map[string][]model.CareTask {
	out := make(map[string][]model.CareTask)
	for _, t := range tasks {
		out[t.PlantID] = append(out[t.PlantID], t)
	}
	return out
}

func upsertPlant(plants []model.Plant, p model.Plant) []model.Plant {
	out := make([]model.Plant, 0, len(plants)+1)
	replaced := false
	for _, existing := range plants {
		if existing.ID == p.ID {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}
