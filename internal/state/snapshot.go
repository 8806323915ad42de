package state

import (
	"sort"

	"github.com/spinonoir/PlantOS/internal/model"
)

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	timelines := make(map[string][]model.TimelineEvent, len(c.timelines))
	for id, events := range c.timelines {
		timelines[id] = append([]model.TimelineEvent(nil), events...)
	}
	tasks := make(map[string][]model.CareTask, len(c.tasks))
	for id, list := range c.tasks {
		tasks[id] = append([]model.CareTask(nil), list...)
	}
	return Snapshot{
		Plants:    append([]model.Plant{}, c.plants...),
		Schedule:  copySchedule(c.schedule),
		Timelines: timelines,
		Tasks:     tasks,
		Reminders: c.remindersLocked(),
		Loading:   c.loading,
		LastPull:  c.lastPull,
	}
}

func (c *Coordinator) Plants() []model.Plant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Plant{}, c.plants...)
}

func (c *Coordinator) Schedule() []model.ScheduleDay {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySchedule(c.schedule)
}

func (c *Coordinator) Timeline(plantID string) []model.TimelineEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.TimelineEvent{}, c.timelines[plantID]...)
}

func (c *Coordinator) Tasks(plantID string) []model.CareTask {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.CareTask{}, c.tasks[plantID]...)
}

func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Reminders lists reminders scheduled this session, soonest first.
func (c *Coordinator) Reminders() []model.Reminder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remindersLocked()
}

func (c *Coordinator) remindersLocked() []model.Reminder {
	out := make([]model.Reminder, 0, len(c.reminders))
	for _, r := range c.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

func copySchedule(days []model.ScheduleDay) []model.ScheduleDay {
	out := make([]model.ScheduleDay, 0, len(days))
	for _, d := range days {
		out = append(out, model.ScheduleDay{Date: d.Date, Tasks: append([]model.CareTask{}, d.Tasks...)})
	}
	return out
}
