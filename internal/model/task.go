package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidCadence  = errors.New("model: invalid task cadence")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

const (
	SignalWatering = "watering"
	SignalFeeding  = "feeding"
)

type CareTask struct {
	ID              string    `json:"id"`
	PlantID         string    `json:"plant_id"`
	Signal          string    `json:"signal"`
	CadenceDays     int       `json:"cadence_days"`
	NextDueAt       time.Time `json:"next_due_at"`
	Priority        Priority  `json:"priority"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t CareTask) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.PlantID) == "" {
		return errors.New("model: task plant_id is required")
	}
	if strings.TrimSpace(t.Signal) == "" {
		return errors.New("model: task signal is required")
	}
	if t.CadenceDays < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCadence, t.CadenceDays)
	}
	if t.NextDueAt.IsZero() {
		return errors.New("model: task next_due_at is required")
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

// NextDueAfter is the due time produced by completing the task at completedAt.
func (t CareTask) NextDueAfter(completedAt time.Time) time.Time {
	return completedAt.UTC().AddDate(0, 0, t.CadenceDays)
}

// Advances reports whether next moved strictly forward from prev.
func Advances(prev, next CareTask) bool {
	return next.NextDueAt.After(prev.NextDueAt)
}

func (t *CareTask) UnmarshalJSON(b []byte) error {
	type alias CareTask
	aux := struct {
		*alias
		NextDueAt flexTime `json:"next_due_at"`
		CreatedAt flexTime `json:"created_at"`
		UpdatedAt flexTime `json:"updated_at"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.NextDueAt = aux.NextDueAt.Time
	t.CreatedAt = aux.CreatedAt.Time
	t.UpdatedAt = aux.UpdatedAt.Time
	return nil
}

// DueTask is one entry of the remote "due soon" feed.
type DueTask struct {
	TaskID    string    `json:"task_id"`
	PlantID   string    `json:"plant_id"`
	Signal    string    `json:"signal"`
	NextDueAt time.Time `json:"next_due_at"`
}

func (d *DueTask) UnmarshalJSON(b []byte) error {
	type alias DueTask
	aux := struct {
		*alias
		NextDueAt flexTime `json:"next_due_at"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.NextDueAt = aux.NextDueAt.Time
	return nil
}

type ScheduleDay struct {
	Date  string     `json:"date"`
	Tasks []CareTask `json:"tasks"`
}
