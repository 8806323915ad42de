package model

import (
	"errors"
	"strings"
	"time"
)

// Reminder is a scheduled local notification for a care task. It only lives
// in memory; identifiers are not expected to survive a restart.
type Reminder struct {
	ID      string
	TaskID  string
	PlantID string
	Title   string
	Body    string
	FireAt  time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.TaskID) == "" {
		return errors.New("model: reminder task_id is required")
	}
	if r.FireAt.IsZero() {
		return errors.New("model: reminder fire_at is required")
	}
	return nil
}

func (r Reminder) Pending(now time.Time) bool {
	return r.FireAt.After(now)
}
