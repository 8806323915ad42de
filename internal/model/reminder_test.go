package model

import (
	"testing"
	"time"
)

func TestReminderValidateSuccess(t *testing.T) {
	rem := Reminder{
		ID:     "rem-1",
		TaskID: "task-1",
		FireAt: time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC),
	}
	if err := rem.Validate(); err != nil {
		t.Fatalf("expected valid reminder, got error: %v", err)
	}
}

func TestReminderValidateMissingFields(t *testing.T) {
	rem := Reminder{ID: "rem-1", FireAt: time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)}
	if err := rem.Validate(); err == nil || err.Error() != "model: reminder task_id is required" {
		t.Fatalf("expected task_id error, got: %v", err)
	}
	rem.TaskID = "task-1"
	rem.FireAt = time.Time{}
	if err := rem.Validate(); err == nil {
		t.Fatal("expected fire_at error, got nil")
	}
}

func TestReminderPending(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	rem := Reminder{ID: "rem-1", TaskID: "task-1", FireAt: now.Add(time.Minute)}
	if !rem.Pending(now) {
		t.Fatal("expected reminder to be pending")
	}
	if rem.Pending(now.Add(2 * time.Minute)) {
		t.Fatal("expected reminder to be fired")
	}
}
