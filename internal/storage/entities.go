package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/spinonoir/PlantOS/internal/model"
)

type Kind string

const (
	KindPlants Kind = "plants"
	KindTasks  Kind = "tasks"
	KindEvents Kind = "events"
)

type plantRow struct {
	ID                   string         `db:"id"`
	Name                 string         `db:"name"`
	Species              sql.NullString `db:"species"`
	LightLevel           string         `db:"light_level"`
	WateringIntervalDays int            `db:"watering_interval_days"`
	FeedingIntervalDays  int            `db:"feeding_interval_days"`
	RemindersEnabled     bool           `db:"reminders_enabled"`
	Notes                sql.NullString `db:"notes"`
	Tags                 sql.NullString `db:"tags"`
	CreatedAt            sql.NullString `db:"created_at"`
	UpdatedAt            sql.NullString `db:"updated_at"`
}

type taskRow struct {
	ID              string        `db:"id"`
	PlantID         string        `db:"plant_id"`
	Signal          string        `db:"signal"`
	CadenceDays     int           `db:"cadence_days"`
	NextDueAt       string        `db:"next_due_at"`
	Priority        string        `db:"priority"`
	DurationMinutes sql.NullInt64 `db:"duration_minutes"`
	CreatedAt       string        `db:"created_at"`
	UpdatedAt       string        `db:"updated_at"`
}

type eventRow struct {
	ID        string         `db:"id"`
	PlantID   string         `db:"plant_id"`
	EventType string         `db:"event_type"`
	Note      string         `db:"note"`
	PhotoURL  sql.NullString `db:"photo_url"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

type TaskListFilter struct {
	PlantID string
	Limit   int
	Offset  int
}

type EventListFilter struct {
	PlantID string
	Limit   int
	Offset  int
}

func toPlantRow(p model.Plant, now time.Time) plantRow {
	return plantRow{
		ID:                   p.ID,
		Name:                 p.Name,
		Species:              nullString(p.Species),
		LightLevel:           string(p.LightLevel),
		WateringIntervalDays: p.WateringIntervalDays,
		FeedingIntervalDays:  p.FeedingIntervalDays,
		RemindersEnabled:     p.RemindersEnabled,
		Notes:                nullString(p.Notes),
		Tags:                 sql.NullString{String: encodeTags(p.Tags), Valid: true},
		CreatedAt:            sql.NullString{String: timeOrNow(p.CreatedAt, now), Valid: true},
		UpdatedAt:            sql.NullString{String: timeOrNow(p.UpdatedAt, now), Valid: true},
	}
}

func (r plantRow) toModel() (model.Plant, error) {
	light, err := model.ParseLightLevel(r.LightLevel)
	if err != nil {
		return model.Plant{}, err
	}
	created, err := parseNullableTime(r.CreatedAt)
	if err != nil {
		return model.Plant{}, err
	}
	updated, err := parseNullableTime(r.UpdatedAt)
	if err != nil {
		return model.Plant{}, err
	}
	return model.Plant{
		ID:                   r.ID,
		Name:                 r.Name,
		Species:              r.Species.String,
		LightLevel:           light,
		WateringIntervalDays: r.WateringIntervalDays,
		FeedingIntervalDays:  r.FeedingIntervalDays,
		RemindersEnabled:     r.RemindersEnabled,
		Notes:                r.Notes.String,
		Tags:                 decodeTags(r.Tags),
		CreatedAt:            created,
		UpdatedAt:            updated,
	}, nil
}

func toTaskRow(t model.CareTask, now time.Time) taskRow {
	row := taskRow{
		ID:          t.ID,
		PlantID:     t.PlantID,
		Signal:      t.Signal,
		CadenceDays: t.CadenceDays,
		NextDueAt:   mustTime(t.NextDueAt),
		Priority:    string(t.Priority),
		CreatedAt:   timeOrNow(t.CreatedAt, now),
		UpdatedAt:   timeOrNow(t.UpdatedAt, now),
	}
	if t.DurationMinutes != nil {
		row.DurationMinutes = sql.NullInt64{Int64: int64(*t.DurationMinutes), Valid: true}
	}
	return row
}

func (r taskRow) toModel() (model.CareTask, error) {
	due, err := parseRequiredTime(r.NextDueAt)
	if err != nil {
		return model.CareTask{}, err
	}
	created, err := parseRequiredTime(r.CreatedAt)
	if err != nil {
		return model.CareTask{}, err
	}
	updated, err := parseRequiredTime(r.UpdatedAt)
	if err != nil {
		return model.CareTask{}, err
	}
	out := model.CareTask{
		ID:          r.ID,
		PlantID:     r.PlantID,
		Signal:      r.Signal,
		CadenceDays: r.CadenceDays,
		NextDueAt:   due,
		Priority:    model.Priority(r.Priority),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	if r.DurationMinutes.Valid {
		minutes := int(r.DurationMinutes.Int64)
		out.DurationMinutes = &minutes
	}
	return out, nil
}

func toEventRow(e model.TimelineEvent, now time.Time) eventRow {
	return eventRow{
		ID:        e.ID,
		PlantID:   e.PlantID,
		EventType: e.EventType,
		Note:      e.Note,
		PhotoURL:  nullString(e.PhotoURL),
		CreatedAt: timeOrNow(e.CreatedAt, now),
		UpdatedAt: timeOrNow(e.UpdatedAt, now),
	}
}

func (r eventRow) toModel() (model.TimelineEvent, error) {
	created, err := parseRequiredTime(r.CreatedAt)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	updated, err := parseRequiredTime(r.UpdatedAt)
	if err != nil {
		return model.TimelineEvent{}, err
	}
	return model.TimelineEvent{
		ID:        r.ID,
		PlantID:   r.PlantID,
		EventType: r.EventType,
		Note:      r.Note,
		PhotoURL:  r.PhotoURL.String,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// decodeTags never fails: a missing or malformed column reads as no tags.
func decodeTags(v sql.NullString) []string {
	out := []string{}
	if !v.Valid || v.String == "" {
		return out
	}
	if err := json.Unmarshal([]byte(v.String), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
