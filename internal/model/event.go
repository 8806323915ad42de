package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	EventTypeNote      = "note"
	EventTypeDiagnosis = "diagnosis"
	EventTypeWatered   = "watered"
)

type TimelineEvent struct {
	ID        string    `json:"id"`
	PlantID   string    `json:"plant_id"`
	EventType string    `json:"event_type"`
	Note      string    `json:"note"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e TimelineEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model: event id is required")
	}
	if strings.TrimSpace(e.PlantID) == "" {
		return errors.New("model: event plant_id is required")
	}
	if strings.TrimSpace(e.EventType) == "" {
		return errors.New("model: event type is required")
	}
	return nil
}

func (e *TimelineEvent) UnmarshalJSON(b []byte) error {
	type alias TimelineEvent
	aux := struct {
		*alias
		CreatedAt flexTime `json:"created_at"`
		UpdatedAt flexTime `json:"updated_at"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.CreatedAt = aux.CreatedAt.Time
	e.UpdatedAt = aux.UpdatedAt.Time
	return nil
}

type TimelineEventCreate struct {
	EventType string `json:"event_type"`
	Note      string `json:"note"`
	PhotoURL  string `json:"photo_url,omitempty"`
}
