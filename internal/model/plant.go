package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidLightLevel = errors.New("model: invalid light level")
	ErrInvalidInterval   = errors.New("model: invalid care interval")
)

type LightLevel string

const (
	LightLow    LightLevel = "low"
	LightMedium LightLevel = "medium"
	LightHigh   LightLevel = "high"
)

func (l LightLevel) IsValid() bool {
	switch l {
	case LightLow, LightMedium, LightHigh:
		return true
	default:
		return false
	}
}

func ParseLightLevel(raw string) (LightLevel, error) {
	l := LightLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLightLevel, raw)
	}
	return l, nil
}

// UnmarshalJSON rejects light levels outside the closed set so they never
// reach the store. A blank value decodes as unset.
func (l *LightLevel) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*l = ""
		return nil
	}
	parsed, err := ParseLightLevel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

const (
	DefaultLightLevel           = LightMedium
	DefaultWateringIntervalDays = 7
	DefaultFeedingIntervalDays  = 30
)

type Plant struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Species              string     `json:"species,omitempty"`
	LightLevel           LightLevel `json:"light_level"`
	WateringIntervalDays int        `json:"watering_interval_days"`
	FeedingIntervalDays  int        `json:"feeding_interval_days"`
	RemindersEnabled     bool       `json:"reminders_enabled"`
	Notes                string     `json:"notes,omitempty"`
	Tags                 []string   `json:"tags"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (p Plant) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("model: plant id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("model: plant name is required")
	}
	if !p.LightLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLightLevel, p.LightLevel)
	}
	if p.WateringIntervalDays <= 0 {
		return fmt.Errorf("%w: watering %d", ErrInvalidInterval, p.WateringIntervalDays)
	}
	if p.FeedingIntervalDays <= 0 {
		return fmt.Errorf("%w: feeding %d", ErrInvalidInterval, p.FeedingIntervalDays)
	}
	return nil
}

func (p Plant) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// UnmarshalJSON fills care fields that older payloads omit. Fields that are
// present must be valid: an explicit non-positive interval is rejected.
func (p *Plant) UnmarshalJSON(b []byte) error {
	type alias Plant
	aux := struct {
		*alias
		WateringIntervalDays *int     `json:"watering_interval_days"`
		FeedingIntervalDays  *int     `json:"feeding_interval_days"`
		RemindersEnabled     *bool    `json:"reminders_enabled"`
		CreatedAt            flexTime `json:"created_at"`
		UpdatedAt            flexTime `json:"updated_at"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.CreatedAt = aux.CreatedAt.Time
	p.UpdatedAt = aux.UpdatedAt.Time
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.LightLevel == "" {
		p.LightLevel = DefaultLightLevel
	}
	p.WateringIntervalDays = DefaultWateringIntervalDays
	if aux.WateringIntervalDays != nil {
		if *aux.WateringIntervalDays <= 0 {
			return fmt.Errorf("%w: watering %d", ErrInvalidInterval, *aux.WateringIntervalDays)
		}
		p.WateringIntervalDays = *aux.WateringIntervalDays
	}
	p.FeedingIntervalDays = DefaultFeedingIntervalDays
	if aux.FeedingIntervalDays != nil {
		if *aux.FeedingIntervalDays <= 0 {
			return fmt.Errorf("%w: feeding %d", ErrInvalidInterval, *aux.FeedingIntervalDays)
		}
		p.FeedingIntervalDays = *aux.FeedingIntervalDays
	}
	p.RemindersEnabled = true
	if aux.RemindersEnabled != nil {
		p.RemindersEnabled = *aux.RemindersEnabled
	}
	return nil
}

// PlantForm is the create payload. Zero values mean "not provided".
type PlantForm struct {
	Name                 string     `json:"name"`
	Species              string     `json:"species,omitempty"`
	LightLevel           LightLevel `json:"light_level,omitempty"`
	WateringIntervalDays int        `json:"watering_interval_days,omitempty"`
	FeedingIntervalDays  int        `json:"feeding_interval_days,omitempty"`
	RemindersEnabled     *bool      `json:"reminders_enabled,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	Tags                 []string   `json:"tags"`
}

func (f PlantForm) WithDefaults() PlantForm {
	out := f
	out.Name = strings.TrimSpace(out.Name)
	if out.LightLevel == "" {
		out.LightLevel = DefaultLightLevel
	}
	if out.WateringIntervalDays == 0 {
		out.WateringIntervalDays = DefaultWateringIntervalDays
	}
	if out.FeedingIntervalDays == 0 {
		out.FeedingIntervalDays = DefaultFeedingIntervalDays
	}
	if out.RemindersEnabled == nil {
		enabled := true
		out.RemindersEnabled = &enabled
	}
	out.Tags = NormalizeTags(out.Tags)
	return out
}

func (f PlantForm) Validate() error {
	if f.Name == "" {
		return errors.New("model: plant name is required")
	}
	if !f.LightLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLightLevel, f.LightLevel)
	}
	if f.WateringIntervalDays <= 0 {
		return fmt.Errorf("%w: watering %d", ErrInvalidInterval, f.WateringIntervalDays)
	}
	if f.FeedingIntervalDays <= 0 {
		return fmt.Errorf("%w: feeding %d", ErrInvalidInterval, f.FeedingIntervalDays)
	}
	return nil
}

// NormalizeTags trims, drops blanks and removes case-insensitive duplicates.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
