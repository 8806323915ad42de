package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPlantFormDefaults(t *testing.T) {
	form := PlantForm{Name: "  Fig  "}.WithDefaults()
	if form.Name != "Fig" {
		t.Fatalf("expected trimmed name, got %q", form.Name)
	}
	if form.LightLevel != LightMedium {
		t.Fatalf("expected medium light, got %q", form.LightLevel)
	}
	if form.WateringIntervalDays != 7 || form.FeedingIntervalDays != 30 {
		t.Fatalf("unexpected interval defaults: %+v", form)
	}
	if form.RemindersEnabled == nil || !*form.RemindersEnabled {
		t.Fatalf("expected reminders enabled by default")
	}
	if form.Tags == nil || len(form.Tags) != 0 {
		t.Fatalf("expected empty tag set, got %#v", form.Tags)
	}
	if err := form.Validate(); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestPlantFormKeepsProvidedValues(t *testing.T) {
	off := false
	form := PlantForm{
		Name:                 "Monstera",
		LightLevel:           LightHigh,
		WateringIntervalDays: 3,
		FeedingIntervalDays:  14,
		RemindersEnabled:     &off,
		Tags:                 []string{"tropical", " Tropical ", "", "big"},
	}.WithDefaults()
	if form.LightLevel != LightHigh || form.WateringIntervalDays != 3 || form.FeedingIntervalDays != 14 {
		t.Fatalf("provided values overwritten: %+v", form)
	}
	if *form.RemindersEnabled {
		t.Fatal("expected reminders to stay disabled")
	}
	if len(form.Tags) != 2 || form.Tags[0] != "tropical" || form.Tags[1] != "big" {
		t.Fatalf("unexpected normalized tags: %#v", form.Tags)
	}
}

func TestPlantFormRejectsNegativeInterval(t *testing.T) {
	form := PlantForm{Name: "Fern", WateringIntervalDays: -2}.WithDefaults()
	if err := form.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestPlantUnmarshalRejectsUnknownLight(t *testing.T) {
	var p Plant
	err := json.Unmarshal([]byte(`{"id":"p1","name":"Fig","light_level":"blinding"}`), &p)
	if !errors.Is(err, ErrInvalidLightLevel) {
		t.Fatalf("expected ErrInvalidLightLevel, got %v", err)
	}
}

func TestPlantUnmarshalTimestampsAndTags(t *testing.T) {
	var p Plant
	raw := `{"id":"p1","name":"Fig","light_level":"low","watering_interval_days":7,
		"feeding_interval_days":30,"reminders_enabled":true,
		"created_at":"2024-01-01T10:00:00.123456+00:00","updated_at":"2024-01-02"}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal plant: %v", err)
	}
	if p.LightLevel != LightLow {
		t.Fatalf("unexpected light: %q", p.LightLevel)
	}
	if p.Tags == nil {
		t.Fatal("expected non-nil tags")
	}
	if !p.UpdatedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated_at: %s", p.UpdatedAt)
	}
	if p.CreatedAt.Hour() != 10 {
		t.Fatalf("unexpected created_at: %s", p.CreatedAt)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid plant, got %v", err)
	}
}

func TestPlantUnmarshalFillsMissingCareFields(t *testing.T) {
	var p Plant
	if err := json.Unmarshal([]byte(`{"id":"p1","name":"Fig","watering_interval_days":3}`), &p); err != nil {
		t.Fatalf("unmarshal plant: %v", err)
	}
	if p.LightLevel != DefaultLightLevel || p.WateringIntervalDays != 3 || p.FeedingIntervalDays != DefaultFeedingIntervalDays {
		t.Fatalf("unexpected care fields: %#v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid plant, got %v", err)
	}
}

func TestPlantHasTag(t *testing.T) {
	p := Plant{Tags: []string{"Kitchen", "herb"}}
	if !p.HasTag("kitchen") || !p.HasTag("herb") || p.HasTag("balcony") {
		t.Fatalf("unexpected tag membership for %#v", p.Tags)
	}
}

func TestPlantUnmarshalDefaultsRemindersOn(t *testing.T) {
	var p Plant
	if err := json.Unmarshal([]byte(`{"id":"p1","name":"Fig","watering_interval_days":7}`), &p); err != nil {
		t.Fatalf("unmarshal plant: %v", err)
	}
	if !p.RemindersEnabled {
		t.Fatal("expected reminders enabled when the field is absent")
	}

	var off Plant
	if err := json.Unmarshal([]byte(`{"id":"p1","name":"Fig","reminders_enabled":false}`), &off); err != nil {
		t.Fatalf("unmarshal plant: %v", err)
	}
	if off.RemindersEnabled {
		t.Fatal("expected explicit false to be kept")
	}
}

func TestPlantUnmarshalRejectsExplicitZeroInterval(t *testing.T) {
	for _, raw := range []string{
		`{"id":"p1","name":"Fig","watering_interval_days":0}`,
		`{"id":"p1","name":"Fig","feeding_interval_days":-3}`,
	} {
		var p Plant
		if err := json.Unmarshal([]byte(raw), &p); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval for %s, got %v", raw, err)
		}
	}
}
