package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/spinonoir/PlantOS/internal/model"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("repeated migrate up should be a no-op: %v", err)
	}
	if v, err := SchemaVersion(db); err != nil || v != 2 {
		t.Fatalf("unexpected schema version: %d (%v)", v, err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if v, err := SchemaVersion(db); err != nil || v != 0 {
		t.Fatalf("expected version 0 after down, got %d (%v)", v, err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	if err := repo.SaveTasks(t.Context(), []model.CareTask{{
		ID:          "task-rt-1",
		PlantID:     "plant-rt-1",
		Signal:      model.SignalWatering,
		CadenceDays: 7,
		NextDueAt:   time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
		Priority:    model.PriorityMedium,
	}}); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.GetTask(t.Context(), "task-rt-1")
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Signal != model.SignalWatering {
		t.Fatalf("unexpected signal after roundtrip: %q", got.Signal)
	}
}

func TestMigrateUpgradesFirstRevisionPlants(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-v1.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// A database written by the single-table revision, before version tracking.
	if _, err := db.Exec(`
		CREATE TABLE plants (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			species TEXT,
			light_level TEXT NOT NULL,
			watering_interval_days INTEGER NOT NULL,
			feeding_interval_days INTEGER NOT NULL,
			reminders_enabled INTEGER NOT NULL DEFAULT 1,
			notes TEXT,
			tags TEXT
		);
		INSERT INTO plants (id, name, light_level, watering_interval_days, feeding_interval_days, reminders_enabled, tags)
		VALUES ('p-old', 'Aloe', 'high', 14, 60, 1, 'not-json');`); err != nil {
		t.Fatalf("seed v1 schema: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up over v1 schema: %v", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	plants, err := repo.ListPlants(t.Context())
	if err != nil {
		t.Fatalf("list plants: %v", err)
	}
	if len(plants) != 1 || plants[0].ID != "p-old" {
		t.Fatalf("expected migrated plant, got %#v", plants)
	}
	if plants[0].CreatedAt.IsZero() || plants[0].UpdatedAt.IsZero() {
		t.Fatalf("expected backfilled timestamps, got %#v", plants[0])
	}
	if len(plants[0].Tags) != 0 {
		t.Fatalf("expected malformed tags to read as empty, got %#v", plants[0].Tags)
	}
}
