package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spinonoir/PlantOS/internal/model"
)

// Fixed-width so that lexical order of the TEXT column matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sqlx.DB
	now func() time.Time

	plantsMu sync.Mutex
	tasksMu  sync.Mutex
	eventsMu sync.Mutex
}

type Option func(*SQLiteRepository)

// WithClock overrides the clock used to fill missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewSQLiteRepository(db *sql.DB, opts ...Option) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	r := &SQLiteRepository{
		db:  sqlx.NewDb(db, "sqlite3"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OpenDB opens the database file without touching the schema.
func OpenDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenSQLite opens (creating if needed) the database at path and brings the
// schema up to date.
func OpenSQLite(path string, opts ...Option) (*SQLiteRepository, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) SavePlants(ctx context.Context, plants []model.Plant) error {
	for _, p := range plants {
		if err := p.Validate(); err != nil {
			return &StorageError{Op: "save", Kind: KindPlants, Err: err}
		}
	}
	now := r.now()
	rows := make([]any, 0, len(plants))
	for _, p := range plants {
		rows = append(rows, toPlantRow(p, now))
	}

	r.plantsMu.Lock()
	defer r.plantsMu.Unlock()
	err := r.upsert(ctx, `
		INSERT INTO plants (id, name, species, light_level, watering_interval_days, feeding_interval_days,
			reminders_enabled, notes, tags, created_at, updated_at)
		VALUES (:id, :name, :species, :light_level, :watering_interval_days, :feeding_interval_days,
			:reminders_enabled, :notes, :tags, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			species = excluded.species,
			light_level = excluded.light_level,
			watering_interval_days = excluded.watering_interval_days,
			feeding_interval_days = excluded.feeding_interval_days,
			reminders_enabled = excluded.reminders_enabled,
			notes = excluded.notes,
			tags = excluded.tags,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`, rows)
	if err != nil {
		return &StorageError{Op: "save", Kind: KindPlants, Err: err}
	}
	return nil
}

func (r *SQLiteRepository) ListPlants(ctx context.Context) ([]model.Plant, error) {
	var rows []plantRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, species, light_level, watering_interval_days, feeding_interval_days,
			reminders_enabled, notes, tags, created_at, updated_at
		FROM plants ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, &StorageError{Op: "list", Kind: KindPlants, Err: err}
	}
	out := make([]model.Plant, 0, len(rows))
	for _, row := range rows {
		p, convErr := row.toModel()
		if convErr != nil {
			return nil, &StorageError{Op: "list", Kind: KindPlants, Err: fmt.Errorf("row %s: %w", row.ID, convErr)}
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *SQLiteRepository) ClearPlants(ctx context.Context) error {
	r.plantsMu.Lock()
	defer r.plantsMu.Unlock()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM plants`); err != nil {
		return &StorageError{Op: "clear", Kind: KindPlants, Err: err}
	}
	return nil
}

func (r *SQLiteRepository) SaveTasks(ctx context.Context, tasks []model.CareTask) error {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return &StorageError{Op: "save", Kind: KindTasks, Err: err}
		}
	}
	now := r.now()
	rows := make([]any, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, toTaskRow(t, now))
	}

	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	err := r.upsert(ctx, `
		INSERT INTO tasks (id, plant_id, signal, cadence_days, next_due_at, priority, duration_minutes, created_at, updated_at)
		VALUES (:id, :plant_id, :signal, :cadence_days, :next_due_at, :priority, :duration_minutes, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			plant_id = excluded.plant_id,
			signal = excluded.signal,
			cadence_days = excluded.cadence_days,
			next_due_at = excluded.next_due_at,
			priority = excluded.priority,
			duration_minutes = excluded.duration_minutes,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`, rows)
	if err != nil {
		return &StorageError{Op: "save", Kind: KindTasks, Err: err}
	}
	return nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.CareTask, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, plant_id, signal, cadence_days, next_due_at, priority, duration_minutes, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CareTask{}, ErrNotFound
		}
		return model.CareTask{}, &StorageError{Op: "get", Kind: KindTasks, Err: err}
	}
	task, err := row.toModel()
	if err != nil {
		return model.CareTask{}, &StorageError{Op: "get", Kind: KindTasks, Err: err}
	}
	return task, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.CareTask, error) {
	query := `SELECT id, plant_id, signal, cadence_days, next_due_at, priority, duration_minutes, created_at, updated_at FROM tasks`
	args := make([]any, 0, 3)
	if filter.PlantID != "" {
		query += ` WHERE plant_id = ?`
		args = append(args, filter.PlantID)
	}
	query += ` ORDER BY next_due_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &StorageError{Op: "list", Kind: KindTasks, Err: err}
	}
	out := make([]model.CareTask, 0, len(rows))
	for _, row := range rows {
		task, convErr := row.toModel()
		if convErr != nil {
			return nil, &StorageError{Op: "list", Kind: KindTasks, Err: fmt.Errorf("row %s: %w", row.ID, convErr)}
		}
		out = append(out, task)
	}
	return out, nil
}

func (r *SQLiteRepository) ClearTasks(ctx context.Context) error {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return &StorageError{Op: "clear", Kind: KindTasks, Err: err}
	}
	return nil
}

func (r *SQLiteRepository) SaveEvents(ctx context.Context, events []model.TimelineEvent) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return &StorageError{Op: "save", Kind: KindEvents, Err: err}
		}
	}
	now := r.now()
	rows := make([]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, toEventRow(e, now))
	}

	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	err := r.upsert(ctx, `
		INSERT INTO events (id, plant_id, event_type, note, photo_url, created_at, updated_at)
		VALUES (:id, :plant_id, :event_type, :note, :photo_url, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			plant_id = excluded.plant_id,
			event_type = excluded.event_type,
			note = excluded.note,
			photo_url = excluded.photo_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`, rows)
	if err != nil {
		return &StorageError{Op: "save", Kind: KindEvents, Err: err}
	}
	return nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]model.TimelineEvent, error) {
	query := `SELECT id, plant_id, event_type, note, photo_url, created_at, updated_at FROM events`
	args := make([]any, 0, 3)
	if filter.PlantID != "" {
		query += ` WHERE plant_id = ?`
		args = append(args, filter.PlantID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &StorageError{Op: "list", Kind: KindEvents, Err: err}
	}
	out := make([]model.TimelineEvent, 0, len(rows))
	for _, row := range rows {
		ev, convErr := row.toModel()
		if convErr != nil {
			return nil, &StorageError{Op: "list", Kind: KindEvents, Err: fmt.Errorf("row %s: %w", row.ID, convErr)}
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *SQLiteRepository) ClearEvents(ctx context.Context) error {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return &StorageError{Op: "clear", Kind: KindEvents, Err: err}
	}
	return nil
}

// ClearAll wipes every record kind in one transaction.
func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	r.plantsMu.Lock()
	defer r.plantsMu.Unlock()
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "clear", Kind: "all", Err: err}
	}
	for _, table := range []Kind{KindEvents, KindTasks, KindPlants} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+string(table)); err != nil {
			_ = tx.Rollback()
			return &StorageError{Op: "clear", Kind: table, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "clear", Kind: "all", Err: err}
	}
	return nil
}

// upsert runs one named statement per row inside a single transaction.
func (r *SQLiteRepository) upsert(ctx context.Context, query string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func timeOrNow(v time.Time, now time.Time) string {
	if v.IsZero() {
		return mustTime(now)
	}
	return mustTime(v)
}

func parseNullableTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	return parseRequiredTime(v.String)
}

func parseRequiredTime(v string) (time.Time, error) {
	if tm, err := time.Parse(sqliteTimeLayout, v); err == nil {
		return tm, nil
	}
	return model.ParseTimestamp(v)
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}
