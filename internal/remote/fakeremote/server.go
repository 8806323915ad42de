// Package fakeremote is an in-memory stand-in for the PlantOS service. It
// backs the client tests and the dev-server command.
package fakeremote

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spinonoir/PlantOS/internal/model"
)

// Route names usable with Fail.
const (
	RouteListPlants     = "plants.list"
	RouteCreatePlant    = "plants.create"
	RouteListTasks      = "plants.tasks"
	RouteListTimeline   = "plants.timeline"
	RouteAddTimeline    = "plants.timeline.add"
	RouteCompleteTask   = "tasks.complete"
	RouteMergedSchedule = "schedules.merged"
	RouteDueTasks       = "schedules.due"
)

type fault struct {
	status int
	body   string
}

type Server struct {
	mu     sync.Mutex
	plants map[string]model.Plant
	tasks  map[string]model.CareTask
	events map[string][]model.TimelineEvent
	faults map[string]fault
	calls  map[string]int

	now    func() time.Time
	logger *slog.Logger
	router *mux.Router
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		plants: make(map[string]model.Plant),
		tasks:  make(map[string]model.CareTask),
		events: make(map[string][]model.TimelineEvent),
		faults: make(map[string]fault),
		calls:  make(map[string]int),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.faultMiddleware)
	plants := r.PathPrefix("/plants").Subrouter()
	plants.HandleFunc("", s.listPlants).Methods(http.MethodGet).Name(RouteListPlants)
	plants.HandleFunc("", s.createPlant).Methods(http.MethodPost).Name(RouteCreatePlant)
	plants.HandleFunc("/tasks/{task_id}/complete", s.completeTask).Methods(http.MethodPost).Name(RouteCompleteTask)
	plants.HandleFunc("/{plant_id}/tasks", s.listTasks).Methods(http.MethodGet).Name(RouteListTasks)
	plants.HandleFunc("/{plant_id}/timeline", s.listTimeline).Methods(http.MethodGet).Name(RouteListTimeline)
	plants.HandleFunc("/{plant_id}/timeline", s.addTimeline).Methods(http.MethodPost).Name(RouteAddTimeline)

	schedules := r.PathPrefix("/schedules").Subrouter()
	schedules.HandleFunc("/merged", s.mergedSchedule).Methods(http.MethodGet).Name(RouteMergedSchedule)
	schedules.HandleFunc("/due", s.dueTasks).Methods(http.MethodGet).Name(RouteDueTasks)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Fail makes every request to route answer with status and body until Heal.
func (s *Server) Fail(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, body: body}
}

func (s *Server) Heal(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Calls returns how many requests reached route, failed ones included.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Seed installs a plant and its tasks as if the service already had them.
func (s *Server) Seed(p model.Plant, tasks ...model.CareTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	// Like the service, fill care fields the caller left zero.
	if p.LightLevel == "" {
		p.LightLevel = model.DefaultLightLevel
	}
	if p.WateringIntervalDays == 0 {
		p.WateringIntervalDays = model.DefaultWateringIntervalDays
	}
	if p.FeedingIntervalDays == 0 {
		p.FeedingIntervalDays = model.DefaultFeedingIntervalDays
	}
	s.plants[p.ID] = p
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
}

func (s *Server) SeedTimeline(plantID string, events ...model.TimelineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[plantID] = append(s.events[plantID], events...)
}

func (s *Server) Task(id string) (model.CareTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		s.mu.Lock()
		s.calls[name]++
		f, failing := s.faults[name]
		s.mu.Unlock()

		if failing {
			s.logger.Debug("injected failure", "route", name, "status", f.status)
			http.Error(w, f.body, f.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listPlants(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]model.Plant, 0, len(s.plants))
	for _, p := range s.plants {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPlant(w http.ResponseWriter, r *http.Request) {
	var form model.PlantForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	form = form.WithDefaults()
	if err := form.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	now := s.now().UTC()
	p := model.Plant{
		ID:                   newID("plant"),
		Name:                 form.Name,
		Species:              form.Species,
		LightLevel:           form.LightLevel,
		WateringIntervalDays: form.WateringIntervalDays,
		FeedingIntervalDays:  form.FeedingIntervalDays,
		RemindersEnabled:     *form.RemindersEnabled,
		Notes:                form.Notes,
		Tags:                 form.Tags,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	duration := 5
	seeded := []model.CareTask{
		{ID: newID("task"), PlantID: p.ID, Signal: model.SignalWatering, CadenceDays: p.WateringIntervalDays},
		{ID: newID("task"), PlantID: p.ID, Signal: model.SignalFeeding, CadenceDays: p.FeedingIntervalDays},
	}

	s.mu.Lock()
	s.plants[p.ID] = p
	for _, t := range seeded {
		t.NextDueAt = t.NextDueAfter(now)
		t.Priority = model.PriorityMedium
		t.DurationMinutes = &duration
		t.CreatedAt = now
		t.UpdatedAt = now
		s.tasks[t.ID] = t
	}
	s.mu.Unlock()

	s.logger.Info("plant created", "plant_id", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plant_id"]
	s.mu.Lock()
	_, ok := s.plants[plantID]
	out := make([]model.CareTask, 0)
	for _, t := range s.tasks {
		if t.PlantID == plantID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Plant not found")
		return
	}
	sortTasks(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTimeline(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plant_id"]
	s.mu.Lock()
	_, ok := s.plants[plantID]
	out := append([]model.TimelineEvent{}, s.events[plantID]...)
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Plant not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addTimeline(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plant_id"]
	var payload model.TimelineEventCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(payload.EventType) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "event_type is required")
		return
	}

	now := s.now().UTC()
	ev := model.TimelineEvent{
		ID:        newID("event"),
		PlantID:   plantID,
		EventType: payload.EventType,
		Note:      payload.Note,
		PhotoURL:  payload.PhotoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	_, ok := s.plants[plantID]
	if ok {
		s.events[plantID] = append(s.events[plantID], ev)
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Plant not found")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	now := s.now().UTC()

	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if ok {
		task.NextDueAt = task.NextDueAfter(now)
		task.UpdatedAt = now
		s.tasks[taskID] = task
		s.events[task.PlantID] = append(s.events[task.PlantID], model.TimelineEvent{
			ID:        newID("event"),
			PlantID:   task.PlantID,
			EventType: completionEventType(task.Signal),
			Note:      task.Signal + " completed",
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	s.logger.Info("task completed", "task_id", taskID, "next_due_at", task.NextDueAt)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) mergedSchedule(w http.ResponseWriter, r *http.Request) {
	horizon, err := intQuery(r, "horizon_days", 7)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	window := s.now().UTC().AddDate(0, 0, horizon)

	s.mu.Lock()
	grouped := make(map[string][]model.CareTask)
	for _, t := range s.tasks {
		if t.NextDueAt.After(window) {
			continue
		}
		key := t.NextDueAt.UTC().Format("2006-01-02")
		grouped[key] = append(grouped[key], t)
	}
	s.mu.Unlock()
	for key := range grouped {
		sortTasks(grouped[key])
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) dueTasks(w http.ResponseWriter, r *http.Request) {
	minutes, err := intQuery(r, "minutes", 120)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	window := s.now().UTC().Add(time.Duration(minutes) * time.Minute)

	s.mu.Lock()
	due := make([]model.CareTask, 0)
	for _, t := range s.tasks {
		if !t.NextDueAt.After(window) {
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sortTasks(due)

	out := make([]model.DueTask, 0, len(due))
	for _, t := range due {
		out = append(out, model.DueTask{TaskID: t.ID, PlantID: t.PlantID, Signal: t.Signal, NextDueAt: t.NextDueAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func completionEventType(signal string) string {
	if signal == model.SignalWatering {
		return model.EventTypeWatered
	}
	return model.EventTypeNote
}

func sortTasks(tasks []model.CareTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].NextDueAt.Equal(tasks[j].NextDueAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].NextDueAt.Before(tasks[j].NextDueAt)
	})
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return v, nil
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
