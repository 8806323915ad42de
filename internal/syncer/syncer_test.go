package syncer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/remote"
	"github.com/spinonoir/PlantOS/internal/remote/fakeremote"
	"github.com/spinonoir/PlantOS/internal/storage"
)

var due = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Syncer, *fakeremote.Server, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	fake := fakeremote.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return New(remote.NewClient(srv.URL), repo, nil), fake, repo
}

func fig() model.Plant {
	return model.Plant{ID: "p1", Name: "Fig", LightLevel: model.LightHigh, WateringIntervalDays: 7, FeedingIntervalDays: 30, RemindersEnabled: true}
}

func TestPullWritesPlantsAndTasks(t *testing.T) {
	s, fake, repo := setup(t)
	ctx := context.Background()
	fake.Seed(fig(), model.CareTask{ID: "t1", PlantID: "p1", Signal: model.SignalWatering, CadenceDays: 7, NextDueAt: due})

	report := s.Pull(ctx)
	if !report.OK() || report.Plants != 1 || report.Tasks != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}

	plants, err := repo.ListPlants(ctx)
	if err != nil {
		t.Fatalf("list plants: %v", err)
	}
	if len(plants) != 1 || plants[0].Name != "Fig" {
		t.Fatalf("expected Fig in store, got %#v", plants)
	}
	task, err := repo.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !task.NextDueAt.Equal(due) {
		t.Fatalf("unexpected due: %s", task.NextDueAt)
	}

	again := s.Pull(ctx)
	if !again.OK() {
		t.Fatalf("second pull failed: %#v", again)
	}
	tasks, _ := repo.ListTasks(ctx, storage.TaskListFilter{})
	if len(tasks) != 1 {
		t.Fatalf("expected idempotent pull, got %d tasks", len(tasks))
	}
}

func TestPullNeverDeletesLocalRows(t *testing.T) {
	s, fake, repo := setup(t)
	ctx := context.Background()
	fake.Seed(fig(), model.CareTask{ID: "t1", PlantID: "p1", Signal: model.SignalWatering, CadenceDays: 7, NextDueAt: due})

	local := model.Plant{ID: "p_local", Name: "Aloe", LightLevel: model.LightLow, WateringIntervalDays: 14, FeedingIntervalDays: 60}
	if err := repo.SavePlants(ctx, []model.Plant{local}); err != nil {
		t.Fatalf("seed local plant: %v", err)
	}
	if err := repo.SaveTasks(ctx, []model.CareTask{{ID: "t_local", PlantID: "p_local", Signal: model.SignalWatering, NextDueAt: due}}); err != nil {
		t.Fatalf("seed local task: %v", err)
	}

	report := s.Pull(ctx)
	if len(report.Failures) != 1 {
		t.Fatalf("expected one failure for the unknown plant, got %#v", report.Failures)
	}
	f := report.Failures[0]
	if f.Stage != StageFetchTasks || f.PlantID != "p_local" || remote.StatusOf(f.Err) != http.StatusNotFound {
		t.Fatalf("unexpected failure: %s", f)
	}

	plants, _ := repo.ListPlants(ctx)
	if len(plants) != 2 {
		t.Fatalf("expected local plant to survive, got %#v", plants)
	}
	if _, err := repo.GetTask(ctx, "t_local"); err != nil {
		t.Fatalf("expected local task to survive: %v", err)
	}
	if _, err := repo.GetTask(ctx, "t1"); err != nil {
		t.Fatalf("expected remote task despite sibling failure: %v", err)
	}
}

func TestPullContinuesWhenPlantListFails(t *testing.T) {
	s, fake, repo := setup(t)
	ctx := context.Background()
	fake.Seed(fig(), model.CareTask{ID: "t1", PlantID: "p1", Signal: model.SignalWatering, CadenceDays: 7, NextDueAt: due})
	if err := repo.SavePlants(ctx, []model.Plant{fig()}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	fake.Fail(fakeremote.RouteListPlants, http.StatusInternalServerError, "boom")

	report := s.Pull(ctx)
	if len(report.Failures) != 1 || report.Failures[0].Stage != StageFetchPlants {
		t.Fatalf("unexpected failures: %#v", report.Failures)
	}
	if report.Plants != 0 || report.Tasks != 1 {
		t.Fatalf("expected tasks of stored plants to sync, got %#v", report)
	}
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) ListPlants(context.Context) ([]model.Plant, error) { return nil, f.err }

func TestPullAbsorbsStoreReadFailure(t *testing.T) {
	s, fake, repo := setup(t)
	fake.Seed(fig())
	boom := errors.New("disk gone")
	s.store = failingStore{Store: repo, err: boom}

	report := s.Pull(context.Background())
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, boom) {
		t.Fatalf("expected read failure in report, got %#v", report.Failures)
	}
	if report.Plants != 1 {
		t.Fatalf("expected plants saved before the read failed, got %d", report.Plants)
	}
}

func TestPushIsANoop(t *testing.T) {
	s, _, _ := setup(t)
	if err := s.Push(context.Background()); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func TestPullSkipsPlantWithUnknownLightLevel(t *testing.T) {
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/plants":
			_, _ = w.Write([]byte(`[
				{"id":"p1","name":"Fig","light_level":"medium","watering_interval_days":7},
				{"id":"p2","name":"Cactus","light_level":"bright","watering_interval_days":21},
				{"id":"p3","name":"Fern","watering_interval_days":0}
			]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	report := New(remote.NewClient(srv.URL), repo, nil).Pull(ctx)
	if !report.OK() || report.Plants != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	plants, err := repo.ListPlants(ctx)
	if err != nil {
		t.Fatalf("list plants: %v", err)
	}
	if len(plants) != 1 || plants[0].ID != "p1" {
		t.Fatalf("expected only the valid plant stored, got %#v", plants)
	}
}

type staticRemote struct {
	plants []model.Plant
}

func (s staticRemote) ListPlants(context.Context) ([]model.Plant, error) { return s.plants, nil }

func (s staticRemote) ListTasks(context.Context, string) ([]model.CareTask, error) {
	return []model.CareTask{}, nil
}

func TestPullRecordsRejectedPlantAndSavesTheRest(t *testing.T) {
	_, _, repo := setup(t)
	ctx := context.Background()
	bad := fig()
	bad.ID = "p2"
	bad.LightLevel = "bright"
	s := New(staticRemote{plants: []model.Plant{fig(), bad}}, repo, nil)

	report := s.Pull(ctx)
	if len(report.Failures) != 1 {
		t.Fatalf("expected one rejected plant, got %#v", report.Failures)
	}
	f := report.Failures[0]
	if f.Stage != StageRejectPlant || f.PlantID != "p2" || !errors.Is(f.Err, model.ErrInvalidLightLevel) {
		t.Fatalf("unexpected failure: %s", f)
	}
	if report.Plants != 1 {
		t.Fatalf("expected valid plant saved, got %d", report.Plants)
	}
	if plants, _ := repo.ListPlants(ctx); len(plants) != 1 || plants[0].ID != "p1" {
		t.Fatalf("unexpected stored plants: %#v", plants)
	}
}
