// Package syncer pulls remote plants and tasks into the local store.
//
// Pull is best effort: every failure is logged and recorded in the report,
// and rows already in the store are never deleted.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/storage"
)

// Remote is the subset of the gateway a pull needs.
type Remote interface {
	ListPlants(ctx context.Context) ([]model.Plant, error)
	ListTasks(ctx context.Context, plantID string) ([]model.CareTask, error)
}

// Store is the subset of the repository a pull needs.
type Store interface {
	SavePlants(ctx context.Context, plants []model.Plant) error
	ListPlants(ctx context.Context) ([]model.Plant, error)
	SaveTasks(ctx context.Context, tasks []model.CareTask) error
}

const (
	StageFetchPlants = "fetch_plants"
	StageRejectPlant = "reject_plant"
	StageSavePlants  = "save_plants"
	StageReadPlants  = "read_plants"
	StageFetchTasks  = "fetch_tasks"
	StageSaveTasks   = "save_tasks"
)

type Failure struct {
	Stage   string
	PlantID string
	Err     error
}

func (f Failure) String() string {
	if f.PlantID == "" {
		return fmt.Sprintf("%s: %v", f.Stage, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Stage, f.PlantID, f.Err)
}

// PullReport counts what a pull wrote. Plants and Tasks are records saved.
type PullReport struct {
	Plants   int
	Tasks    int
	Failures []Failure
}

func (r PullReport) OK() bool { return len(r.Failures) == 0 }

type Syncer struct {
	remote Remote
	store  Store
	logger *slog.Logger
}

// New builds a Syncer. A nil logger discards output.
func New(remote Remote, store Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Syncer{remote: remote, store: store, logger: logger.With("component", "syncer")}
}

// Pull fetches every plant, then the tasks of every plant in the store.
// Plants that exist only locally are still asked for their tasks.
func (s *Syncer) Pull(ctx context.Context) PullReport {
	var report PullReport
	fail := func(stage, plantID string, err error) {
		report.Failures = append(report.Failures, Failure{Stage: stage, PlantID: plantID, Err: err})
		s.logger.Warn("pull step failed", "stage", stage, "plant_id", plantID, "err", err)
	}

	plants, err := s.remote.ListPlants(ctx)
	if err != nil {
		fail(StageFetchPlants, "", err)
	} else {
		valid := make([]model.Plant, 0, len(plants))
		for _, p := range plants {
			if err := p.Validate(); err != nil {
				fail(StageRejectPlant, p.ID, err)
				continue
			}
			valid = append(valid, p)
		}
		if err := s.store.SavePlants(ctx, valid); err != nil {
			fail(StageSavePlants, "", err)
		} else {
			report.Plants = len(valid)
		}
	}

	stored, err := s.store.ListPlants(ctx)
	if err != nil {
		fail(StageReadPlants, "", err)
		s.logReport(report)
		return report
	}

	for _, p := range stored {
		if ctx.Err() != nil {
			fail(StageFetchTasks, p.ID, ctx.Err())
			break
		}
		tasks, err := s.remote.ListTasks(ctx, p.ID)
		if err != nil {
			fail(StageFetchTasks, p.ID, err)
			continue
		}
		if err := s.store.SaveTasks(ctx, tasks); err != nil {
			fail(StageSaveTasks, p.ID, err)
			continue
		}
		report.Tasks += len(tasks)
	}

	s.logReport(report)
	return report
}

// Push would send queued local mutations. Mutations are sent eagerly by the
// state layer, so there is nothing to push yet.
func (s *Syncer) Push(ctx context.Context) error {
	_ = ctx
	s.logger.Info("push not implemented")
	return nil
}

func (s *Syncer) logReport(report PullReport) {
	s.logger.Info("pull complete", "plants", report.Plants, "tasks", report.Tasks, "failures", len(report.Failures))
}

var _ Store = storage.Repository(nil)
