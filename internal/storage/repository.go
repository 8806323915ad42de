package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/spinonoir/PlantOS/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// StorageError reports a failed store call. The store is unchanged when a
// Save or Clear returns one.
type StorageError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type Repository interface {
	SavePlants(ctx context.Context, plants []model.Plant) error
	ListPlants(ctx context.Context) ([]model.Plant, error)
	ClearPlants(ctx context.Context) error

	SaveTasks(ctx context.Context, tasks []model.CareTask) error
	GetTask(ctx context.Context, id string) (model.CareTask, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.CareTask, error)
	ClearTasks(ctx context.Context) error

	SaveEvents(ctx context.Context, events []model.TimelineEvent) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]model.TimelineEvent, error)
	ClearEvents(ctx context.Context) error

	ClearAll(ctx context.Context) error
}
