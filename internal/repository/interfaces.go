package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TaskQuery filters task listings. Zero values mean "no restriction".
type TaskQuery struct {
	// From/To bound start_date inclusively.
	From *time.Time
	To   *time.Time

	AssigneeID string
	BusinessID string
	Status     *domain.TaskStatus
	Kind       *domain.TaskKind

	IsException  *bool
	ParentTaskID *string
}

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	// CreateMany inserts a batch of tasks; the extender chunks its batches
	// before calling this.
	CreateMany(ctx context.Context, tasks []*domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// GetMany fetches tasks by id, keyed by id. Missing ids are simply
	// absent from the result, not errors.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Task, error)
	List(ctx context.Context, q TaskQuery) ([]*domain.Task, error)
	ListInstances(ctx context.Context, masterID string) ([]*domain.Task, error)
	// ListInstanceDates returns the start dates of every materialized
	// instance of a master, used for de-duplication by the extender.
	ListInstanceDates(ctx context.Context, masterID string) ([]time.Time, error)
	// ListMastersExpiringBy returns masters whose recurrence end date is
	// on or before the cutoff.
	ListMastersExpiringBy(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	// UpdateSeries applies a change set to the master and every one of
	// its materialized instances in one statement. Returns the number of
	// rows touched.
	UpdateSeries(ctx context.Context, masterID string, changes domain.TaskChanges, now time.Time) (int64, error)
	// ReparentInstances moves every materialized instance of oldMasterID
	// starting on or after from under newMasterID. Used by series splits.
	ReparentInstances(ctx context.Context, oldMasterID, newMasterID string, from time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

type ExceptionRepo interface {
	// Upsert creates or replaces the exception for (master, date); the
	// store enforces at most one per pair.
	Upsert(ctx context.Context, e *domain.Exception) error
	Get(ctx context.Context, masterID string, date time.Time) (*domain.Exception, error)
	ListByMaster(ctx context.Context, masterID string) ([]domain.Exception, error)
	// ReassignFrom transfers exceptions dated on or after from to a new
	// master. A split hands its forward exceptions to the new series.
	ReassignFrom(ctx context.Context, oldMasterID, newMasterID string, from time.Time) (int64, error)
}
