package service

import (
	"context"
	"errors"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
	"github.com/mfserna/taskcycle/internal/repository"
)

// ErrInvalidEditScope reports an edit scope outside the three enumerated
// options.
var ErrInvalidEditScope = errors.New("invalid edit scope")

type TaskService interface {
	// Create persists a standalone task or, when t carries a rule, a
	// recurring master with its initial batch of materialized instances.
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, q repository.TaskQuery) ([]*domain.Task, error)
	MarkDone(ctx context.Context, id string) error
	// Delete removes a task; deleting a master cascades to its instances
	// and exception records.
	Delete(ctx context.Context, id string) error
}

// EditRequest names one occurrence of a series and the change to apply.
type EditRequest struct {
	// TaskID targets a master, one of its instances, or a standalone.
	TaskID string
	// OccurrenceDate selects the occurrence when TaskID is a master;
	// for instance targets it defaults to the instance's start date.
	OccurrenceDate time.Time
	Scope          domain.EditScope
	Changes        domain.TaskChanges
	Notes          string
}

// EditResult reports what the mutation plan did.
type EditResult struct {
	// NewMasterID is set when a this-and-future edit split the series.
	NewMasterID string
	// ExceptionTaskID is set when a this edit materialized or marked an
	// exception carrier.
	ExceptionTaskID string
	// RowsUpdated counts tasks touched by a scope=all bulk update.
	RowsUpdated int64
}

type SeriesService interface {
	// Edit applies one of the three mutation plans atomically.
	Edit(ctx context.Context, req EditRequest) (*EditResult, error)
	// CancelOccurrence drops a single occurrence from its series. The
	// cancelled exception is the tombstone; any materialized instance for
	// the date is removed. Cancelling a standalone task sets its status.
	CancelOccurrence(ctx context.Context, taskID string, occurrenceDate time.Time, notes string) error
}

// OccurrenceQuery shapes a window query over all tasks.
type OccurrenceQuery struct {
	// From/To default to 3 months back and 2 years forward.
	From *time.Time
	To   *time.Time

	AssigneeID string
	BusinessID string
	Status     *domain.TaskStatus

	// Expand generates virtual occurrences for recurring masters.
	Expand bool
	// IncludeVirtual keeps rule-generated occurrences that have no
	// materialized record; ignored unless Expand is set.
	IncludeVirtual bool
}

type QueryService interface {
	// Occurrences returns the time-ordered occurrence view of the window.
	Occurrences(ctx context.Context, q OccurrenceQuery) ([]recur.Occurrence, error)
	// SeriesOccurrences returns one master's fully reconciled series
	// between from and to, substituting materialized and modified tasks.
	SeriesOccurrences(ctx context.Context, masterID string, from, to time.Time) ([]recur.Occurrence, error)
}

// ExtendFailure records one master a sweep could not extend.
type ExtendFailure struct {
	MasterID string
	Err      error
}

// ExtendReport summarizes one extender sweep.
type ExtendReport struct {
	MastersExtended  int
	InstancesCreated int
	// Failures lists the masters whose extension failed. A broken master
	// does not stop the sweep for the others.
	Failures []ExtendFailure
}

type ExtenderService interface {
	// ExtendDueMasters lengthens the horizon of every master expiring
	// within the look-ahead window, materializing the newly covered
	// instances. Running it twice in a row creates no duplicates.
	ExtendDueMasters(ctx context.Context, now time.Time) (*ExtendReport, error)
}
