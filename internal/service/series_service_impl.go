package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mfserna/taskcycle/internal/config"
	"github.com/mfserna/taskcycle/internal/db"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
	"github.com/mfserna/taskcycle/internal/repository"
)

type seriesService struct {
	tasks repository.TaskRepo
	uow   db.UnitOfWork
	gen   config.GenerationConfig
	obs   UseCaseObserver
}

func NewSeriesService(tasks repository.TaskRepo, uow db.UnitOfWork, gen config.GenerationConfig, observers ...UseCaseObserver) SeriesService {
	return &seriesService{tasks: tasks, uow: uow, gen: gen, obs: useCaseObserverOrNoop(observers)}
}

// Edit applies one of the three mutation plans. The whole plan runs in a
// single transaction; the store serializes concurrent editors per master.
func (s *seriesService) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	if !domain.ValidEditScopes[string(req.Scope)] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEditScope, req.Scope)
	}

	var result *EditResult
	err := observe(ctx, s.obs, "series.edit", map[string]any{
		"task_id": req.TaskID,
		"scope":   string(req.Scope),
	}, func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			var err error
			result, err = s.editInTx(ctx, tx, req)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *seriesService) editInTx(ctx context.Context, tx db.DBTX, req EditRequest) (*EditResult, error) {
	txTasks := repository.NewSQLiteTaskRepo(tx)
	txExceptions := repository.NewSQLiteExceptionRepo(tx)

	target, err := txTasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	// Standalone tasks have no series; every scope degenerates to a
	// direct mutation.
	if target.Kind == domain.KindStandalone {
		req.Changes.Apply(target, time.Now().UTC())
		if err := txTasks.Update(ctx, target); err != nil {
			return nil, err
		}
		return &EditResult{RowsUpdated: 1}, nil
	}

	master, occDate, err := resolveOccurrence(ctx, txTasks, target, req.OccurrenceDate)
	if err != nil {
		return nil, err
	}

	switch req.Scope {
	case domain.ScopeThis:
		return s.editThis(ctx, txTasks, txExceptions, master, target, occDate, req)
	case domain.ScopeThisAndFuture:
		return s.splitSeries(ctx, txTasks, txExceptions, master, occDate, req)
	case domain.ScopeAll:
		return s.editAll(ctx, txTasks, master, req)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidEditScope, req.Scope)
}

// CancelOccurrence removes one occurrence from its series. The exception
// record is the tombstone; a materialized instance for the date is
// deleted rather than kept around in a cancelled state.
func (s *seriesService) CancelOccurrence(ctx context.Context, taskID string, occurrenceDate time.Time, notes string) error {
	return observe(ctx, s.obs, "series.cancel_occurrence", map[string]any{
		"task_id": taskID,
	}, func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			txTasks := repository.NewSQLiteTaskRepo(tx)
			txExceptions := repository.NewSQLiteExceptionRepo(tx)

			target, err := txTasks.GetByID(ctx, taskID)
			if err != nil {
				return err
			}
			if target.Kind == domain.KindStandalone {
				status := domain.TaskCancelled
				changes := domain.TaskChanges{Status: &status}
				changes.Apply(target, time.Now().UTC())
				return txTasks.Update(ctx, target)
			}

			master, occDate, err := resolveOccurrence(ctx, txTasks, target, occurrenceDate)
			if err != nil {
				return err
			}
			if target.Kind == domain.KindInstance {
				if err := txTasks.Delete(ctx, target.ID); err != nil {
					return err
				}
			} else if existing, err := findInstanceAt(ctx, txTasks, master.ID, occDate); err != nil {
				return err
			} else if existing != nil {
				if err := txTasks.Delete(ctx, existing.ID); err != nil {
					return err
				}
			}

			return txExceptions.Upsert(ctx, &domain.Exception{
				MasterTaskID: master.ID,
				Date:         occDate,
				Type:         domain.ExceptionCancelled,
				Notes:        notes,
				CreatedAt:    time.Now().UTC(),
			})
		})
	})
}

// resolveOccurrence maps the edit target onto its master and the concrete
// occurrence date being edited.
func resolveOccurrence(ctx context.Context, txTasks repository.TaskRepo, target *domain.Task, requested time.Time) (*domain.Task, time.Time, error) {
	if target.Kind == domain.KindMaster {
		if requested.IsZero() {
			return nil, time.Time{}, fmt.Errorf("editing master %s requires an occurrence date", target.DisplayID())
		}
		return target, recur.DateOnly(requested), nil
	}
	master, err := txTasks.GetByID(ctx, *target.ParentTaskID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("resolving master of instance %s: %w", target.DisplayID(), err)
	}
	occDate := target.StartDate
	if !requested.IsZero() {
		occDate = recur.DateOnly(requested)
	}
	return master, occDate, nil
}

// editThis mutates exactly one occurrence. The master's rule and every
// other occurrence stay untouched; an exception record of type modified
// points the series date at the diverged task.
func (s *seriesService) editThis(
	ctx context.Context,
	txTasks repository.TaskRepo,
	txExceptions repository.ExceptionRepo,
	master, target *domain.Task,
	occDate time.Time,
	req EditRequest,
) (*EditResult, error) {
	now := time.Now().UTC()

	carrier := target
	if target.Kind == domain.KindMaster {
		existing, err := findInstanceAt(ctx, txTasks, master.ID, occDate)
		if err != nil {
			return nil, err
		}
		carrier = existing
	}

	if carrier != nil {
		req.Changes.Apply(carrier, now)
		carrier.IsException = true
		if err := txTasks.Update(ctx, carrier); err != nil {
			return nil, err
		}
	} else {
		// Virtual occurrence: materialize an exception carrier for it.
		carrier = materializeInstances(master, []recur.Span{{
			Start: occDate,
			End:   recur.EndOfDay(occDate),
		}})[0]
		req.Changes.Apply(carrier, now)
		carrier.IsException = true
		if err := txTasks.Create(ctx, carrier); err != nil {
			return nil, err
		}
	}

	if err := txExceptions.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         occDate,
		Type:         domain.ExceptionModified,
		NewTaskID:    &carrier.ID,
		Notes:        req.Notes,
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}
	return &EditResult{ExceptionTaskID: carrier.ID}, nil
}

// findInstanceAt returns the materialized instance of a master on a date,
// or nil when none exists.
func findInstanceAt(ctx context.Context, txTasks repository.TaskRepo, masterID string, date time.Time) (*domain.Task, error) {
	kind := domain.KindInstance
	rows, err := txTasks.List(ctx, repository.TaskQuery{
		From:         &date,
		To:           &date,
		Kind:         &kind,
		ParentTaskID: &masterID,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// editAll mutates the master's shared fields and bulk-updates every
// materialized instance in one statement. No exception records result.
func (s *seriesService) editAll(ctx context.Context, txTasks repository.TaskRepo, master *domain.Task, req EditRequest) (*EditResult, error) {
	n, err := txTasks.UpdateSeries(ctx, master.ID, req.Changes, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &EditResult{RowsUpdated: n}, nil
}

// splitSeries creates a new independent master anchored at the split date
// and hands it every occurrence from that date forward. The old master is
// re-bounded to stop at the occurrence just before the split; a moved
// exception on it records where the tail went.
func (s *seriesService) splitSeries(
	ctx context.Context,
	txTasks repository.TaskRepo,
	txExceptions repository.ExceptionRepo,
	master *domain.Task,
	splitDate time.Time,
	req EditRequest,
) (*EditResult, error) {
	now := time.Now().UTC()
	dayBefore := splitDate.AddDate(0, 0, -1)

	occurrencesBefore, err := s.countOccurrencesThrough(master, dayBefore)
	if err != nil {
		return nil, err
	}

	newMaster := s.forkMaster(master, splitDate, occurrencesBefore, now)
	req.Changes.Apply(newMaster, now)
	if err := txTasks.Create(ctx, newMaster); err != nil {
		return nil, err
	}

	// Transfer materialized instances and forward exceptions to the new
	// series, then push the field changes through it.
	if _, err := txTasks.ReparentInstances(ctx, master.ID, newMaster.ID, splitDate); err != nil {
		return nil, err
	}
	if _, err := txExceptions.ReassignFrom(ctx, master.ID, newMaster.ID, splitDate); err != nil {
		return nil, err
	}
	if _, err := txTasks.UpdateSeries(ctx, newMaster.ID, req.Changes, now); err != nil {
		return nil, err
	}

	// Re-bound the old master so later generation stops before the split.
	if master.Rule.Count != nil {
		remaining := occurrencesBefore
		master.Rule.Count = &remaining
	} else {
		end := dayBefore
		if master.Rule.EndDate == nil || master.Rule.EndDate.After(dayBefore) {
			master.Rule.EndDate = &end
		}
	}
	boundary := dayBefore
	master.RecurrenceEndDate = &boundary
	master.UpdatedAt = now
	if err := txTasks.Update(ctx, master); err != nil {
		return nil, err
	}

	if err := txExceptions.Upsert(ctx, &domain.Exception{
		MasterTaskID: master.ID,
		Date:         splitDate,
		Type:         domain.ExceptionMoved,
		NewTaskID:    &newMaster.ID,
		Notes:        req.Notes,
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	return &EditResult{NewMasterID: newMaster.ID}, nil
}

// countOccurrencesThrough counts the old series' occurrences up to and
// including the boundary date.
func (s *seriesService) countOccurrencesThrough(master *domain.Task, boundary time.Time) (int, error) {
	spans, err := recur.Generate(master.StartDate, *master.Rule, recur.Options{
		EndBound:       &boundary,
		MaxOccurrences: s.gen.MaxOccurrences,
	})
	if err != nil {
		return 0, fmt.Errorf("re-deriving bound for %s: %w", master.DisplayID(), err)
	}
	return len(spans), nil
}

// forkMaster copies the master into a new independent series anchored at
// the split date. Count-bounded rules carry only the remaining count.
func (s *seriesService) forkMaster(master *domain.Task, splitDate time.Time, occurrencesBefore int, now time.Time) *domain.Task {
	rule := *master.Rule
	if rule.Count != nil {
		remaining := *rule.Count - occurrencesBefore
		if remaining < 0 {
			remaining = 0
		}
		rule.Count = &remaining
	}
	if rule.EndDate != nil {
		end := *rule.EndDate
		rule.EndDate = &end
	}
	rule.CustomDays = append([]int(nil), master.Rule.CustomDays...)
	rule.CustomMonths = append([]int(nil), master.Rule.CustomMonths...)

	forked := &domain.Task{
		ID:          uuid.New().String(),
		Title:       master.Title,
		Description: master.Description,
		AssigneeID:  master.AssigneeID,
		BusinessID:  master.BusinessID,
		Status:      master.Status,
		Kind:        domain.KindMaster,
		StartDate:   splitDate,
		Rule:        &rule,
		LongCycle:   master.LongCycle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if master.RecurrenceEndDate != nil {
		end := *master.RecurrenceEndDate
		forked.RecurrenceEndDate = &end
	}
	return forked
}
