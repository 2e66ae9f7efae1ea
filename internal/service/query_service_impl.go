package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mfserna/taskcycle/internal/config"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
	"github.com/mfserna/taskcycle/internal/repository"
)

type queryService struct {
	tasks      repository.TaskRepo
	exceptions repository.ExceptionRepo
	gen        config.GenerationConfig
	query      config.QueryConfig
	obs        UseCaseObserver
}

func NewQueryService(
	tasks repository.TaskRepo,
	exceptions repository.ExceptionRepo,
	gen config.GenerationConfig,
	query config.QueryConfig,
	observers ...UseCaseObserver,
) QueryService {
	return &queryService{
		tasks:      tasks,
		exceptions: exceptions,
		gen:        gen,
		query:      query,
		obs:        useCaseObserverOrNoop(observers),
	}
}

// Occurrences builds the window view. Materialized rows always win over
// rule generation: a generated occurrence is kept only when no instance
// record exists for its date, so a date never appears twice.
func (s *queryService) Occurrences(ctx context.Context, q OccurrenceQuery) ([]recur.Occurrence, error) {
	from, to := s.window(q.From, q.To)

	var occs []recur.Occurrence
	err := observe(ctx, s.obs, "query.occurrences", map[string]any{
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"expand": q.Expand,
	}, func() error {
		rows, err := s.tasks.List(ctx, repository.TaskQuery{
			From:       &from,
			To:         &to,
			AssigneeID: q.AssigneeID,
			BusinessID: q.BusinessID,
			Status:     q.Status,
		})
		if err != nil {
			return err
		}
		for _, t := range rows {
			if t.Kind == domain.KindMaster {
				continue
			}
			occs = append(occs, concreteOccurrence(t))
		}

		if q.Expand && q.IncludeVirtual {
			virtual, err := s.virtualOccurrences(ctx, q, from, to)
			if err != nil {
				return err
			}
			occs = append(occs, virtual...)
		}

		sort.SliceStable(occs, func(i, j int) bool { return occs[i].Start.Before(occs[j].Start) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return occs, nil
}

// virtualOccurrences expands every recurring master that can reach the
// window and keeps only the dates no instance record covers.
func (s *queryService) virtualOccurrences(ctx context.Context, q OccurrenceQuery, from, to time.Time) ([]recur.Occurrence, error) {
	kind := domain.KindMaster
	masters, err := s.tasks.List(ctx, repository.TaskQuery{
		To:         &to,
		AssigneeID: q.AssigneeID,
		BusinessID: q.BusinessID,
		Kind:       &kind,
	})
	if err != nil {
		return nil, err
	}

	var virtual []recur.Occurrence
	for _, master := range masters {
		if master.RecurrenceEndDate != nil && master.RecurrenceEndDate.Before(from) {
			continue
		}
		// Dates with a materialized row are dropped here; the row itself
		// is already part of the concrete listing.
		dates, err := s.tasks.ListInstanceDates(ctx, master.ID)
		if err != nil {
			return nil, err
		}
		covered := make(map[string]*domain.Task, len(dates))
		for _, d := range dates {
			covered[d.Format("2006-01-02")] = nil
		}
		occs, err := s.expandMaster(ctx, master, from, to, covered)
		if err != nil {
			return nil, err
		}
		for _, occ := range occs {
			if occ.Generated {
				virtual = append(virtual, occ)
			}
		}
	}
	return virtual, nil
}

// SeriesOccurrences returns the reconciled view of a single series:
// generated dates with cancellations removed, moved tails cut off, and
// diverged or materialized tasks substituted in.
func (s *queryService) SeriesOccurrences(ctx context.Context, masterID string, from, to time.Time) ([]recur.Occurrence, error) {
	master, err := s.tasks.GetByID(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if !master.IsRecurringMaster() {
		return nil, fmt.Errorf("task %s is not a recurring master", master.DisplayID())
	}

	instances, err := s.tasks.ListInstances(ctx, masterID)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*domain.Task, len(instances))
	for _, inst := range instances {
		byDate[inst.StartDate.Format("2006-01-02")] = inst
	}

	occs, err := s.expandMaster(ctx, master, from, to, byDate)
	if err != nil {
		return nil, err
	}
	return occs, nil
}

// expandMaster generates the master's spans up to the window end and
// reconciles them against its exceptions. instancesByDate resolves
// generated placeholders against materialized records: a date mapped to
// a task is substituted, a date mapped to nil is dropped.
func (s *queryService) expandMaster(
	ctx context.Context,
	master *domain.Task,
	from, to time.Time,
	instancesByDate map[string]*domain.Task,
) ([]recur.Occurrence, error) {
	bound := recur.DateOnly(to)
	spans, err := recur.Generate(master.StartDate, *master.Rule, recur.Options{
		EndBound:       &bound,
		MaxOccurrences: s.gen.MaxOccurrences,
	})
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", master.DisplayID(), err)
	}

	exceptions, err := s.exceptions.ListByMaster(ctx, master.ID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.loadOverrides(ctx, exceptions)
	if err != nil {
		return nil, err
	}

	reconciled := recur.Reconcile(master, spans, exceptions, overrides)

	lo := recur.DateOnly(from)
	result := make([]recur.Occurrence, 0, len(reconciled))
	for _, occ := range reconciled {
		if occ.Start.Before(lo) {
			continue
		}
		if occ.Generated {
			if inst, ok := instancesByDate[occ.Start.Format("2006-01-02")]; ok {
				if inst == nil {
					continue
				}
				occ.Task = inst
				occ.Generated = false
			}
		}
		result = append(result, occ)
	}
	return result, nil
}

// loadOverrides fetches the diverged tasks modified exceptions point at.
func (s *queryService) loadOverrides(ctx context.Context, exceptions []domain.Exception) (map[string]*domain.Task, error) {
	var ids []string
	for _, exc := range exceptions {
		if exc.Type == domain.ExceptionModified && exc.NewTaskID != nil {
			ids = append(ids, *exc.NewTaskID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.tasks.GetMany(ctx, ids)
}

func (s *queryService) window(from, to *time.Time) (time.Time, time.Time) {
	now := recur.DateOnly(time.Now().UTC())
	lo := now.AddDate(0, -s.query.DefaultBackMonths, 0)
	hi := now.AddDate(s.query.DefaultForwardYears, 0, 0)
	if from != nil {
		lo = recur.DateOnly(*from)
	}
	if to != nil {
		hi = recur.DateOnly(*to)
	}
	return lo, hi
}

func concreteOccurrence(t *domain.Task) recur.Occurrence {
	end := recur.EndOfDay(t.StartDate)
	if t.DueDate != nil {
		end = recur.EndOfDay(*t.DueDate)
	}
	return recur.Occurrence{
		Start:    recur.DateOnly(t.StartDate),
		End:      end,
		Task:     t,
		Modified: t.IsException,
	}
}
