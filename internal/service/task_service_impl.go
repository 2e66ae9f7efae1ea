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

// insertChunk bounds how many rows a single batch INSERT carries.
const insertChunk = 50

type taskService struct {
	tasks repository.TaskRepo
	uow   db.UnitOfWork
	gen   config.GenerationConfig
	obs   UseCaseObserver
}

func NewTaskService(tasks repository.TaskRepo, uow db.UnitOfWork, gen config.GenerationConfig, observers ...UseCaseObserver) TaskService {
	return &taskService{tasks: tasks, uow: uow, gen: gen, obs: useCaseObserverOrNoop(observers)}
}

func (s *taskService) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = domain.TaskTodo
	}
	if t.Kind == "" {
		switch {
		case t.Rule != nil:
			t.Kind = domain.KindMaster
		case t.ParentTaskID != nil:
			t.Kind = domain.KindInstance
		default:
			t.Kind = domain.KindStandalone
		}
	}
	t.StartDate = recur.DateOnly(t.StartDate)
	if err := t.Validate(); err != nil {
		return err
	}

	if t.Kind != domain.KindMaster {
		return s.tasks.Create(ctx, t)
	}
	return observe(ctx, s.obs, "task.create_master", map[string]any{"task_id": t.ID}, func() error {
		return s.createMaster(ctx, t)
	})
}

// createMaster persists the master together with its initial batch of
// materialized instances, all in one transaction.
func (s *taskService) createMaster(ctx context.Context, master *domain.Task) error {
	spans, horizon, err := s.initialSpans(master)
	if err != nil {
		return err
	}
	master.RecurrenceEndDate = &horizon

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txTasks := repository.NewSQLiteTaskRepo(tx)
		if err := txTasks.Create(ctx, master); err != nil {
			return err
		}
		instances := materializeInstances(master, spans)
		for _, chunk := range chunkTasks(instances, insertChunk) {
			if err := txTasks.CreateMany(ctx, chunk); err != nil {
				return err
			}
		}
		return nil
	})
}

// initialSpans expands the master's rule up to its initial horizon: the
// rule's own bound when it has one, otherwise the configured number of
// years past the anchor.
func (s *taskService) initialSpans(master *domain.Task) ([]recur.Span, time.Time, error) {
	rule := *master.Rule
	opts := recur.Options{MaxOccurrences: s.gen.MaxOccurrences}

	var horizon time.Time
	switch {
	case rule.EndDate != nil:
		horizon = recur.DateOnly(*rule.EndDate)
	case rule.Count != nil:
		horizon = master.StartDate // fixed up from the last span below
	default:
		horizon = master.StartDate.AddDate(s.gen.InitialHorizonYears, 0, 0)
		opts.EndBound = &horizon
	}

	spans, err := recur.Generate(master.StartDate, rule, opts)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("materializing series %s: %w", master.DisplayID(), err)
	}
	if rule.Count != nil && len(spans) > 0 {
		horizon = spans[len(spans)-1].Start
	}
	return spans, horizon, nil
}

// materializeInstances builds one instance task per span, copying the
// master's shared fields.
func materializeInstances(master *domain.Task, spans []recur.Span) []*domain.Task {
	now := time.Now().UTC()
	instances := make([]*domain.Task, 0, len(spans))
	for _, span := range spans {
		parentID := master.ID
		due := span.Start
		instances = append(instances, &domain.Task{
			ID:           uuid.New().String(),
			Title:        master.Title,
			Description:  master.Description,
			AssigneeID:   master.AssigneeID,
			BusinessID:   master.BusinessID,
			Status:       domain.TaskTodo,
			Kind:         domain.KindInstance,
			StartDate:    span.Start,
			DueDate:      &due,
			ParentTaskID: &parentID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return instances
}

func chunkTasks(tasks []*domain.Task, size int) [][]*domain.Task {
	if size <= 0 {
		size = insertChunk
	}
	var chunks [][]*domain.Task
	for len(tasks) > size {
		chunks = append(chunks, tasks[:size])
		tasks = tasks[size:]
	}
	if len(tasks) > 0 {
		chunks = append(chunks, tasks)
	}
	return chunks
}

func (s *taskService) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *taskService) List(ctx context.Context, q repository.TaskQuery) ([]*domain.Task, error) {
	return s.tasks.List(ctx, q)
}

func (s *taskService) MarkDone(ctx context.Context, id string) error {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	t.Status = domain.TaskDone
	t.UpdatedAt = time.Now().UTC()
	return s.tasks.Update(ctx, t)
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return err
	}
	return s.tasks.Delete(ctx, id)
}
