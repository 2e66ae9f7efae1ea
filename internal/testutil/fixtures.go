package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfserna/taskcycle/internal/domain"
)

// Task options
type TaskOption func(*domain.Task)

func WithAssignee(id string) TaskOption {
	return func(t *domain.Task) {
		t.AssigneeID = id
	}
}

func WithBusiness(id string) TaskOption {
	return func(t *domain.Task) {
		t.BusinessID = id
	}
}

func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithDueDate(d time.Time) TaskOption {
	return func(t *domain.Task) {
		t.DueDate = &d
	}
}

func WithRecurrenceEnd(d time.Time) TaskOption {
	return func(t *domain.Task) {
		t.RecurrenceEndDate = &d
	}
}

func WithLongCycle() TaskOption {
	return func(t *domain.Task) {
		t.LongCycle = true
	}
}

// NewTestMaster builds a master task with the given rule anchored at start.
func NewTestMaster(title string, start time.Time, rule domain.RecurrenceRule, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    domain.TaskTodo,
		Kind:      domain.KindMaster,
		StartDate: start,
		Rule:      &rule,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTestInstance builds a materialized instance of the given master.
func NewTestInstance(master *domain.Task, start time.Time, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	parentID := master.ID
	t := &domain.Task{
		ID:           uuid.New().String(),
		Title:        master.Title,
		Description:  master.Description,
		AssigneeID:   master.AssigneeID,
		BusinessID:   master.BusinessID,
		Status:       domain.TaskTodo,
		Kind:         domain.KindInstance,
		StartDate:    start,
		ParentTaskID: &parentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTestStandalone builds a non-recurring task.
func NewTestStandalone(title string, start time.Time, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    domain.TaskTodo,
		Kind:      domain.KindStandalone,
		StartDate: start,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Date builds a naive calendar date at midnight UTC.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
