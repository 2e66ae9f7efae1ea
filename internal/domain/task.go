package domain

import (
	"fmt"
	"time"
)

// Task is the single persisted work record. Kind tags its role: a master
// owns a recurrence rule and generates occurrences, an instance is one
// materialized occurrence linked to its master by ParentTaskID, and a
// standalone task repeats never. Tasks reference each other by id only;
// the store is the arena.
type Task struct {
	ID          string
	Title       string
	Description string
	AssigneeID  string
	BusinessID  string
	Status      TaskStatus
	Kind        TaskKind

	// StartDate is a naive calendar date: midnight UTC, no timezone
	// arithmetic anywhere in the engine.
	StartDate time.Time
	DueDate   *time.Time

	// Master-only fields.
	Rule              *RecurrenceRule
	RecurrenceEndDate *time.Time
	// LongCycle marks masters whose horizon is extended in 4-year spans
	// instead of the default 2.
	LongCycle bool

	// Instance-only field.
	ParentTaskID *string

	// IsException marks a task that diverged from its series via a
	// single-occurrence edit.
	IsException bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate rejects combinations the kind tag makes illegal, e.g. an
// instance carrying its own rule.
func (t *Task) Validate() error {
	switch t.Kind {
	case KindMaster:
		if t.Rule == nil {
			return fmt.Errorf("master task %s has no recurrence rule", t.DisplayID())
		}
		if t.ParentTaskID != nil {
			return fmt.Errorf("master task %s must not have a parent", t.DisplayID())
		}
		if err := t.Rule.Validate(); err != nil {
			return fmt.Errorf("master task %s: %w", t.DisplayID(), err)
		}
	case KindInstance:
		if t.Rule != nil {
			return fmt.Errorf("instance task %s must not carry a rule", t.DisplayID())
		}
		if t.ParentTaskID == nil {
			return fmt.Errorf("instance task %s has no parent", t.DisplayID())
		}
	case KindStandalone:
		if t.Rule != nil {
			return fmt.Errorf("standalone task %s must not carry a rule", t.DisplayID())
		}
		if t.ParentTaskID != nil {
			return fmt.Errorf("standalone task %s must not have a parent", t.DisplayID())
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}

// IsRecurringMaster reports whether the task owns a series.
func (t *Task) IsRecurringMaster() bool {
	return t.Kind == KindMaster
}

// DisplayID returns a short identifier for messages and listings.
func (t *Task) DisplayID() string {
	if len(t.ID) >= 8 {
		return t.ID[:8]
	}
	return t.ID
}

// TaskChanges carries the field edits of a series-edit request. Nil
// pointers leave the corresponding field untouched.
type TaskChanges struct {
	Title       *string
	Description *string
	AssigneeID  *string
	Status      *TaskStatus
	DueDate     *time.Time
}

// Apply mutates t with every non-nil change and stamps UpdatedAt.
func (c TaskChanges) Apply(t *Task, now time.Time) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.AssigneeID != nil {
		t.AssigneeID = *c.AssigneeID
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.DueDate != nil {
		d := *c.DueDate
		t.DueDate = &d
	}
	t.UpdatedAt = now
}

// Empty reports whether the change set touches nothing.
func (c TaskChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.AssigneeID == nil &&
		c.Status == nil && c.DueDate == nil
}
