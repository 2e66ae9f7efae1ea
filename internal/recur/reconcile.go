package recur

import (
	"sort"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
)

// Occurrence is one entry of the final, reconciled series view.
type Occurrence struct {
	Start time.Time
	End   time.Time
	// Task is the master for generated placeholders, or the concrete
	// override task for modified occurrences.
	Task *domain.Task
	// Generated is true for rule-generated placeholders that have no
	// materialized record of their own.
	Generated bool
	// Modified is true when an exception substituted a concrete task.
	Modified bool
}

// Reconcile merges generated spans with the master's exception records.
// Cancelled dates are dropped even when the caller forgot to exclude them
// from generation. Modified dates substitute the override task from
// overrides, keyed by task id.
// Moved dates are suppressed here; the relocated task surfaces at its own
// date through the store, not through the rule.
//
// The result is ordered by effective occurrence start. Duplicate dates
// cannot appear because the store holds at most one exception per
// (master, date) pair.
func Reconcile(master *domain.Task, spans []Span, exceptions []domain.Exception, overrides map[string]*domain.Task) []Occurrence {
	byDate := make(map[string]domain.Exception, len(exceptions))
	for _, exc := range exceptions {
		byDate[dayKey(exc.Date)] = exc
	}

	occs := make([]Occurrence, 0, len(spans))
	for _, span := range spans {
		exc, ok := byDate[dayKey(span.Start)]
		if !ok {
			occs = append(occs, Occurrence{
				Start:     span.Start,
				End:       span.End,
				Task:      master,
				Generated: true,
			})
			continue
		}
		switch exc.Type {
		case domain.ExceptionCancelled, domain.ExceptionMoved:
			continue
		case domain.ExceptionModified:
			if exc.NewTaskID != nil {
				if override, found := overrides[*exc.NewTaskID]; found {
					occs = append(occs, Occurrence{
						Start:    span.Start,
						End:      span.End,
						Task:     override,
						Modified: true,
					})
					continue
				}
			}
			// Dangling modified exception: keep the generated view
			// rather than losing the occurrence.
			occs = append(occs, Occurrence{
				Start:     span.Start,
				End:       span.End,
				Task:      master,
				Generated: true,
			})
		}
	}

	sort.SliceStable(occs, func(i, j int) bool {
		return occs[i].Start.Before(occs[j].Start)
	})
	return occs
}
